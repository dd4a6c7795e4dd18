package simulation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trialCounter returns a RunFn that records how often it was called per
// parameter combination and reports a single Sum result per call.
func trialCounter(calls *int) func(*Parameters) (*Results, error) {
	return func(p *Parameters) (*Results, error) {
		*calls++
		rs := NewResults()
		r, err := NewResultValue("reps", Sum, 1, 0)
		if err != nil {
			return nil, err
		}
		rs.Add(r)
		return rs, nil
	}
}

func TestRunnerRepMax(t *testing.T) {
	p := NewParameters()
	p.Add("K", 3)

	var calls int
	r := &Runner{
		RepMax: 5,
		Params: p,
		RunFn:  trialCounter(&calls),
	}
	require.NoError(t, r.Simulate())

	assert.Equal(t, 5, calls)
	assert.Equal(t, []int{5}, r.Repetitions())
	require.Len(t, r.Results(), 1)
	assert.Equal(t, 5.0, r.Results()[0].Last("reps").Value())
	assert.GreaterOrEqual(t, r.Elapsed().Nanoseconds(), int64(0))
}

func TestRunnerKeepGoingStopsEarly(t *testing.T) {
	p := NewParameters()
	p.Add("K", 3)

	var calls int
	r := &Runner{
		RepMax: 100,
		Params: p,
		RunFn:  trialCounter(&calls),
		KeepGoing: func(rs *Results) bool {
			return rs.Last("reps").Float() < 3
		},
	}
	require.NoError(t, r.Simulate())

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{3}, r.Repetitions())
}

func TestRunnerSweep(t *testing.T) {
	p := NewParameters()
	p.Add("Ns", []int{1, 2, 3})
	require.NoError(t, p.SetUnpackParam("Ns"))

	seen := make([]int, 0, 3)
	r := &Runner{
		RepMax: 2,
		Params: p,
		RunFn: func(cur *Parameters) (*Results, error) {
			ns := cur.MustGet("Ns").(int)
			seen = append(seen, ns)
			rs := NewResults()
			res, err := NewResultValue("ns-sum", Sum, float64(ns), 0)
			if err != nil {
				return nil, err
			}
			rs.Add(res)
			return rs, nil
		},
	}
	require.NoError(t, r.Simulate())

	assert.Equal(t, []int{1, 1, 2, 2, 3, 3}, seen)
	require.Len(t, r.Results(), 3)
	assert.Equal(t, []int{2, 2, 2}, r.Repetitions())
	assert.Equal(t, 4.0, r.Results()[1].Last("ns-sum").Value())
}

func TestRunnerProgressOutput(t *testing.T) {
	p := NewParameters()
	p.Add("Ns", []int{2})
	require.NoError(t, p.SetUnpackParam("Ns"))

	var calls int
	var buf bytes.Buffer
	r := &Runner{
		RepMax:          4,
		Params:          p,
		RunFn:           trialCounter(&calls),
		ProgressMessage: "IA sweep Ns={Ns}",
		Out:             &buf,
	}
	require.NoError(t, r.Simulate())

	out := buf.String()
	assert.Contains(t, out, "IA sweep Ns=2")
	assert.Contains(t, out, strings.Repeat("*", 50))
}

func TestRunnerPropagatesTrialError(t *testing.T) {
	p := NewParameters()
	p.Add("K", 3)

	boom := fmt.Errorf("boom")
	r := &Runner{
		RepMax: 3,
		Params: p,
		RunFn: func(*Parameters) (*Results, error) {
			return nil, boom
		},
	}
	err := r.Simulate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestRunnerMisconfigured(t *testing.T) {
	var calls int

	err := (&Runner{RepMax: 1, RunFn: trialCounter(&calls)}).Simulate()
	assert.True(t, errors.Is(err, ErrRunnerConfig), "missing params")

	err = (&Runner{RepMax: 1, Params: NewParameters()}).Simulate()
	assert.True(t, errors.Is(err, ErrRunnerConfig), "missing trial function")

	err = (&Runner{RepMax: 0, Params: NewParameters(), RunFn: trialCounter(&calls)}).Simulate()
	assert.True(t, errors.Is(err, ErrRunnerConfig), "non-positive RepMax")
}
