package simulation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSum(t *testing.T) {
	r := NewResult("errors", Sum)
	require.NoError(t, r.Update(13, 0))
	require.NoError(t, r.Update(4, 0))

	assert.Equal(t, 17.0, r.Value())
	assert.Equal(t, 2, r.NumUpdates())
	assert.Equal(t, Sum, r.Type())
}

func TestResultRatio(t *testing.T) {
	r := NewResult("ber", Ratio)
	require.NoError(t, r.Update(4, 10))
	require.NoError(t, r.Update(3, 4))

	assert.InDelta(t, 0.5, r.Float(), 1e-12)

	err := r.Update(5, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadUpdate), "value above total")

	err = r.Update(1, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadUpdate), "non-positive total")

	empty := NewResult("ber", Ratio)
	assert.Equal(t, 0.0, empty.Value())
}

func TestResultFloat(t *testing.T) {
	r := NewResult("cost", Float)
	require.NoError(t, r.Update(2.5, 0))
	require.NoError(t, r.Update(1.25, 0))
	assert.Equal(t, 1.25, r.Value())
}

func TestResultString(t *testing.T) {
	r := NewResult("note", String)
	require.NoError(t, r.UpdateString("first"))
	require.NoError(t, r.UpdateString("second"))
	assert.Equal(t, "second", r.Value())

	err := r.Update(1, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadUpdate))

	sum := NewResult("note", Sum)
	err = sum.UpdateString("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadUpdate))
}

func TestResultMerge(t *testing.T) {
	a, err := NewResultValue("ber", Ratio, 3, 11)
	require.NoError(t, err)
	b, err := NewResultValue("ber", Ratio, 7, 14)
	require.NoError(t, err)

	require.NoError(t, a.Merge(b))
	assert.InDelta(t, 10.0/25.0, a.Float(), 1e-12)
	assert.Equal(t, 2, a.NumUpdates())

	// Mismatched name or type.
	c := NewResult("other", Ratio)
	err = a.Merge(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleResult))

	d := NewResult("ber", Sum)
	err = a.Merge(d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleResult))

	// Strings are not mergeable.
	s1 := NewResult("note", String)
	s2 := NewResult("note", String)
	err = s1.Merge(s2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleResult))
}

func TestResultsAddAppend(t *testing.T) {
	rs := NewResults()
	r1, err := NewResultValue("cost", Float, 2.5, 0)
	require.NoError(t, err)
	rs.Add(r1)

	r2, err := NewResultValue("cost", Float, 1.0, 0)
	require.NoError(t, err)
	rs.Append(r2)

	assert.Equal(t, []string{"cost"}, rs.Names())
	assert.Len(t, rs.Get("cost"), 2)
	assert.Equal(t, []any{2.5, 1.0}, rs.Values("cost"))
	assert.Equal(t, r2, rs.Last("cost"))

	// Add replaces the whole list.
	r3, err := NewResultValue("cost", Float, 9.0, 0)
	require.NoError(t, err)
	rs.Add(r3)
	assert.Len(t, rs.Get("cost"), 1)
}

func TestResultsMergeAll(t *testing.T) {
	mk := func(v float64) *Results {
		rs := NewResults()
		r, err := NewResultValue("errors", Sum, v, 0)
		require.NoError(t, err)
		rs.Add(r)
		return rs
	}

	// Empty receiver adopts the source.
	rs := NewResults()
	require.NoError(t, rs.MergeAll(mk(2)))
	assert.Equal(t, 2.0, rs.Last("errors").Value())

	require.NoError(t, rs.MergeAll(mk(5)))
	assert.Equal(t, 7.0, rs.Last("errors").Value())

	// Missing name in the source.
	other := NewResults()
	r, err := NewResultValue("unrelated", Sum, 1, 0)
	require.NoError(t, err)
	other.Add(r)
	err = rs.MergeAll(other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleResult))
}

func TestResultsAppendAll(t *testing.T) {
	rs := NewResults()
	src := NewResults()
	for _, v := range []float64{1, 2} {
		r, err := NewResultValue("cost", Float, v, 0)
		require.NoError(t, err)
		src.Append(r)
	}

	rs.AppendAll(src)
	rs.AppendAll(src)
	assert.Len(t, rs.Get("cost"), 4)
}
