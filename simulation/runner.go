package simulation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wirelab/go-interference-alignment/progressbar"
)

// Runner repeats a trial function over every combination of the
// unpacked parameters, merging the results of up to RepMax repetitions
// per combination. A KeepGoing hook can stop the repetitions early; the
// trial function's error aborts the whole run, so retryable failures
// (e.g. a singular random channel realization) should be handled inside
// the trial.
type Runner struct {
	// RepMax is the maximum number of repetitions per parameter
	// combination. Must be at least 1.
	RepMax int

	// Params holds the simulation parameters, with sweep parameters
	// marked for unpacking.
	Params *Parameters

	// RunFn performs one repetition for one parameter combination.
	RunFn func(*Parameters) (*Results, error)

	// KeepGoing, when set, is consulted after each repetition with the
	// merged results so far; returning false stops the repetitions for
	// the current combination.
	KeepGoing func(*Results) bool

	// ProgressMessage titles the per-combination progress bar. "{Name}"
	// placeholders are replaced with the combination's parameter values.
	// An empty message disables the bar.
	ProgressMessage string

	// Out receives progress output, os.Stdout when nil.
	Out io.Writer

	results []*Results
	reps    []int
	elapsed time.Duration
}

// Simulate runs the full sweep. Results, Repetitions and Elapsed are
// populated on success.
func (r *Runner) Simulate() error {
	if r.Params == nil || r.RunFn == nil {
		return fmt.Errorf("%w: Params and RunFn are required", ErrRunnerConfig)
	}
	if r.RepMax < 1 {
		return fmt.Errorf("%w: RepMax must be at least 1, got %d", ErrRunnerConfig, r.RepMax)
	}
	out := r.Out
	if out == nil {
		out = os.Stdout
	}

	r.results = nil
	r.reps = nil
	start := time.Now()

	for _, cur := range r.Params.UnpackedList() {
		var bar progressbar.Bar = progressbar.NewDummy()
		if r.ProgressMessage != "" {
			bar = progressbar.NewText(out, r.RepMax, '*', r.expandMessage(cur))
		}

		res, err := r.RunFn(cur)
		if err != nil {
			return err
		}
		rep := 1
		bar.Progress(rep)

		for (r.KeepGoing == nil || r.KeepGoing(res)) && rep < r.RepMax {
			next, err := r.RunFn(cur)
			if err != nil {
				return err
			}
			if err := res.MergeAll(next); err != nil {
				return err
			}
			rep++
			bar.Progress(rep)
		}

		// KeepGoing may have stopped early; complete the bar either way.
		bar.Progress(r.RepMax)
		r.reps = append(r.reps, rep)
		r.results = append(r.results, res)
	}

	r.elapsed = time.Since(start)
	return nil
}

// Results returns the merged results, one per parameter combination in
// UnpackedList order.
func (r *Runner) Results() []*Results { return r.results }

// Repetitions returns how many repetitions actually ran per parameter
// combination.
func (r *Runner) Repetitions() []int { return r.reps }

// Elapsed returns the wall-clock duration of the last Simulate call.
func (r *Runner) Elapsed() time.Duration { return r.elapsed }

// expandMessage substitutes "{Name}" placeholders in the progress
// message with the current combination's parameter values.
func (r *Runner) expandMessage(p *Parameters) string {
	msg := r.ProgressMessage
	for _, name := range p.Names() {
		v, _ := p.Get(name)
		msg = strings.ReplaceAll(msg, "{"+name+"}", fmt.Sprint(v))
	}
	return msg
}
