// Package simulation provides the experiment harness around the IA
// solver: a parameter container with cartesian-product unpacking, typed
// result accumulators that can be merged across repetitions, and a
// runner that repeats a trial function over every parameter combination
// with an optional early-stop hook.
package simulation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

var (
	// ErrUnknownParam is returned when a named parameter does not exist.
	ErrUnknownParam = errors.New("simulation: unknown parameter")

	// ErrNotIterable is returned when a non-slice parameter is marked for
	// unpacking.
	ErrNotIterable = errors.New("simulation: parameter is not iterable")

	// ErrIncompatibleResult is returned when merging results with
	// different names or update types.
	ErrIncompatibleResult = errors.New("simulation: incompatible results")

	// ErrBadUpdate is returned for an invalid result update, e.g. a ratio
	// update with a non-positive total.
	ErrBadUpdate = errors.New("simulation: invalid result update")

	// ErrRunnerConfig is returned when a Runner is missing its parameters
	// or trial function, or has a non-positive repetition count.
	ErrRunnerConfig = errors.New("simulation: runner misconfigured")
)

// Parameters is a container for named simulation parameters. Slice
// parameters can be marked for unpacking, and UnpackedList expands the
// container into one Parameters value per element combination.
type Parameters struct {
	values   map[string]any
	unpacked map[string]bool
}

// NewParameters returns an empty parameter container.
func NewParameters() *Parameters {
	return &Parameters{
		values:   make(map[string]any),
		unpacked: make(map[string]bool),
	}
}

// Add stores a parameter, replacing any previous value with the same
// name.
func (p *Parameters) Add(name string, value any) {
	p.values[name] = value
}

// Get returns the parameter with the given name.
func (p *Parameters) Get(name string) (any, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return v, nil
}

// MustGet returns the parameter with the given name, panicking if it
// does not exist. Intended for trial functions that already validated
// their parameter set.
func (p *Parameters) MustGet(name string) any {
	v, err := p.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Names returns the parameter names in sorted order.
func (p *Parameters) Names() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetUnpackParam marks a slice parameter for unpacking. Non-slice
// values are rejected with ErrNotIterable.
func (p *Parameters) SetUnpackParam(name string) error {
	v, ok := p.values[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	k := reflect.ValueOf(v).Kind()
	if k != reflect.Slice && k != reflect.Array {
		return fmt.Errorf("%w: %q is %T", ErrNotIterable, name, v)
	}
	p.unpacked[name] = true
	return nil
}

// UnpackedNames returns the names marked for unpacking in sorted order.
// The order also fixes the iteration order of UnpackedList, making the
// expansion deterministic.
func (p *Parameters) UnpackedNames() []string {
	names := make([]string, 0, len(p.unpacked))
	for name := range p.unpacked {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumUnpackedVariations returns the number of parameter combinations
// UnpackedList will produce, 1 when nothing is marked for unpacking.
func (p *Parameters) NumUnpackedVariations() int {
	n := 1
	for _, name := range p.UnpackedNames() {
		n *= reflect.ValueOf(p.values[name]).Len()
	}
	return n
}

// UnpackedList expands the container into the cartesian product of all
// parameters marked for unpacking. Each returned Parameters holds one
// element of every unpacked slice plus all regular parameters, with no
// unpack marks of its own. The last unpacked name (in sorted order)
// varies fastest.
func (p *Parameters) UnpackedList() []*Parameters {
	names := p.UnpackedNames()
	if len(names) == 0 {
		return []*Parameters{p.clone()}
	}

	lengths := make([]int, len(names))
	for i, name := range names {
		lengths[i] = reflect.ValueOf(p.values[name]).Len()
	}

	out := make([]*Parameters, 0, p.NumUnpackedVariations())
	idx := make([]int, len(names))
	for {
		cur := p.clone()
		cur.unpacked = make(map[string]bool)
		for i, name := range names {
			cur.values[name] = reflect.ValueOf(p.values[name]).Index(idx[i]).Interface()
		}
		out = append(out, cur)

		// Odometer increment, last position fastest.
		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < lengths[pos] {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}

func (p *Parameters) clone() *Parameters {
	c := NewParameters()
	for name, v := range p.values {
		c.values[name] = v
	}
	for name := range p.unpacked {
		c.unpacked[name] = true
	}
	return c
}
