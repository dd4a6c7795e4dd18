package simulation

import (
	"fmt"
	"sort"
)

// UpdateType selects how a Result combines successive updates. The set
// is closed; Update and Merge switch over it exhaustively.
type UpdateType int

const (
	// Sum accumulates updates by addition.
	Sum UpdateType = iota
	// Ratio accumulates a numerator and a denominator separately; the
	// reported value is their quotient.
	Ratio
	// Float keeps only the most recent value.
	Float
	// String keeps only the most recent string; not mergeable.
	String
)

// String implements fmt.Stringer for UpdateType.
func (t UpdateType) String() string {
	switch t {
	case Sum:
		return "Sum"
	case Ratio:
		return "Ratio"
	case Float:
		return "Float"
	case String:
		return "String"
	default:
		return fmt.Sprintf("UpdateType(%d)", int(t))
	}
}

// Result stores a single named simulation result and the rule for
// combining repeated observations of it.
type Result struct {
	Name string

	typ     UpdateType
	num     float64
	total   float64
	str     string
	updates int
}

// NewResult returns an empty result with the given name and update
// type.
func NewResult(name string, typ UpdateType) *Result {
	return &Result{Name: name, typ: typ}
}

// NewResultValue returns a result already updated once with value and
// total.
func NewResultValue(name string, typ UpdateType, value, total float64) (*Result, error) {
	r := NewResult(name, typ)
	if err := r.Update(value, total); err != nil {
		return nil, err
	}
	return r, nil
}

// Type returns the result's update type.
func (r *Result) Type() UpdateType { return r.typ }

// NumUpdates returns how many times the result has been updated,
// including updates folded in by Merge.
func (r *Result) NumUpdates() int { return r.updates }

// Update records a numeric observation. total is only meaningful for
// Ratio results, where it must be positive and at least value; it is
// ignored for Sum and Float. String results reject Update.
func (r *Result) Update(value, total float64) error {
	switch r.typ {
	case Sum:
		r.num += value
	case Ratio:
		if total <= 0 {
			return fmt.Errorf("%w: ratio total must be positive, got %v", ErrBadUpdate, total)
		}
		if value > total {
			return fmt.Errorf("%w: ratio value %v exceeds total %v", ErrBadUpdate, value, total)
		}
		r.num += value
		r.total += total
	case Float:
		r.num = value
	case String:
		return fmt.Errorf("%w: string result %q takes UpdateString", ErrBadUpdate, r.Name)
	default:
		return fmt.Errorf("%w: unknown update type %v", ErrBadUpdate, r.typ)
	}
	r.updates++
	return nil
}

// UpdateString records a string observation, replacing the previous
// one. Only valid for String results.
func (r *Result) UpdateString(s string) error {
	if r.typ != String {
		return fmt.Errorf("%w: %v result %q takes Update", ErrBadUpdate, r.typ, r.Name)
	}
	r.str = s
	r.updates++
	return nil
}

// Merge folds other into r. Both must have the same name and update
// type; String results cannot be merged. Sum and Ratio accumulate,
// Float keeps the other's (most recent) value.
func (r *Result) Merge(other *Result) error {
	if r.Name != other.Name || r.typ != other.typ {
		return fmt.Errorf("%w: cannot merge %q (%v) with %q (%v)",
			ErrIncompatibleResult, r.Name, r.typ, other.Name, other.typ)
	}
	switch r.typ {
	case Sum:
		r.num += other.num
	case Ratio:
		r.num += other.num
		r.total += other.total
	case Float:
		r.num = other.num
	case String:
		return fmt.Errorf("%w: string results cannot be merged", ErrIncompatibleResult)
	}
	r.updates += other.updates
	return nil
}

// Value returns the current result value: a float64 for numeric types
// (the quotient for Ratio) and a string for String results. A Ratio
// with no updates reports 0.
func (r *Result) Value() any {
	switch r.typ {
	case Ratio:
		if r.total == 0 {
			return 0.0
		}
		return r.num / r.total
	case String:
		return r.str
	default:
		return r.num
	}
}

// Float returns the numeric value of a Sum, Ratio or Float result, 0
// for a String result.
func (r *Result) Float() float64 {
	if v, ok := r.Value().(float64); ok {
		return v
	}
	return 0
}

// String implements fmt.Stringer.
func (r *Result) String() string {
	if r.typ == Ratio {
		return fmt.Sprintf("Result %s: %v/%v -> %v", r.Name, r.num, r.total, r.Value())
	}
	return fmt.Sprintf("Result %s: %v", r.Name, r.Value())
}

// Results collects named results from a simulation. Each name maps to a
// list so that repeated Append calls can keep one entry per parameter
// point while MergeAll folds repetitions into the most recent entry.
type Results struct {
	results map[string][]*Result
}

// NewResults returns an empty collection.
func NewResults() *Results {
	return &Results{results: make(map[string][]*Result)}
}

// Add stores r as the only entry for its name, replacing any previous
// list.
func (rs *Results) Add(r *Result) {
	rs.results[r.Name] = []*Result{r}
}

// Append adds r at the end of the list for its name.
func (rs *Results) Append(r *Result) {
	rs.results[r.Name] = append(rs.results[r.Name], r)
}

// AppendAll appends every result of other into rs.
func (rs *Results) AppendAll(other *Results) {
	for _, name := range other.Names() {
		for _, r := range other.results[name] {
			rs.Append(r)
		}
	}
}

// MergeAll folds other into rs. An empty rs adopts other's lists;
// otherwise the last entry of every name in rs is merged with the last
// entry of the same name in other.
func (rs *Results) MergeAll(other *Results) error {
	if rs.Len() == 0 {
		for _, name := range other.Names() {
			rs.results[name] = other.results[name]
		}
		return nil
	}
	for name, list := range rs.results {
		otherList, ok := other.results[name]
		if !ok || len(otherList) == 0 {
			return fmt.Errorf("%w: result %q missing from merge source", ErrIncompatibleResult, name)
		}
		if err := list[len(list)-1].Merge(otherList[len(otherList)-1]); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the stored result names in sorted order.
func (rs *Results) Names() []string {
	names := make([]string, 0, len(rs.results))
	for name := range rs.results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the list of results stored under name, nil if absent.
func (rs *Results) Get(name string) []*Result {
	return rs.results[name]
}

// Last returns the most recent result stored under name, nil if absent.
func (rs *Results) Last(name string) *Result {
	list := rs.results[name]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// Values returns the values of every result stored under name.
func (rs *Results) Values(name string) []any {
	list := rs.results[name]
	out := make([]any, len(list))
	for i, r := range list {
		out[i] = r.Value()
	}
	return out
}

// Len returns the number of distinct result names.
func (rs *Results) Len() int { return len(rs.results) }
