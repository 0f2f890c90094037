// Package filter defines the conjunctive metadata filter applied before
// nearest-neighbor search.
package filter

import "fmt"

// MaxConditions is the maximum number of conditions in one filter.
const MaxConditions = 32

// Filter is an ordered conjunction of conditions over a chunk's metadata.
// OR-combination across fields is intentionally unsupported; boolean terms
// detected in query text are advisory and never reach the filter.
type Filter struct {
	conditions []Condition
}

// New validates and creates a filter.
func New(conditions []Condition) (Filter, error) {
	if len(conditions) > MaxConditions {
		return Filter{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Filter{conditions: conditions}, nil
}

// Conditions returns the conditions in declaration order.
func (f Filter) Conditions() []Condition { return f.conditions }

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool { return len(f.conditions) == 0 }

// Matches evaluates the filter as an in-memory predicate over a chunk's
// metadata. Drivers without a native query language (memory, bolt) call this
// during the scan so filtering happens before top-k truncation.
func (f Filter) Matches(tags map[string]string, numerics map[string]float64) bool {
	for _, c := range f.conditions {
		if !c.matches(tags, numerics) {
			return false
		}
	}
	return true
}

// Condition is a single filter clause: exact tag match, tag set membership,
// or numeric/date range.
type Condition struct {
	key       string
	match     string
	set       []string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewSet creates a tag set-membership condition (value in values).
func NewSet(key string, values []string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	return Condition{key: key, set: values}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Set returns the membership values.
func (c Condition) Set() []string { return c.set }

// Range returns the range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is an exact match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsSet reports whether this is a set-membership condition.
func (c Condition) IsSet() bool { return len(c.set) > 0 }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

func (c Condition) matches(tags map[string]string, numerics map[string]float64) bool {
	switch {
	case c.IsMatch():
		return tags[c.key] == c.match
	case c.IsSet():
		v, ok := tags[c.key]
		if !ok {
			return false
		}
		for _, want := range c.set {
			if v == want {
				return true
			}
		}
		return false
	case c.IsRange():
		v, ok := numerics[c.key]
		if !ok {
			return false
		}
		return c.rangeExpr.contains(v)
	}
	return false
}

// Range is an inclusive numeric range. A nil bound is open-ended.
type Range struct {
	gte *float64
	lte *float64
}

// NewRangeBounds validates and creates a Range. At least one bound is required.
func NewRangeBounds(gte, lte *float64) (Range, error) {
	if gte == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range bound is required")
	}
	if gte != nil && lte != nil && *gte > *lte {
		return Range{}, fmt.Errorf("range lower bound %v exceeds upper bound %v", *gte, *lte)
	}
	return Range{gte: gte, lte: lte}, nil
}

// GTE returns the inclusive lower bound.
func (r Range) GTE() *float64 { return r.gte }

// LTE returns the inclusive upper bound.
func (r Range) LTE() *float64 { return r.lte }

func (r Range) contains(v float64) bool {
	if r.gte != nil && v < *r.gte {
		return false
	}
	if r.lte != nil && v > *r.lte {
		return false
	}
	return true
}
