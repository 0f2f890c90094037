package filter

import (
	"fmt"
	"strings"

	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/schema"
)

// Spec keys understood by Compile. date_from/date_to are virtual: they
// compile into a single range condition on the schema's date field.
const (
	SpecDateFrom = "date_from"
	SpecDateTo   = "date_to"
)

// Compile translates a raw filter specification (field name → value) into a
// Filter validated against the schema.
//
// Lenient mode (strict=false) drops unknown fields and malformed values,
// returning their names as diagnostics: over-constraining on a typo'd field
// would silently return zero results, a worse failure mode than ignoring it.
// Strict mode turns the first such field into a configuration error.
func Compile(spec map[string]string, sch schema.Schema, strict bool) (Filter, []string, error) {
	if len(spec) == 0 {
		return Filter{}, nil, nil
	}

	var conditions []Condition
	var dropped []string

	dateFrom, dateTo := "", ""

	// Deterministic condition order regardless of map iteration.
	for _, f := range sch.Fields() {
		value, ok := spec[f.Name()]
		if !ok {
			continue
		}
		cond, err := compileField(f, value)
		if err != nil {
			if strict {
				return Filter{}, nil, fmt.Errorf("field %q: %w", f.Name(), err)
			}
			dropped = append(dropped, f.Name())
			continue
		}
		conditions = append(conditions, cond)
	}

	for key, value := range spec {
		switch key {
		case SpecDateFrom:
			dateFrom = value
		case SpecDateTo:
			dateTo = value
		default:
			if _, known := sch.FieldByName(key); !known {
				if strict {
					return Filter{}, nil, domain.NewUnknownField(key)
				}
				dropped = append(dropped, key)
			}
		}
	}

	if dateFrom != "" || dateTo != "" {
		cond, err := compileDateRange(sch, dateFrom, dateTo)
		if err != nil {
			if strict {
				return Filter{}, nil, err
			}
			dropped = append(dropped, schema.FieldFiledDate)
		} else {
			conditions = append(conditions, cond)
		}
	}

	f, err := New(conditions)
	if err != nil {
		return Filter{}, nil, err
	}
	return f, dropped, nil
}

func compileField(f schema.Field, value string) (Condition, error) {
	switch f.FieldType() {
	case schema.Tag:
		if strings.Contains(value, ",") {
			values := splitSetValues(value)
			if len(values) == 0 {
				return Condition{}, fmt.Errorf("empty set value")
			}
			return NewSet(f.Name(), values)
		}
		return NewMatch(f.Name(), value)
	case schema.Date:
		// A bare date on a date field means exact-day match.
		lo, err := schema.EpochSeconds(value)
		if err != nil {
			return Condition{}, err
		}
		hi := lo + 86399 // end of the same UTC day
		r, err := NewRangeBounds(&lo, &hi)
		if err != nil {
			return Condition{}, err
		}
		return NewRange(f.Name(), r)
	case schema.Numeric:
		return Condition{}, fmt.Errorf("numeric field %q requires %s/%s bounds",
			f.Name(), SpecDateFrom, SpecDateTo)
	}
	return Condition{}, fmt.Errorf("unsupported field type %q", f.FieldType())
}

// compileDateRange builds an inclusive range on the schema's date field.
// A missing bound leaves that side open-ended.
func compileDateRange(sch schema.Schema, from, to string) (Condition, error) {
	dateField, ok := sch.DateField()
	if !ok {
		return Condition{}, fmt.Errorf("%w: schema has no date field for %s/%s",
			domain.ErrConfiguration, SpecDateFrom, SpecDateTo)
	}

	var gte, lte *float64
	if from != "" {
		v, err := schema.EpochSeconds(from)
		if err != nil {
			return Condition{}, err
		}
		gte = &v
	}
	if to != "" {
		v, err := schema.EpochSeconds(to)
		if err != nil {
			return Condition{}, err
		}
		end := v + 86399 // include the whole end day
		lte = &end
	}

	r, err := NewRangeBounds(gte, lte)
	if err != nil {
		return Condition{}, err
	}
	return NewRange(dateField.Name(), r)
}

func splitSetValues(value string) []string {
	parts := strings.Split(value, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
