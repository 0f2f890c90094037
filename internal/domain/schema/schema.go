// Package schema defines the closed, typed set of filterable metadata fields.
//
// Arbitrary key-value metadata from upstream sources is deliberately not
// filterable: only fields enumerated here can appear in a filter, which lets
// every layer validate filter specs instead of passing typos through to the
// index.
package schema

import (
	"fmt"
	"time"
)

// Type is the declared type of a metadata field.
type Type string

const (
	// Tag is an exact-match string field (ticker symbols, form types).
	Tag Type = "tag"
	// Numeric is a range-filterable float field.
	Numeric Type = "numeric"
	// Date is a range-filterable date field, indexed as epoch seconds at
	// midnight UTC.
	Date Type = "date"
)

// Well-known field names of the financial corpus schema.
const (
	FieldTicker    = "ticker"
	FieldFormType  = "form_type"
	FieldDocType   = "doc_type"
	FieldSource    = "source"
	FieldFiledDate = "filed_date"
)

// Metadata keys carried on chunks for citation purposes. They are not
// filterable fields.
const (
	TagDocumentID = "doc_id"
	TagSourceName = "source_name"
)

// Field is a named, typed metadata field.
type Field struct {
	name  string
	ftype Type
}

// NewField validates and creates a field.
func NewField(name string, t Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	switch t {
	case Tag, Numeric, Date:
	default:
		return Field{}, fmt.Errorf("invalid field type %q", t)
	}
	return Field{name: name, ftype: t}, nil
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the declared type.
func (f Field) FieldType() Type { return f.ftype }

// Schema is an ordered set of fields with unique names.
type Schema struct {
	fields []Field
	byName map[string]Field
}

// New validates and creates a schema.
func New(fields ...Field) (Schema, error) {
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		if _, dup := byName[f.name]; dup {
			return Schema{}, fmt.Errorf("duplicate field %q", f.name)
		}
		byName[f.name] = f
	}
	return Schema{fields: fields, byName: byName}, nil
}

// Default returns the financial corpus schema shared by all collections.
func Default() Schema {
	fields := []Field{
		{name: FieldTicker, ftype: Tag},
		{name: FieldFormType, ftype: Tag},
		{name: FieldDocType, ftype: Tag},
		{name: FieldSource, ftype: Tag},
		{name: FieldFiledDate, ftype: Date},
	}
	s, err := New(fields...)
	if err != nil {
		panic(err) // static field list, cannot fail
	}
	return s
}

// Fields returns the fields in declaration order.
func (s Schema) Fields() []Field { return s.fields }

// FieldByName looks up a field.
func (s Schema) FieldByName(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// DateField returns the first date-typed field, if any.
func (s Schema) DateField() (Field, bool) {
	for _, f := range s.fields {
		if f.ftype == Date {
			return f, true
		}
	}
	return Field{}, false
}

// EpochSeconds converts an ISO date string (YYYY-MM-DD) to epoch seconds at
// midnight UTC, the representation date fields are indexed under.
func EpochSeconds(isoDate string) (float64, error) {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", isoDate, err)
	}
	return float64(t.Unix()), nil
}
