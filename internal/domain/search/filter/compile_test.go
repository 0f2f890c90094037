package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/finquery-labs/finrag/internal/domain"
	"github.com/finquery-labs/finrag/internal/domain/schema"
)

func TestCompile_TagAndSet(t *testing.T) {
	sch := schema.Default()

	f, dropped, err := Compile(map[string]string{
		"ticker":    "AAPL",
		"form_type": "10-K,10-Q",
	}, sch, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(dropped) != 0 {
		t.Errorf("dropped: %v", dropped)
	}

	conds := f.Conditions()
	if len(conds) != 2 {
		t.Fatalf("conditions: got %d, want 2", len(conds))
	}
	// Schema declaration order: ticker before form_type.
	if conds[0].Key() != schema.FieldTicker || conds[0].Match() != "AAPL" {
		t.Errorf("cond 0: %q=%q", conds[0].Key(), conds[0].Match())
	}
	if conds[1].Key() != schema.FieldFormType || !reflect.DeepEqual(conds[1].Set(), []string{"10-K", "10-Q"}) {
		t.Errorf("cond 1: %q set %v", conds[1].Key(), conds[1].Set())
	}
}

func TestCompile_DateRange(t *testing.T) {
	sch := schema.Default()

	f, _, err := Compile(map[string]string{
		SpecDateFrom: "2023-01-01",
		SpecDateTo:   "2023-06-30",
	}, sch, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	conds := f.Conditions()
	if len(conds) != 1 {
		t.Fatalf("conditions: got %d, want 1", len(conds))
	}
	cond := conds[0]
	if cond.Key() != schema.FieldFiledDate || !cond.IsRange() {
		t.Fatalf("expected range on %s, got %+v", schema.FieldFiledDate, cond)
	}

	from, err := schema.EpochSeconds("2023-01-01")
	if err != nil {
		t.Fatalf("EpochSeconds: %v", err)
	}
	to, err := schema.EpochSeconds("2023-06-30")
	if err != nil {
		t.Fatalf("EpochSeconds: %v", err)
	}
	if got := *cond.Range().GTE(); got != from {
		t.Errorf("gte: got %v, want %v", got, from)
	}
	// Upper bound includes the whole end day.
	if got := *cond.Range().LTE(); got != to+86399 {
		t.Errorf("lte: got %v, want %v", got, to+86399)
	}
}

func TestCompile_BareDateMeansWholeDay(t *testing.T) {
	sch := schema.Default()

	f, _, err := Compile(map[string]string{schema.FieldFiledDate: "2023-03-15"}, sch, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	conds := f.Conditions()
	if len(conds) != 1 || !conds[0].IsRange() {
		t.Fatalf("expected one range condition, got %+v", conds)
	}
	day, err := schema.EpochSeconds("2023-03-15")
	if err != nil {
		t.Fatalf("EpochSeconds: %v", err)
	}
	if *conds[0].Range().GTE() != day || *conds[0].Range().LTE() != day+86399 {
		t.Errorf("day bounds: [%v %v]", *conds[0].Range().GTE(), *conds[0].Range().LTE())
	}
}

func TestCompile_UnknownField(t *testing.T) {
	sch := schema.Default()

	t.Run("lenient drops with diagnostic", func(t *testing.T) {
		f, dropped, err := Compile(map[string]string{
			"ticker": "AAPL",
			"cik":    "0000320193",
		}, sch, false)
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if !reflect.DeepEqual(dropped, []string{"cik"}) {
			t.Errorf("dropped: got %v, want [cik]", dropped)
		}
		if len(f.Conditions()) != 1 {
			t.Errorf("known field must survive, got %d conditions", len(f.Conditions()))
		}
	})

	t.Run("strict raises configuration error", func(t *testing.T) {
		_, _, err := Compile(map[string]string{"cik": "0000320193"}, sch, true)
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
		var ufe *domain.UnknownFieldError
		if !errors.As(err, &ufe) || ufe.Field != "cik" {
			t.Errorf("expected UnknownFieldError{cik}, got %v", err)
		}
	})
}

func TestCompile_MalformedDate(t *testing.T) {
	sch := schema.Default()

	_, dropped, err := Compile(map[string]string{SpecDateFrom: "not-a-date"}, sch, false)
	if err != nil {
		t.Fatalf("lenient mode must not error: %v", err)
	}
	if !reflect.DeepEqual(dropped, []string{schema.FieldFiledDate}) {
		t.Errorf("dropped: got %v", dropped)
	}

	if _, _, err := Compile(map[string]string{SpecDateFrom: "not-a-date"}, sch, true); err == nil {
		t.Error("strict mode should error on malformed date")
	}
}

func TestCompile_Empty(t *testing.T) {
	f, dropped, err := Compile(nil, schema.Default(), true)
	if err != nil || dropped != nil || !f.IsEmpty() {
		t.Errorf("empty spec: f=%+v dropped=%v err=%v", f, dropped, err)
	}
}
