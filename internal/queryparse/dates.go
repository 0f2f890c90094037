package queryparse

import "time"

// dateLayouts are the accepted date token forms, tried in order. All are
// normalized to ISO YYYY-MM-DD for the filter output.
var dateLayouts = []string{
	"2006-01-02", // ISO
	"01/02/2006", // US slash
	"1/2/2006",
}

// parseDateToken normalizes a date token to ISO form. Returns ok=false for
// anything unparseable; the caller leaves such tokens in the query text.
func parseDateToken(tok string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, tok); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
