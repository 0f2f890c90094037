// Package query defines the structured output of query parsing.
package query

// BooleanOp is a detected boolean connective.
type BooleanOp string

const (
	// And connects the surrounding terms conjunctively.
	And BooleanOp = "AND"
	// Or connects the surrounding terms disjunctively.
	Or BooleanOp = "OR"
	// Not marks the following term as excluded.
	Not BooleanOp = "NOT"
)

// BooleanTerm records a connective and the term it applies to. Boolean terms
// are advisory: they inform lexical scoring but are not enforced as query
// semantics.
type BooleanTerm struct {
	op   BooleanOp
	term string
}

// NewBooleanTerm creates a boolean term record.
func NewBooleanTerm(op BooleanOp, term string) BooleanTerm {
	return BooleanTerm{op: op, term: term}
}

// Op returns the connective.
func (b BooleanTerm) Op() BooleanOp { return b.op }

// Term returns the affected term (may be empty for a trailing connective).
func (b BooleanTerm) Term() string { return b.term }

// Parsed is the result of parsing a raw query string.
type Parsed struct {
	text       string
	terms      []string
	boolTerms  []BooleanTerm
	filterSpec map[string]string
}

// New creates a parsed query.
func New(text string, terms []string, boolTerms []BooleanTerm, filterSpec map[string]string) Parsed {
	return Parsed{text: text, terms: terms, boolTerms: boolTerms, filterSpec: filterSpec}
}

// Text returns the cleaned query text bound for embedding. Stop words are
// retained: embedding models are trained on natural language.
func (p Parsed) Text() string { return p.text }

// Terms returns the lowercased lexical matching terms, stop words stripped.
func (p Parsed) Terms() []string { return p.terms }

// BooleanTerms returns the detected boolean connectives in query order.
func (p Parsed) BooleanTerms() []BooleanTerm { return p.boolTerms }

// FilterSpec returns the inline filter fields extracted from the query.
func (p Parsed) FilterSpec() map[string]string { return p.filterSpec }

// ExcludedTerms returns terms marked with NOT, lowercased.
func (p Parsed) ExcludedTerms() []string {
	var excluded []string
	for _, b := range p.boolTerms {
		if b.op == Not && b.term != "" {
			excluded = append(excluded, b.term)
		}
	}
	return excluded
}
