// Package queryparse extracts inline filters, boolean connectives, and
// lexical terms from a raw natural-language query.
//
// Parsing is best-effort and never blocking: anything the parser cannot
// confidently interpret stays in the query text as plain words.
package queryparse

import (
	"regexp"
	"strings"

	"github.com/finquery-labs/finrag/internal/domain/search/query"
	"github.com/finquery-labs/finrag/internal/domain/schema"
)

// fieldToken matches an inline filter token: field:value, field: value, field=value.
var fieldToken = regexp.MustCompile(`^([A-Za-z_]+)[:=](.*)$`)

// fieldAliases maps inline filter keys the parser recognizes to spec keys.
// Unlisted keys are left in the query text untouched, so user text that
// merely contains a colon is never silently dropped.
var fieldAliases = map[string]string{
	"ticker":    schema.FieldTicker,
	"form":      schema.FieldFormType,
	"form_type": schema.FieldFormType,
	"type":      schema.FieldDocType,
	"doc_type":  schema.FieldDocType,
	"source":    schema.FieldSource,
	"from":      "date_from",
	"date_from": "date_from",
	"to":        "date_to",
	"date_to":   "date_to",
}

// dateKeys are spec keys whose values must parse as dates.
var dateKeys = map[string]bool{"date_from": true, "date_to": true}

// upperKeys are spec keys whose values are normalized to upper case
// (tickers and SEC form types are stored upper-cased at ingestion).
var upperKeys = map[string]bool{
	schema.FieldTicker:   true,
	schema.FieldFormType: true,
}

// booleanOps maps connective tokens to operators. Whole-word, case-insensitive.
var booleanOps = map[string]query.BooleanOp{
	"AND": query.And, "&": query.And,
	"OR": query.Or, "|": query.Or,
	"NOT": query.Not, "!": query.Not,
}

// Parser converts raw queries into query.Parsed values.
type Parser struct {
	stopwords map[string]struct{}
}

// New creates a parser.
func New() *Parser {
	return &Parser{stopwords: defaultStopwords()}
}

// Parse extracts a cleaned query text, a filter specification, boolean terms,
// and a lexical term list from raw. Recognized filter tokens and date phrases
// are stripped from the text; everything else is preserved in order.
func (p *Parser) Parse(raw string) query.Parsed {
	tokens := strings.Fields(raw)

	var textParts []string
	var boolTerms []query.BooleanTerm
	filters := make(map[string]string)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		// Date phrases: "from X to Y", "since X", "before Y".
		if consumed := p.parseDatePhrase(tokens, i, filters); consumed > 0 {
			i += consumed - 1
			continue
		}

		// Boolean connectives stay in the text (word order is preserved);
		// they are recorded with the term they apply to.
		if op, ok := booleanOps[strings.ToUpper(tok)]; ok {
			boolTerms = append(boolTerms, query.NewBooleanTerm(op, nextContentWord(tokens, i+1)))
			textParts = append(textParts, tok)
			continue
		}

		// Inline field:value filters.
		if consumed := p.parseFieldToken(tokens, i, filters); consumed > 0 {
			i += consumed - 1
			continue
		}

		textParts = append(textParts, tok)
	}

	if len(filters) == 0 {
		filters = nil
	}

	text := strings.Join(textParts, " ")
	terms := p.lexicalTerms(textParts)
	return query.New(text, terms, boolTerms, filters)
}

// parseFieldToken handles field:value / field= value tokens at position i.
// Returns the number of tokens consumed, 0 when the token is not a
// recognized filter.
func (p *Parser) parseFieldToken(tokens []string, i int, filters map[string]string) int {
	m := fieldToken.FindStringSubmatch(tokens[i])
	if m == nil {
		return 0
	}

	specKey, known := fieldAliases[strings.ToLower(m[1])]
	if !known {
		return 0
	}

	value := m[2]
	consumed := 1
	if value == "" {
		// "field: value" form, the value is the next token.
		if i+1 >= len(tokens) {
			return 0
		}
		value = tokens[i+1]
		consumed = 2
	}
	value = strings.Trim(value, ",.;")
	if value == "" {
		return 0
	}

	if dateKeys[specKey] {
		iso, ok := parseDateToken(value)
		if !ok {
			// Malformed date: leave the tokens in the text rather than raise.
			return 0
		}
		value = iso
	} else if upperKeys[specKey] {
		value = strings.ToUpper(value)
	}

	filters[specKey] = value
	return consumed
}

// parseDatePhrase handles "from X to Y", "since X", and "before Y" at
// position i. Returns the number of tokens consumed, 0 on no match.
func (p *Parser) parseDatePhrase(tokens []string, i int, filters map[string]string) int {
	switch strings.ToLower(tokens[i]) {
	case "from":
		if i+3 < len(tokens) && strings.EqualFold(tokens[i+2], "to") {
			from, okFrom := parseDateToken(strings.Trim(tokens[i+1], ",.;"))
			to, okTo := parseDateToken(strings.Trim(tokens[i+3], ",.;"))
			if okFrom && okTo {
				filters["date_from"] = from
				filters["date_to"] = to
				return 4
			}
		}
	case "since":
		if i+1 < len(tokens) {
			if from, ok := parseDateToken(strings.Trim(tokens[i+1], ",.;")); ok {
				filters["date_from"] = from
				return 2
			}
		}
	case "before":
		if i+1 < len(tokens) {
			if to, ok := parseDateToken(strings.Trim(tokens[i+1], ",.;")); ok {
				filters["date_to"] = to
				return 2
			}
		}
	}
	return 0
}

// lexicalTerms produces the lowercased matching term list from the retained
// text tokens. Stop words and connectives are stripped here only; the
// embedding-bound text keeps them.
func (p *Parser) lexicalTerms(textParts []string) []string {
	var terms []string
	for _, tok := range textParts {
		if _, isOp := booleanOps[strings.ToUpper(tok)]; isOp {
			continue
		}
		word := cleanWord(tok)
		if len(word) < 2 {
			continue
		}
		if _, stop := p.stopwords[word]; stop {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// nextContentWord returns the first following token that is not itself a
// connective, cleaned for term matching.
func nextContentWord(tokens []string, from int) string {
	for i := from; i < len(tokens); i++ {
		if _, isOp := booleanOps[strings.ToUpper(tokens[i])]; isOp {
			continue
		}
		if w := cleanWord(tokens[i]); w != "" {
			return w
		}
	}
	return ""
}

// cleanWord lowercases a token and trims surrounding punctuation.
func cleanWord(tok string) string {
	return strings.ToLower(strings.Trim(tok, `.,;:!?"'()[]{}`))
}
