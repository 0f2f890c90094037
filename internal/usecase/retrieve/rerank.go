package retrieve

import (
	"sort"
	"strings"
	"unicode"

	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
)

// normalizeBatch maps one collection's raw distances onto a [0,1] relevance
// scale via min-max normalization within the batch: the most distant
// candidate maps to 0, the nearest to 1. Raw distances are never compared
// across collections; only the relative order within a batch is assumed
// meaningful. A batch with a single distance value maps wholly to 1.
func normalizeBatch(batch []candidate.Candidate) []candidate.Candidate {
	if len(batch) == 0 {
		return batch
	}

	best, worst := batch[0].Distance(), batch[0].Distance()
	for _, c := range batch[1:] {
		if c.Distance() < best {
			best = c.Distance()
		}
		if c.Distance() > worst {
			worst = c.Distance()
		}
	}

	out := make([]candidate.Candidate, len(batch))
	spread := worst - best
	for i, c := range batch {
		if spread == 0 {
			out[i] = c.WithNormalized(1)
			continue
		}
		out[i] = c.WithNormalized((worst - c.Distance()) / spread)
	}
	return out
}

// rerankBatch combines the normalized similarity with a lexical overlap
// signal. Pure vector similarity under-weights exact keyword matches (a
// query mentioning AAPL should strongly prefer chunks that literally contain
// "AAPL") and the cheap lexical signal corrects that without a cross-encoder
// model.
//
// When the lexical signal cannot be computed (no query terms, empty chunk
// text) the candidate keeps its similarity-only score and is not dropped.
// Ties keep the original similarity rank: the input arrives in rank order
// and the sort is stable.
func rerankBatch(batch []candidate.Candidate, terms []string, simW, lexW float64) []candidate.Candidate {
	out := make([]candidate.Candidate, len(batch))
	for i, c := range batch {
		lex, ok := lexicalOverlap(terms, c.Chunk().Text())
		if !ok {
			out[i] = c.WithFinal(c.Normalized())
			continue
		}
		out[i] = c.WithLexical(lex).WithFinal(simW*c.Normalized() + lexW*lex)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Final() > out[j].Final()
	})
	return out
}

// lexicalOverlap scores the fraction of query terms literally present in the
// chunk text. Returns ok=false when either side has nothing to match.
func lexicalOverlap(terms []string, text string) (float64, bool) {
	if len(terms) == 0 || text == "" {
		return 0, false
	}

	words := make(map[string]struct{})
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words[strings.ToLower(current.String())] = struct{}{}
			current.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	matched := 0
	for _, t := range terms {
		if _, ok := words[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms)), true
}
