package retrieve

import (
	"github.com/finquery-labs/finrag/internal/domain/schema"
	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
	"github.com/finquery-labs/finrag/internal/domain/search/result"
)

// assemble produces the client-facing set from the fused candidate list:
// deduplicate by chunk ID (first occurrence wins, order preserved), trim to
// topK, attach citations. Near-duplicate chunks from the same document are
// not collapsed; citation granularity is per-chunk.
func assemble(fused []candidate.Candidate, topK int, failed []string) result.Set {
	seen := make(map[string]struct{}, topK)
	results := make([]result.Ranked, 0, topK)

	for _, c := range fused {
		if len(results) >= topK {
			break
		}
		id := c.Chunk().ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		results = append(results, result.NewRanked(
			id, c.Chunk().Text(), c.Final(), citationFor(c),
		))
	}

	return result.NewSet(results, failed)
}

func citationFor(c candidate.Candidate) result.Citation {
	ch := c.Chunk()

	docID := ch.Tag(schema.TagDocumentID)
	if docID == "" {
		docID = ch.ID()
	}

	source := ch.Tag(schema.TagSourceName)
	if source == "" {
		source = ch.Tag(schema.FieldSource)
	}

	return result.NewCitation(docID, source, c.Collection())
}
