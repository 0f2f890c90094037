package retrieve

import (
	"sort"

	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
)

// fuse merges per-collection candidate batches into one globally ordered
// list. Scores are already normalized to a shared [0,1] base, so after the
// per-collection weight multiplier a single global sort suffices.
//
// Ordering is fully deterministic: equal final scores break by chunk ID,
// then collection name. Unstable ordering would degrade citation
// reproducibility for users re-running the same query.
func fuse(batches [][]candidate.Candidate, opts Options) []candidate.Candidate {
	var total int
	for _, b := range batches {
		total += len(b)
	}

	merged := make([]candidate.Candidate, 0, total)
	for _, batch := range batches {
		for _, c := range batch {
			w := opts.collectionWeight(c.Collection())
			merged = append(merged, c.WithFinal(c.Final()*w))
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Final() != merged[j].Final() {
			return merged[i].Final() > merged[j].Final()
		}
		if merged[i].Chunk().ID() != merged[j].Chunk().ID() {
			return merged[i].Chunk().ID() < merged[j].Chunk().ID()
		}
		return merged[i].Collection() < merged[j].Collection()
	})

	return merged
}
