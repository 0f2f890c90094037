package retrieve

import (
	"testing"

	"github.com/finquery-labs/finrag/internal/domain/chunk"
	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
)

func taggedCand(t *testing.T, id, collection string, final float64, tags map[string]string) candidate.Candidate {
	t.Helper()
	ch, err := chunk.New(id, "text of "+id, []float32{1, 0}, tags, nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return candidate.New(ch, collection, 0, 0).WithFinal(final)
}

func TestAssemble_DedupFirstWins(t *testing.T) {
	fused := []candidate.Candidate{
		taggedCand(t, "c1", "sec_filings", 0.9, nil),
		taggedCand(t, "c1", "news", 0.8, nil),
		taggedCand(t, "c2", "news", 0.7, nil),
	}

	set := assemble(fused, 10, nil)
	if set.Len() != 2 {
		t.Fatalf("results: got %d, want 2", set.Len())
	}
	first := set.Results()[0]
	if first.ChunkID() != "c1" || first.Citation().Collection() != "sec_filings" {
		t.Errorf("first occurrence must win: %s from %s",
			first.ChunkID(), first.Citation().Collection())
	}
	if first.Score() != 0.9 {
		t.Errorf("score: %v", first.Score())
	}
}

func TestAssemble_TrimsToTopK(t *testing.T) {
	fused := []candidate.Candidate{
		taggedCand(t, "c1", "news", 0.9, nil),
		taggedCand(t, "c2", "news", 0.8, nil),
		taggedCand(t, "c3", "news", 0.7, nil),
	}

	set := assemble(fused, 2, nil)
	if set.Len() != 2 {
		t.Fatalf("results: got %d, want 2", set.Len())
	}
	if set.Results()[0].ChunkID() != "c1" || set.Results()[1].ChunkID() != "c2" {
		t.Errorf("order: %s, %s", set.Results()[0].ChunkID(), set.Results()[1].ChunkID())
	}
}

func TestAssemble_Citations(t *testing.T) {
	tests := []struct {
		name       string
		tags       map[string]string
		wantDocID  string
		wantSource string
	}{
		{
			name: "explicit doc and source tags",
			tags: map[string]string{
				"doc_id":      "0000320193-23-000001",
				"source_name": "SEC EDGAR",
			},
			wantDocID:  "0000320193-23-000001",
			wantSource: "SEC EDGAR",
		},
		{
			name:       "source falls back to the source schema field",
			tags:       map[string]string{"doc_id": "d1", "source": "reuters"},
			wantDocID:  "d1",
			wantSource: "reuters",
		},
		{
			name:       "doc id falls back to chunk id",
			tags:       nil,
			wantDocID:  "c1",
			wantSource: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := assemble([]candidate.Candidate{
				taggedCand(t, "c1", "sec_filings", 0.5, tt.tags),
			}, 1, nil)

			cit := set.Results()[0].Citation()
			if cit.DocumentID() != tt.wantDocID {
				t.Errorf("document id: %q, want %q", cit.DocumentID(), tt.wantDocID)
			}
			if cit.SourceName() != tt.wantSource {
				t.Errorf("source: %q, want %q", cit.SourceName(), tt.wantSource)
			}
			if cit.Collection() != "sec_filings" {
				t.Errorf("collection: %q", cit.Collection())
			}
		})
	}
}

func TestAssemble_PartialCarriesFailedCollections(t *testing.T) {
	set := assemble(nil, 5, []string{"news"})
	if !set.Partial() {
		t.Error("expected partial set")
	}
	if len(set.FailedCollections()) != 1 || set.FailedCollections()[0] != "news" {
		t.Errorf("failed: %v", set.FailedCollections())
	}
}
