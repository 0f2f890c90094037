package retrieve

import (
	"testing"

	"github.com/finquery-labs/finrag/internal/domain/search/candidate"
)

func TestFuse_GlobalDescendingOrder(t *testing.T) {
	batches := [][]candidate.Candidate{
		{
			newCand(t, "f1", "", "sec_filings", 0, 0).WithFinal(0.9),
			newCand(t, "f2", "", "sec_filings", 1, 0).WithFinal(0.4),
		},
		{
			newCand(t, "n1", "", "news", 0, 0).WithFinal(0.7),
		},
	}

	out := fuse(batches, Options{})
	wantOrder := []string{"f1", "n1", "f2"}
	if len(out) != len(wantOrder) {
		t.Fatalf("fused: got %d, want %d", len(out), len(wantOrder))
	}
	for i, want := range wantOrder {
		if out[i].Chunk().ID() != want {
			t.Errorf("position %d: got %q, want %q", i, out[i].Chunk().ID(), want)
		}
	}
}

func TestFuse_CollectionWeights(t *testing.T) {
	batches := [][]candidate.Candidate{
		{newCand(t, "f1", "", "sec_filings", 0, 0).WithFinal(0.6)},
		{newCand(t, "n1", "", "news", 0, 0).WithFinal(0.7)},
	}
	opts := Options{CollectionWeights: map[string]float64{"news": 0.8}}

	// news 0.7*0.8 = 0.56 drops below filings 0.6*1.0.
	out := fuse(batches, opts)
	if out[0].Chunk().ID() != "f1" || out[1].Chunk().ID() != "n1" {
		t.Errorf("order: %s, %s", out[0].Chunk().ID(), out[1].Chunk().ID())
	}
	if !approx(out[1].Final(), 0.56) {
		t.Errorf("weighted score: %v", out[1].Final())
	}
}

func TestFuse_TiesBreakByChunkIDThenCollection(t *testing.T) {
	batches := [][]candidate.Candidate{
		{newCand(t, "b", "", "news", 0, 0).WithFinal(0.5)},
		{newCand(t, "a", "", "stock_data", 0, 0).WithFinal(0.5)},
		{newCand(t, "a", "", "macro", 0, 0).WithFinal(0.5)},
	}

	out := fuse(batches, Options{})
	if out[0].Chunk().ID() != "a" || out[0].Collection() != "macro" {
		t.Errorf("first: %s/%s", out[0].Chunk().ID(), out[0].Collection())
	}
	if out[1].Chunk().ID() != "a" || out[1].Collection() != "stock_data" {
		t.Errorf("second: %s/%s", out[1].Chunk().ID(), out[1].Collection())
	}
	if out[2].Chunk().ID() != "b" {
		t.Errorf("third: %s", out[2].Chunk().ID())
	}
}

func TestFuse_Empty(t *testing.T) {
	if out := fuse(nil, Options{}); len(out) != 0 {
		t.Errorf("got %v", out)
	}
}
