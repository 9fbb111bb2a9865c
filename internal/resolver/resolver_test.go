package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/vector"
)

func testIndex(t *testing.T, emb embedding.Embedder, names ...string) vector.Index {
	t.Helper()
	ctx := context.Background()
	records, err := vector.Build(ctx, names, emb)
	if err != nil {
		t.Fatalf("failed to build records: %v", err)
	}
	idx, err := vector.NewLinearIndex(records)
	if err != nil {
		t.Fatalf("failed to build index: %v", err)
	}
	return idx
}

func testResolver(t *testing.T, names ...string) *Resolver {
	t.Helper()
	emb := embedding.NewMockEmbedder(32)
	return NewResolver(emb, testIndex(t, emb, names...), 25, nil)
}

func TestResolveExactMatch(t *testing.T) {
	r := testResolver(t, "Warfarin", "Aspirin", "Ibuprofen")

	// Exact normalized matches succeed regardless of threshold.
	for _, input := range []string{"Warfarin", "warfarin", "  WARFARIN  "} {
		got, ok, err := r.Resolve(context.Background(), input, 0.999)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", input, err)
		}
		if !ok || got != "Warfarin" {
			t.Errorf("Resolve(%q) = %q ok=%v, want Warfarin", input, got, ok)
		}
	}
}

func TestResolveSimilarityMatch(t *testing.T) {
	r := testResolver(t, "Warfarin", "Aspirin")

	// With threshold 0 the nearest vocabulary entry always wins, even for an
	// input that is not in the vocabulary.
	got, ok, err := r.Resolve(context.Background(), "warfarin sodium", 0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a match at threshold 0")
	}
	if got != "Warfarin" && got != "Aspirin" {
		t.Errorf("expected a vocabulary name, got %q", got)
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := testResolver(t, "Warfarin", "Aspirin")

	got, ok, err := r.Resolve(context.Background(), "completely unrelated input text", 0.999)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ok {
		t.Errorf("expected no match at near-1 threshold, got %q", got)
	}
	if got != "" {
		t.Errorf("expected empty result on miss, got %q", got)
	}
}

func TestResolveUnavailable(t *testing.T) {
	r := NewResolver(nil, nil, 25, nil)
	if r.IsAvailable() {
		t.Error("expected resolver without index to be unavailable")
	}

	_, _, err := r.Resolve(context.Background(), "Warfarin", 0.7)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	_, err = r.Suggest(context.Background(), "Warfarin", 0.5, 5)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from Suggest, got %v", err)
	}
}

func TestResolveValidation(t *testing.T) {
	r := testResolver(t, "Warfarin")

	if _, _, err := r.Resolve(context.Background(), "   ", 0.7); err == nil {
		t.Error("expected error for blank name")
	}
	if _, _, err := r.Resolve(context.Background(), "Warfarin", 1.5); err == nil {
		t.Error("expected error for threshold above 1")
	}
	if _, err := r.Suggest(context.Background(), "Warfarin", 0.5, -3); err == nil {
		t.Error("expected error for negative topK")
	}
}

func TestSuggestOrderingAndThreshold(t *testing.T) {
	r := testResolver(t, "Warfarin", "Aspirin", "Ibuprofen", "Metformin")

	all, err := r.Suggest(context.Background(), "warfarin", 0, 10)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 candidates at threshold 0, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Score > all[i-1].Score {
			t.Errorf("candidates not sorted: %v", all)
		}
	}
	if all[0].Name != "Warfarin" {
		t.Errorf("expected exact name to score highest, got %q", all[0].Name)
	}

	// Raising the threshold can only shrink the candidate set.
	strict, err := r.Suggest(context.Background(), "warfarin", 0.9, 10)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(strict) > len(all) {
		t.Errorf("higher threshold returned more candidates: %d > %d", len(strict), len(all))
	}
	for _, m := range strict {
		if m.Score < 0.9 {
			t.Errorf("candidate %q below threshold: %f", m.Name, m.Score)
		}
	}
}

func TestSuggestCapsTopK(t *testing.T) {
	emb := embedding.NewMockEmbedder(32)
	idx := testIndex(t, emb, "A", "B", "C", "D", "E")
	r := NewResolver(emb, idx, 2, nil)

	got, err := r.Suggest(context.Background(), "A", 0, 100)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(got) > 2 {
		t.Errorf("expected topK capped at 2, got %d", len(got))
	}
}

func TestResolveMany(t *testing.T) {
	r := testResolver(t, "Warfarin", "Aspirin")

	got, err := r.ResolveMany(context.Background(), []string{"warfarin", "ASPIRIN"}, 0.7)
	if err != nil {
		t.Fatalf("ResolveMany failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(got))
	}
	if !got[0].Matched || got[0].Resolved != "Warfarin" {
		t.Errorf("unexpected first resolution: %+v", got[0])
	}
	if !got[1].Matched || got[1].Resolved != "Aspirin" {
		t.Errorf("unexpected second resolution: %+v", got[1])
	}
}

func TestSwap(t *testing.T) {
	emb := embedding.NewMockEmbedder(32)
	r := NewResolver(emb, nil, 25, nil)
	if r.IsAvailable() {
		t.Fatal("expected unavailable before swap")
	}

	r.Swap(testIndex(t, emb, "Warfarin"))
	if !r.IsAvailable() {
		t.Fatal("expected available after swap")
	}
	if !r.Known("  WARFARIN ") {
		t.Error("expected Warfarin to be known after swap")
	}
	if r.Known("Metformin") {
		t.Error("did not expect Metformin to be known")
	}
	got, ok, err := r.Resolve(context.Background(), "warfarin", 0.7)
	if err != nil || !ok || got != "Warfarin" {
		t.Errorf("Resolve after swap = %q ok=%v err=%v", got, ok, err)
	}
}

func TestNullResolver(t *testing.T) {
	n := NewNullResolver()
	if n.IsAvailable() {
		t.Error("expected null resolver to report unavailable")
	}

	got, ok, err := n.Resolve(context.Background(), "  Warfarin  ", 0.7)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ok || got != "Warfarin" {
		t.Errorf("expected trimmed echo, got %q ok=%v", got, ok)
	}

	if _, _, err := n.Resolve(context.Background(), "", 0.7); err == nil {
		t.Error("expected error for empty name")
	}

	suggestions, err := n.Suggest(context.Background(), "Warfarin", 0.5, 5)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(suggestions) != 0 {
		t.Errorf("expected no suggestions, got %d", len(suggestions))
	}
}
