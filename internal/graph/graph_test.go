package graph

import (
	"testing"
)

func TestUpsertAndGet(t *testing.T) {
	g := New()
	if err := g.Upsert("Warfarin", "Aspirin", "increased bleeding risk"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	cond, ok := g.Get("Warfarin", "Aspirin")
	if !ok {
		t.Fatal("expected interaction to exist")
	}
	if cond != "increased bleeding risk" {
		t.Errorf("expected condition 'increased bleeding risk', got %q", cond)
	}
}

func TestGetIsSymmetric(t *testing.T) {
	g := New()
	if err := g.Upsert("Warfarin", "Aspirin", "increased bleeding risk"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	forward, okF := g.Get("Warfarin", "Aspirin")
	reverse, okR := g.Get("Aspirin", "Warfarin")
	if !okF || !okR {
		t.Fatal("expected interaction in both directions")
	}
	if forward != reverse {
		t.Errorf("asymmetric result: %q vs %q", forward, reverse)
	}
}

func TestGetNormalizesNames(t *testing.T) {
	g := New()
	if err := g.Upsert("Warfarin", "Aspirin", "increased bleeding risk"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	variants := []string{"warfarin", "WARFARIN", "  Warfarin  ", "WaRfArIn"}
	for _, v := range variants {
		if _, ok := g.Get(v, "aspirin"); !ok {
			t.Errorf("lookup with variant %q failed", v)
		}
	}
}

func TestUpsertLastWriteWins(t *testing.T) {
	g := New()
	if err := g.Upsert("Warfarin", "Aspirin", "first"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := g.Upsert("aspirin", "WARFARIN", "second"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	cond, ok := g.Get("Warfarin", "Aspirin")
	if !ok {
		t.Fatal("expected interaction to exist")
	}
	if cond != "second" {
		t.Errorf("expected last write to win, got %q", cond)
	}

	stats := g.Stats()
	if stats.Drugs != 2 {
		t.Errorf("expected 2 drugs, got %d", stats.Drugs)
	}
	if stats.Interactions != 1 {
		t.Errorf("expected 1 interaction, got %d", stats.Interactions)
	}
}

func TestUpsertKeepsFirstDisplayName(t *testing.T) {
	g := New()
	if err := g.Upsert("Warfarin", "Aspirin", "a"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := g.Upsert("WARFARIN", "Ibuprofen", "b"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	names := g.Names()
	for _, n := range names {
		if n == "WARFARIN" {
			t.Errorf("expected first-seen display name to be kept, got %v", names)
		}
	}
}

func TestUpsertValidation(t *testing.T) {
	g := New()
	if err := g.Upsert("", "Aspirin", "x"); err == nil {
		t.Error("expected error for empty first name")
	}
	if err := g.Upsert("Warfarin", "   ", "x"); err == nil {
		t.Error("expected error for blank second name")
	}
	if err := g.Upsert("Warfarin", "Aspirin", ""); err == nil {
		t.Error("expected error for empty condition")
	}
}

func TestGetUnknownDrug(t *testing.T) {
	g := New()
	if err := g.Upsert("Warfarin", "Aspirin", "x"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if _, ok := g.Get("Warfarin", "Ibuprofen"); ok {
		t.Error("expected no interaction with unknown drug")
	}
	if _, ok := g.Get("Metformin", "Lisinopril"); ok {
		t.Error("expected no interaction between unknown drugs")
	}
}

func TestInteractionsFor(t *testing.T) {
	g := New()
	mustUpsert(t, g, "Warfarin", "Aspirin", "increased bleeding risk")
	mustUpsert(t, g, "Warfarin", "Ibuprofen", "GI bleeding")
	mustUpsert(t, g, "Aspirin", "Ibuprofen", "reduced cardioprotection")

	got := g.InteractionsFor("warfarin")
	if len(got) != 2 {
		t.Fatalf("expected 2 interactions, got %d", len(got))
	}
	seen := map[string]string{}
	for _, in := range got {
		seen[in.Drug] = in.Condition
	}
	if seen["Aspirin"] != "increased bleeding risk" {
		t.Errorf("unexpected Aspirin condition: %q", seen["Aspirin"])
	}
	if seen["Ibuprofen"] != "GI bleeding" {
		t.Errorf("unexpected Ibuprofen condition: %q", seen["Ibuprofen"])
	}
}

func TestInteractionsForUnknownDrug(t *testing.T) {
	g := New()
	got := g.InteractionsFor("nonexistent")
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no interactions, got %d", len(got))
	}
}

func TestSelfLoop(t *testing.T) {
	g := New()
	mustUpsert(t, g, "Warfarin", "Warfarin", "duplicate therapy")

	cond, ok := g.Get("Warfarin", "Warfarin")
	if !ok || cond != "duplicate therapy" {
		t.Fatalf("expected self-interaction, got %q ok=%v", cond, ok)
	}
	got := g.InteractionsFor("Warfarin")
	if len(got) != 1 {
		t.Errorf("expected self-loop to appear once, got %d entries", len(got))
	}
}

func TestRecords(t *testing.T) {
	g := New()
	mustUpsert(t, g, "Warfarin", "Aspirin", "a")
	mustUpsert(t, g, "Warfarin", "Ibuprofen", "b")

	recs := g.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Drug1 == "" || r.Drug2 == "" || r.Condition == "" {
			t.Errorf("incomplete record: %+v", r)
		}
	}
}

func TestReplaceAll(t *testing.T) {
	g := New()
	mustUpsert(t, g, "Old1", "Old2", "stale")

	err := g.ReplaceAll(g.Records())
	if err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	original := g.Records()

	err = g.ReplaceAll(nil)
	if err != nil {
		t.Fatalf("ReplaceAll with empty set failed: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("expected empty graph, got %d edges", g.Len())
	}

	err = g.ReplaceAll(original)
	if err != nil {
		t.Fatalf("ReplaceAll restore failed: %v", err)
	}
	if cond, ok := g.Get("Old1", "Old2"); !ok || cond != "stale" {
		t.Errorf("expected restored edge, got %q ok=%v", cond, ok)
	}
}

func mustUpsert(t *testing.T, g *Graph, d1, d2, cond string) {
	t.Helper()
	if err := g.Upsert(d1, d2, cond); err != nil {
		t.Fatalf("Upsert(%q, %q, %q) failed: %v", d1, d2, cond, err)
	}
}
