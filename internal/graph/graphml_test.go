package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGraphMLRoundTrip(t *testing.T) {
	g := New()
	mustUpsert(t, g, "Warfarin", "Aspirin", "increased bleeding risk")
	mustUpsert(t, g, "Warfarin", "Ibuprofen", "GI bleeding")

	path := filepath.Join(t.TempDir(), "export", "graph.graphml")
	if err := g.SaveGraphML(path); err != nil {
		t.Fatalf("SaveGraphML failed: %v", err)
	}

	loaded, err := LoadGraphML(path)
	if err != nil {
		t.Fatalf("LoadGraphML failed: %v", err)
	}

	stats := loaded.Stats()
	if stats.Drugs != 3 {
		t.Errorf("expected 3 drugs, got %d", stats.Drugs)
	}
	if stats.Interactions != 2 {
		t.Errorf("expected 2 interactions, got %d", stats.Interactions)
	}
	cond, ok := loaded.Get("warfarin", "ASPIRIN")
	if !ok || cond != "increased bleeding risk" {
		t.Errorf("expected edge to survive round-trip, got %q ok=%v", cond, ok)
	}
}

func TestGraphMLPreservesDisplayNames(t *testing.T) {
	g := New()
	mustUpsert(t, g, "Co-Trimoxazole", "Warfarin", "potentiation")

	path := filepath.Join(t.TempDir(), "graph.graphml")
	if err := g.SaveGraphML(path); err != nil {
		t.Fatalf("SaveGraphML failed: %v", err)
	}
	loaded, err := LoadGraphML(path)
	if err != nil {
		t.Fatalf("LoadGraphML failed: %v", err)
	}

	found := false
	for _, n := range loaded.Names() {
		if n == "Co-Trimoxazole" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected display name to survive, got %v", loaded.Names())
	}
}

func TestGraphMLDocumentShape(t *testing.T) {
	g := New()
	mustUpsert(t, g, "Warfarin", "Aspirin", "bleeding")

	path := filepath.Join(t.TempDir(), "graph.graphml")
	if err := g.SaveGraphML(path); err != nil {
		t.Fatalf("SaveGraphML failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	doc := string(raw)
	for _, want := range []string{
		`edgedefault="undirected"`,
		`attr.name="name"`,
		`attr.name="normalized_key"`,
		`attr.name="condition"`,
		"warfarin",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("expected document to contain %q", want)
		}
	}
}

func TestLoadGraphMLMissingFile(t *testing.T) {
	if _, err := LoadGraphML(filepath.Join(t.TempDir(), "nope.graphml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadGraphMLMalformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.graphml", "<graphml><graph></graphml>")
	if _, err := LoadGraphML(path); err == nil {
		t.Error("expected error for malformed XML")
	}
}

func TestLoadGraphMLDanglingEdge(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="d0" for="node" attr.name="name" attr.type="string"/>
  <key id="d2" for="edge" attr.name="condition" attr.type="string"/>
  <graph id="G" edgedefault="undirected">
    <node id="n0"><data key="d0">Warfarin</data></node>
    <edge source="n0" target="n9"><data key="d2">bleeding</data></edge>
  </graph>
</graphml>`
	path := writeFile(t, t.TempDir(), "dangling.graphml", doc)
	if _, err := LoadGraphML(path); err == nil {
		t.Error("expected error for edge referencing unknown node")
	}
}

func TestLoadGraphMLIsolatedVertexSurvives(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="d0" for="node" attr.name="name" attr.type="string"/>
  <key id="d2" for="edge" attr.name="condition" attr.type="string"/>
  <graph id="G" edgedefault="undirected">
    <node id="n0"><data key="d0">Warfarin</data></node>
    <node id="n1"><data key="d0">Aspirin</data></node>
    <node id="n2"><data key="d0">Metformin</data></node>
    <edge source="n0" target="n1"><data key="d2">bleeding</data></edge>
  </graph>
</graphml>`
	path := writeFile(t, t.TempDir(), "isolated.graphml", doc)
	loaded, err := LoadGraphML(path)
	if err != nil {
		t.Fatalf("LoadGraphML failed: %v", err)
	}
	if loaded.Stats().Drugs != 3 {
		t.Errorf("expected isolated vertex to survive, got %d drugs", loaded.Stats().Drugs)
	}
	if !loaded.Has("metformin") {
		t.Error("expected Metformin to be known")
	}
	if got := loaded.InteractionsFor("Metformin"); len(got) != 0 {
		t.Errorf("expected no interactions for isolated vertex, got %d", len(got))
	}
}
