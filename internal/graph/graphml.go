package graph

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kusuri/internal/models"
)

// GraphML attribute keys. Fixed ids keep exports diffable and let other
// tooling read the files without inspecting <key> declarations.
const (
	keyName          = "d0"
	keyNormalizedKey = "d1"
	keyCondition     = "d2"
)

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

func dataValue(data []graphmlData, key string) string {
	for _, d := range data {
		if d.Key == key {
			return d.Value
		}
	}
	return ""
}

// SaveGraphML writes the graph as an undirected GraphML document with name
// and normalized_key node attributes and a condition edge attribute.
func (g *Graph) SaveGraphML(path string) error {
	g.mu.RLock()
	doc := graphmlDoc{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: keyName, For: "node", AttrName: "name", AttrType: "string"},
			{ID: keyNormalizedKey, For: "node", AttrName: "normalized_key", AttrType: "string"},
			{ID: keyCondition, For: "edge", AttrName: "condition", AttrType: "string"},
		},
		Graph: graphmlGraph{ID: "G", EdgeDefault: "undirected"},
	}
	for i, v := range g.vertices {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: fmt.Sprintf("n%d", i),
			Data: []graphmlData{
				{Key: keyName, Value: v.name},
				{Key: keyNormalizedKey, Value: v.key},
			},
		})
	}
	for _, e := range g.edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: fmt.Sprintf("n%d", e.a),
			Target: fmt.Sprintf("n%d", e.b),
			Data:   []graphmlData{{Key: keyCondition, Value: e.condition}},
		})
	}
	g.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode GraphML: %w", err)
	}
	payload := append([]byte(xml.Header), out...)
	payload = append(payload, '\n')
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write GraphML: %w", err)
	}
	return nil
}

// LoadGraphML reads a GraphML document produced by SaveGraphML (or any
// compatible exporter using the same attribute names) into a fresh graph.
func LoadGraphML(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read GraphML: %w", err)
	}

	var doc graphmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse GraphML: %w", err)
	}

	// Attribute keys may differ from ours if the file came from another
	// exporter; resolve them by attr.name. Normalized keys are recomputed
	// from names on load rather than trusted from the file.
	nameKey, condKey := keyName, keyCondition
	for _, k := range doc.Keys {
		switch k.AttrName {
		case "name":
			nameKey = k.ID
		case "condition":
			condKey = k.ID
		}
	}

	nodeNames := make(map[string]string, len(doc.Graph.Nodes))
	g := New()
	for _, n := range doc.Graph.Nodes {
		name := strings.TrimSpace(dataValue(n.Data, nameKey))
		if name == "" {
			return nil, fmt.Errorf("node %q has no name attribute", n.ID)
		}
		nodeNames[n.ID] = name
		// Register the vertex even if it ends up isolated.
		g.mu.Lock()
		g.getOrCreateVertexLocked(name)
		g.mu.Unlock()
	}
	for _, e := range doc.Graph.Edges {
		src, ok := nodeNames[e.Source]
		if !ok {
			return nil, fmt.Errorf("edge references unknown node %q", e.Source)
		}
		dst, ok := nodeNames[e.Target]
		if !ok {
			return nil, fmt.Errorf("edge references unknown node %q", e.Target)
		}
		cond := dataValue(e.Data, condKey)
		if cond == "" {
			return nil, fmt.Errorf("edge %s-%s has no condition attribute", e.Source, e.Target)
		}
		if err := g.Upsert(src, dst, cond); err != nil {
			return nil, fmt.Errorf("failed to add edge %s-%s: %w", e.Source, e.Target, err)
		}
	}
	return g, nil
}

// Names returns the display name of every vertex in insertion order.
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.vertices))
	for i, v := range g.vertices {
		out[i] = v.name
	}
	return out
}

// ReplaceAll rebuilds the graph from a record set, dropping existing state.
// Used when restoring from the snapshot store.
func (g *Graph) ReplaceAll(records []models.InteractionRecord) error {
	fresh := New()
	for _, rec := range records {
		if err := fresh.Upsert(rec.Drug1, rec.Drug2, rec.Condition); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	fresh.mu.RLock()
	defer fresh.mu.RUnlock()
	g.vertices = fresh.vertices
	g.byKey = fresh.byKey
	g.edges = fresh.edges
	g.edgeIndex = fresh.edgeIndex
	g.adjacency = fresh.adjacency
	return nil
}
