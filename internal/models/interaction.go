package models

// Interaction is one recorded drug-drug interaction as seen from one endpoint:
// the neighboring drug and the free-text condition stored on the edge.
type Interaction struct {
	Drug      string `json:"drug"`
	Condition string `json:"condition"`
}

// InteractionRecord is a full edge as it appears in bulk sources and storage.
type InteractionRecord struct {
	Drug1     string `json:"drug1"`
	Drug2     string `json:"drug2"`
	Condition string `json:"condition"`
}

// GraphStats reports the size of the interaction graph.
type GraphStats struct {
	Drugs        int `json:"drugs"`
	Interactions int `json:"interactions"`
}

// Match is a scored vocabulary candidate returned by similarity search.
type Match struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
