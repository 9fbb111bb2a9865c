package vector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/models"
)

// Build embeds every vocabulary name and pairs it with its vector. Names are
// embedded in normalized form so query-time embeddings of the same name land
// on the identical vector. This is the offline half of the index lifecycle;
// it never runs on the serving path.
func Build(ctx context.Context, names []string, embedder embedding.Embedder) ([]Record, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = models.NormalizeName(name)
	}
	vectors, err := embedder.EmbedBatch(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("embed vocabulary: %w", err)
	}
	if len(vectors) != len(names) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d names", len(vectors), len(names))
	}
	records := make([]Record, len(names))
	for i, name := range names {
		records[i] = Record{Name: name, Vector: vectors[i]}
	}
	return records, nil
}

// ReadVocabulary reads a vocabulary file: one drug name per line, blank lines
// and '#' comments skipped. Lines of the form "123|Name" have the numeric
// prefix stripped. Duplicate names (case-insensitive) keep the first
// occurrence so the normalized-key uniqueness invariant holds downstream.
func ReadVocabulary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	var names []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.Index(line, "|"); i >= 0 {
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" {
			continue
		}
		key := models.NormalizeName(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return names, nil
}
