package vector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/kusuri/internal/models"
)

// Artifact file layout, all sharing one base path:
//
//	<base>_vectors.f32   raw vector array: uint32 dims, uint32 count, count*dims float32 LE
//	<base>_mapping.json  metadata sidecar (names, name->index map, model, shape)
//	<base>.bundle        consolidated fast path: uint32 metadata length, metadata JSON,
//	                     then the same vector payload as the .f32 file
//
// The loader prefers the bundle and falls back to array + sidecar.

// Metadata is the artifact sidecar: everything needed to reconstruct the index
// besides the raw vectors.
type Metadata struct {
	Names       []string       `json:"names"`
	NameToIndex map[string]int `json:"name_to_index"`
	ModelName   string         `json:"model_name"`
	Dimensions  int            `json:"dimensions"`
	Count       int            `json:"count"`
}

// VectorsPath returns the raw vector array path for base.
func VectorsPath(base string) string { return base + "_vectors.f32" }

// MappingPath returns the metadata sidecar path for base.
func MappingPath(base string) string { return base + "_mapping.json" }

// BundlePath returns the consolidated bundle path for base.
func BundlePath(base string) string { return base + ".bundle" }

// SaveArtifact writes the vector array, metadata sidecar, and consolidated
// bundle for the given records under base. Parent directories are created.
func SaveArtifact(base string, records []Record, modelName string) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to save")
	}
	dims := len(records[0].Vector)
	meta := Metadata{
		Names:       make([]string, len(records)),
		NameToIndex: make(map[string]int, len(records)),
		ModelName:   modelName,
		Dimensions:  dims,
		Count:       len(records),
	}
	for i, rec := range records {
		if len(rec.Vector) != dims {
			return fmt.Errorf("vector dimension mismatch for %q: got %d, expected %d", rec.Name, len(rec.Vector), dims)
		}
		meta.Names[i] = rec.Name
		meta.NameToIndex[models.NormalizeName(rec.Name)] = i
	}
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}

	if err := writeVectorsFile(VectorsPath(base), records, dims); err != nil {
		return err
	}
	if err := os.WriteFile(MappingPath(base), metaJSON, 0644); err != nil {
		return fmt.Errorf("write mapping sidecar: %w", err)
	}

	f, err := os.Create(BundlePath(base))
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(len(metaJSON))); err != nil {
		return fmt.Errorf("write bundle metadata length: %w", err)
	}
	if _, err := f.Write(metaJSON); err != nil {
		return fmt.Errorf("write bundle metadata: %w", err)
	}
	if err := writeVectorPayload(f, records, dims); err != nil {
		return fmt.Errorf("write bundle vectors: %w", err)
	}
	return nil
}

// LoadArtifact reads records and metadata from under base. The consolidated
// bundle is tried first; on any failure the loader falls back to the separate
// array + sidecar pair. Shape invariants are re-checked on either path.
func LoadArtifact(base string) ([]Record, *Metadata, error) {
	records, meta, bundleErr := loadBundle(BundlePath(base))
	if bundleErr == nil {
		return records, meta, nil
	}
	records, meta, sidecarErr := loadSidecar(base)
	if sidecarErr == nil {
		return records, meta, nil
	}
	return nil, nil, fmt.Errorf("load artifact %q: bundle: %v; sidecar: %w", base, bundleErr, sidecarErr)
}

func loadBundle(path string) ([]Record, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var metaLen uint32
	if err := binary.Read(f, binary.LittleEndian, &metaLen); err != nil {
		return nil, nil, fmt.Errorf("read metadata length: %w", err)
	}
	metaJSON := make([]byte, metaLen)
	if _, err := io.ReadFull(f, metaJSON); err != nil {
		return nil, nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("parse metadata: %w", err)
	}
	vectors, err := readVectorPayload(f)
	if err != nil {
		return nil, nil, err
	}
	return assemble(&meta, vectors)
}

func loadSidecar(base string) ([]Record, *Metadata, error) {
	metaJSON, err := os.ReadFile(MappingPath(base))
	if err != nil {
		return nil, nil, fmt.Errorf("read mapping sidecar: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("parse mapping sidecar: %w", err)
	}
	f, err := os.Open(VectorsPath(base))
	if err != nil {
		return nil, nil, fmt.Errorf("open vector array: %w", err)
	}
	defer f.Close()
	vectors, err := readVectorPayload(f)
	if err != nil {
		return nil, nil, err
	}
	return assemble(&meta, vectors)
}

// assemble pairs names with vectors and enforces the shape invariants:
// len(vectors) == len(names) and every vector has the declared dimension.
func assemble(meta *Metadata, vectors [][]float32) ([]Record, *Metadata, error) {
	if len(vectors) != len(meta.Names) {
		return nil, nil, fmt.Errorf("artifact shape mismatch: %d vectors for %d names", len(vectors), len(meta.Names))
	}
	if meta.NameToIndex == nil {
		meta.NameToIndex = make(map[string]int, len(meta.Names))
		for i, name := range meta.Names {
			meta.NameToIndex[models.NormalizeName(name)] = i
		}
	}
	records := make([]Record, len(meta.Names))
	for i, name := range meta.Names {
		if meta.Dimensions > 0 && len(vectors[i]) != meta.Dimensions {
			return nil, nil, fmt.Errorf("vector %d has dimension %d, metadata declares %d", i, len(vectors[i]), meta.Dimensions)
		}
		records[i] = Record{Name: name, Vector: vectors[i]}
	}
	return records, meta, nil
}

func writeVectorsFile(path string, records []Record, dims int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector array: %w", err)
	}
	defer f.Close()
	if err := writeVectorPayload(f, records, dims); err != nil {
		return fmt.Errorf("write vector array: %w", err)
	}
	return nil
}

func writeVectorPayload(w io.Writer, records []Record, dims int) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(dims)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(records))); err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := w.Write(float32SliceToBytes(rec.Vector)); err != nil {
			return err
		}
	}
	return nil
}

func readVectorPayload(r io.Reader) ([][]float32, error) {
	var dims, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	vectors := make([][]float32, count)
	buf := make([]byte, dims*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors[i] = bytesToFloat32Slice(buf)
	}
	return vectors, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
