package vector

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArtifact_RoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "drugs")
	records := testRecords()
	if err := SaveArtifact(base, records, "all-MiniLM-L6-v2"); err != nil {
		t.Fatal(err)
	}

	loaded, meta, err := LoadArtifact(base)
	if err != nil {
		t.Fatal(err)
	}
	if meta.ModelName != "all-MiniLM-L6-v2" {
		t.Errorf("model name = %q", meta.ModelName)
	}
	if meta.Count != len(records) || meta.Dimensions != 3 {
		t.Errorf("meta shape = %d x %d", meta.Count, meta.Dimensions)
	}
	if len(loaded) != len(records) {
		t.Fatalf("loaded %d records, want %d", len(loaded), len(records))
	}
	for i, rec := range records {
		if loaded[i].Name != rec.Name {
			t.Errorf("record %d name = %q, want %q", i, loaded[i].Name, rec.Name)
		}
		for j := range rec.Vector {
			if loaded[i].Vector[j] != rec.Vector[j] {
				t.Errorf("record %d vector component %d = %g, want %g", i, j, loaded[i].Vector[j], rec.Vector[j])
			}
		}
	}
	if meta.NameToIndex["warfarin"] != 2 {
		t.Errorf("name_to_index[warfarin] = %d", meta.NameToIndex["warfarin"])
	}
}

func TestArtifact_SidecarFallback(t *testing.T) {
	base := filepath.Join(t.TempDir(), "drugs")
	if err := SaveArtifact(base, testRecords(), "mock"); err != nil {
		t.Fatal(err)
	}
	// Remove the bundle; loader must reconstruct from array + sidecar.
	if err := os.Remove(BundlePath(base)); err != nil {
		t.Fatal(err)
	}
	loaded, meta, err := LoadArtifact(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 3 || meta.ModelName != "mock" {
		t.Errorf("sidecar fallback loaded %d records, model %q", len(loaded), meta.ModelName)
	}
}

func TestArtifact_CorruptBundleFallsBack(t *testing.T) {
	base := filepath.Join(t.TempDir(), "drugs")
	if err := SaveArtifact(base, testRecords(), "mock"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(BundlePath(base), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	loaded, _, err := LoadArtifact(base)
	if err != nil {
		t.Fatalf("corrupt bundle should fall back to sidecar: %v", err)
	}
	if len(loaded) != 3 {
		t.Errorf("loaded %d records", len(loaded))
	}
}

func TestArtifact_Missing(t *testing.T) {
	if _, _, err := LoadArtifact(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error when no artifact files exist")
	}
}

func TestArtifact_ShapeMismatch(t *testing.T) {
	base := filepath.Join(t.TempDir(), "drugs")
	if err := SaveArtifact(base, testRecords(), "mock"); err != nil {
		t.Fatal(err)
	}
	os.Remove(BundlePath(base))
	// Truncate the vector array so counts disagree with the sidecar.
	if err := os.WriteFile(VectorsPath(base), []byte{3, 0, 0, 0, 0, 0, 0, 0}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadArtifact(base); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestSaveArtifact_Empty(t *testing.T) {
	if err := SaveArtifact(filepath.Join(t.TempDir(), "x"), nil, "mock"); err == nil {
		t.Error("expected error for empty records")
	}
}
