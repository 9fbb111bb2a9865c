package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kusuri/internal/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kusuri.db"), nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertAndLoadAll(t *testing.T) {
	store := testStore(t)

	recs := []models.InteractionRecord{
		{Drug1: "Warfarin", Drug2: "Aspirin", Condition: "bleeding"},
		{Drug1: "Warfarin", Drug2: "Ibuprofen", Condition: "GI bleeding"},
	}
	for _, rec := range recs {
		if err := store.Upsert(rec); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Condition != "bleeding" {
		t.Errorf("unexpected first record: %+v", got[0])
	}
}

func TestUpsertPairIsUnordered(t *testing.T) {
	store := testStore(t)

	if err := store.Upsert(models.InteractionRecord{Drug1: "Warfarin", Drug2: "Aspirin", Condition: "first"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	// Reversed argument order and different casing hit the same row.
	if err := store.Upsert(models.InteractionRecord{Drug1: "ASPIRIN", Drug2: "warfarin", Condition: "second"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	got, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if got[0].Condition != "second" {
		t.Errorf("expected last write to win, got %q", got[0].Condition)
	}
}

func TestReplaceAll(t *testing.T) {
	store := testStore(t)

	if err := store.Upsert(models.InteractionRecord{Drug1: "Old1", Drug2: "Old2", Condition: "stale"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	fresh := []models.InteractionRecord{
		{Drug1: "Warfarin", Drug2: "Aspirin", Condition: "bleeding"},
	}
	if err := store.ReplaceAll(fresh); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	got, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != 1 || got[0].Drug1 != "Warfarin" {
		t.Errorf("expected snapshot replaced, got %+v", got)
	}
}

func TestLoadAllEmpty(t *testing.T) {
	store := testStore(t)
	got, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty store, got %d records", len(got))
	}
}

func TestNewSQLiteStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "kusuri.db")
	store, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("failed to open store in nested dir: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}

func TestFileSizeBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, make([]byte, 128), 0644); err != nil {
		t.Fatal(err)
	}
	if got := FileSizeBytes(path); got != 128 {
		t.Errorf("FileSizeBytes = %d, want 128", got)
	}
	if got := FileSizeBytes(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("FileSizeBytes(missing) = %d, want 0", got)
	}
}

func TestDirSizeBytes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}
	if got := DirSizeBytes(dir); got != 150 {
		t.Errorf("DirSizeBytes = %d, want 150", got)
	}
	if got := DirSizeBytes(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("DirSizeBytes(missing) = %d, want 0", got)
	}
}
