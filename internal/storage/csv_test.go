package storage

import (
	"os"
	"path/filepath"
	"testing"

	"cbir-engine/internal/types"
)

func TestCSVStoreRoundtrip(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "features.csv"))

	if err := store.Append("img1", types.Vector{1, 0, 0.25}); err != nil {
		t.Fatalf("append img1: %v", err)
	}
	if err := store.Append("img2", types.Vector{0, 1, 0.5}); err != nil {
		t.Fatalf("append img2: %v", err)
	}

	var ids []string
	var vecs []types.Vector
	err := store.Scan(func(id string, vec types.Vector) error {
		ids = append(ids, id)
		vecs = append(vecs, vec)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(ids) != 2 || ids[0] != "img1" || ids[1] != "img2" {
		t.Fatalf("ids: got %v", ids)
	}
	if vecs[0][2] != 0.25 || vecs[1][2] != 0.5 {
		t.Errorf("vector components lost: %v, %v", vecs[0], vecs[1])
	}
}

func TestCSVStoreMissingFileScansEmpty(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"))

	count := 0
	err := store.Scan(func(string, types.Vector) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("scan of missing file: %v", err)
	}
	if count != 0 {
		t.Errorf("missing file should scan as empty, visited %d", count)
	}
}

func TestCSVStoreRejectsNonNumericField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("img1,0.5,abc,1\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := NewCSVStore(path)
	err := store.Scan(func(string, types.Vector) error { return nil })
	if err == nil {
		t.Fatal("non-numeric field must fail the scan")
	}
}

func TestCSVStorePreservesPrecision(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "precision.csv"))

	want := types.Vector{1e-7, 0.30000000000000004, 123456.789}
	if err := store.Append("img", want); err != nil {
		t.Fatalf("append: %v", err)
	}

	err := store.Scan(func(id string, vec types.Vector) error {
		for i := range want {
			if vec[i] != want[i] {
				t.Errorf("component %d: got %v, want %v", i, vec[i], want[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
}
