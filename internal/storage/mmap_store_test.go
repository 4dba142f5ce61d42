package storage

import (
	"path/filepath"
	"testing"

	"cbir-engine/internal/types"
)

func TestMmapStore(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "features.bin")

	// 1. Create and Write
	store, err := NewMmapStore(tmpFile, 2) // 2D vectors
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	vec1 := types.Vector{1.0, 2.0}
	vec2 := types.Vector{3.0, 4.0}

	id1, err := store.Append(vec1)
	if err != nil {
		t.Fatalf("Failed to append vec1: %v", err)
	}
	if id1 != 0 {
		t.Errorf("Expected ordinal 0, got %d", id1)
	}

	id2, err := store.Append(vec2)
	if err != nil {
		t.Fatalf("Failed to append vec2: %v", err)
	}
	if id2 != 1 {
		t.Errorf("Expected ordinal 1, got %d", id2)
	}

	if count := store.Count(); count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	// 2. Read back
	v1, err := store.Get(0)
	if err != nil {
		t.Fatalf("Failed to get vec1: %v", err)
	}
	if v1[0] != 1.0 || v1[1] != 2.0 {
		t.Errorf("Vec1 mismatch: %v", v1)
	}

	// 3. Close and Reopen (Persistence)
	_ = store.Close()

	store2, err := NewMmapStore(tmpFile, 2)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store2.Close()

	if count := store2.Count(); count != 2 {
		t.Errorf("Reopened count mismatch. Expected 2, got %d", count)
	}

	v2Reopen, err := store2.Get(1)
	if err != nil {
		t.Fatalf("Failed to get vec2 after reopen: %v", err)
	}
	if v2Reopen[0] != 3.0 || v2Reopen[1] != 4.0 {
		t.Errorf("Vec2 mismatch after reopen: %v", v2Reopen)
	}
}

func TestMmapStoreDimMismatch(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "dim_mismatch.bin")

	store, err := NewMmapStore(tmpFile, 2)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if _, err := store.Append(types.Vector{1, 2}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	_ = store.Close()

	_, err = NewMmapStore(tmpFile, 3)
	if err == nil {
		t.Fatalf("Expected error on dim mismatch, got nil")
	}
}

func TestMmapStoreAppendWrongDim(t *testing.T) {
	store, err := NewMmapStore(filepath.Join(t.TempDir(), "wrong_dim.bin"), 3)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if _, err := store.Append(types.Vector{1, 2}); err == nil {
		t.Fatal("Expected error appending wrong-dimension vector")
	}
}

func TestMmapStoreGrowth(t *testing.T) {
	store, err := NewMmapStore(filepath.Join(t.TempDir(), "growth.bin"), 4)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	// Exceed the initial 1024-vector capacity to force a resize+remap.
	for i := 0; i < 1500; i++ {
		v := types.Vector{float64(i), 0, 0, 1}
		if _, err := store.Append(v); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if count := store.Count(); count != 1500 {
		t.Fatalf("count after growth: got %d, want 1500", count)
	}
	v, err := store.Get(1499)
	if err != nil {
		t.Fatalf("get last: %v", err)
	}
	if v[0] != 1499 {
		t.Errorf("last vector: got %v", v)
	}
}
