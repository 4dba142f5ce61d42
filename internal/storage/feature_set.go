package storage

import (
	"cbir-engine/internal/types"
)

// MmapFeatureSet composes a MmapStore with the catalog's ordinal mapping
// so the binary store can be scanned like the text store.
type MmapFeatureSet struct {
	descriptor string
	vecs       *MmapStore
	catalog    *Catalog
}

// NewMmapFeatureSet wraps the given store and catalog for one descriptor.
func NewMmapFeatureSet(descriptor string, vecs *MmapStore, catalog *Catalog) *MmapFeatureSet {
	return &MmapFeatureSet{descriptor: descriptor, vecs: vecs, catalog: catalog}
}

// Append implements FeatureWriter.
func (s *MmapFeatureSet) Append(id string, vec types.Vector) error {
	ordinal, err := s.vecs.Append(vec)
	if err != nil {
		return err
	}
	return s.catalog.SetOrdinal(s.descriptor, ordinal, id)
}

// Scan implements FeatureScanner.
func (s *MmapFeatureSet) Scan(fn func(id string, vec types.Vector) error) error {
	count := s.vecs.Count()
	for i := uint64(0); i < count; i++ {
		id, err := s.catalog.IDForOrdinal(s.descriptor, i)
		if err != nil {
			return err
		}
		vec, err := s.vecs.Get(i)
		if err != nil {
			return err
		}
		if err := fn(id, vec); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of records in the set.
func (s *MmapFeatureSet) Count() uint64 {
	return s.vecs.Count()
}
