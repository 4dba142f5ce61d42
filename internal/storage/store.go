// Package storage persists feature vectors and image metadata. The
// canonical store is a plain text file with one record per row; a
// mmap-backed binary store plus the bbolt catalog serve long-running
// server deployments.
package storage

import "cbir-engine/internal/types"

// FeatureScanner streams every feature record of a store. Scan visits
// records in store order, which carries no meaning; an error returned by
// fn aborts the scan and is returned unchanged.
type FeatureScanner interface {
	Scan(fn func(id string, vec types.Vector) error) error
}

// FeatureWriter appends feature records to a store.
type FeatureWriter interface {
	Append(id string, vec types.Vector) error
}
