package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"cbir-engine/internal/types"
)

// CSVStore is the canonical on-disk feature store: one row per image,
// the first field is the image identifier, the remaining fields are the
// vector components as decimal text. Every Scan re-reads the file, so
// concurrent read-only use needs no locking; writers must not rewrite
// the file during an in-flight scan.
type CSVStore struct {
	path string
}

// NewCSVStore returns a store backed by the file at path. The file is
// created on first Append; a missing file scans as empty.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the location of the backing file.
func (s *CSVStore) Path() string { return s.path }

// Append writes one feature record to the end of the file.
func (s *CSVStore) Append(id string, vec types.Vector) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open feature store: %w", err)
	}
	defer f.Close()

	record := make([]string, 0, len(vec)+1)
	record = append(record, id)
	for _, v := range vec {
		record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
	}

	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write feature record %q: %w", id, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush feature store: %w", err)
	}
	return nil
}

// Scan implements FeatureScanner.
func (s *CSVStore) Scan(fn func(id string, vec types.Vector) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open feature store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // vector length is validated by the caller

	row := 0
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read feature store row %d: %w", row, err)
		}
		row++

		if len(record) == 0 {
			continue
		}
		vec := make(types.Vector, len(record)-1)
		for i, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return fmt.Errorf("feature store row %d column %d: not a number: %q", row, i+2, field)
			}
			vec[i] = v
		}
		if err := fn(record[0], vec); err != nil {
			return err
		}
	}
}
