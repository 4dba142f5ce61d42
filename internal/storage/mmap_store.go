package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"cbir-engine/internal/types"
)

const (
	featureSize = 8 // float64 components

	// File header (v1):
	//   0..7   magic "CBIRFEA1"
	//   8..15  dim (uint64)
	//   16..23 count (uint64)
	HeaderSize = 24
)

var fileMagic = [8]byte{'C', 'B', 'I', 'R', 'F', 'E', 'A', '1'}

// MmapStore keeps fixed-dimension feature vectors in a memory-mapped
// file, addressed by append ordinal. It backs the server deployment
// where re-parsing the text store on every query would dominate; the
// catalog maps ordinals back to image identifiers.
type MmapStore struct {
	filename   string
	file       *os.File
	mu         sync.RWMutex
	mapped     []byte
	dim        int
	count      uint64
	mapHandle  uintptr // syscall.Handle on Windows
	viewHandle uintptr // MapViewOfFile address
}

// NewMmapStore opens or creates a feature file for vectors of the given
// dimension. Opening an existing file with a different dimension is an
// error.
func NewMmapStore(filename string, dim int) (*MmapStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dim: %d", dim)
	}

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	store := &MmapStore{
		filename: filename,
		file:     f,
		dim:      dim,
	}

	if info.Size() == 0 {
		if err := store.initNew(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := store.remap(); err != nil {
		_ = f.Close()
		return nil, err
	}

	onDiskDim, onDiskCount, err := store.readAndValidateHeader()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if int(onDiskDim) != store.dim {
		_ = store.Close()
		return nil, fmt.Errorf("feature dimension mismatch: file dim=%d, requested dim=%d (delete %s to reset)", onDiskDim, store.dim, filename)
	}
	store.count = onDiskCount

	return store, nil
}

func (s *MmapStore) initNew() error {
	// initial capacity: header + space for 1024 vectors
	initialSize := int64(HeaderSize + 1024*s.dim*featureSize)
	if err := s.resize(initialSize); err != nil {
		return err
	}
	if err := s.remap(); err != nil {
		return err
	}
	s.writeHeader(uint64(s.dim), 0)
	s.count = 0
	return nil
}

func (s *MmapStore) readAndValidateHeader() (dim uint64, count uint64, err error) {
	if len(s.mapped) < HeaderSize {
		return 0, 0, fmt.Errorf("feature file too small for header: %d < %d", len(s.mapped), HeaderSize)
	}

	var mg [8]byte
	copy(mg[:], s.mapped[:8])
	if mg != fileMagic {
		return 0, 0, errors.New("invalid feature file header (magic mismatch): delete the file to reset")
	}

	dim = binary.LittleEndian.Uint64(s.mapped[8:16])
	count = binary.LittleEndian.Uint64(s.mapped[16:24])
	if dim == 0 {
		return 0, 0, errors.New("invalid feature file header (dim=0): delete the file to reset")
	}
	return dim, count, nil
}

func (s *MmapStore) writeHeader(dim uint64, count uint64) {
	copy(s.mapped[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(s.mapped[8:16], dim)
	binary.LittleEndian.PutUint64(s.mapped[16:24], count)
}

func (s *MmapStore) resize(newSize int64) error {
	if err := s.munmap(); err != nil {
		return err
	}
	if err := s.file.Truncate(newSize); err != nil {
		return err
	}
	return nil
}

func (s *MmapStore) remap() error {
	// Always unmap any existing view before mapping a new one. Append()
	// may call remap() after resize(), but NewMmapStore() calls remap()
	// without a prior munmap(); re-mapping without unmapping leaks
	// handles on Windows.
	if err := s.munmap(); err != nil {
		return err
	}

	fi, err := s.file.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()
	if size == 0 {
		return nil
	}

	return s.mmap(size)
}

// Append stores a vector and returns its ordinal.
func (s *MmapStore) Append(vector types.Vector) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(vector) != s.dim {
		return 0, fmt.Errorf("feature dimension mismatch: expected %d, got %d", s.dim, len(vector))
	}

	requiredSize := int64(HeaderSize + (int(s.count)+1)*s.dim*featureSize)
	if requiredSize > int64(len(s.mapped)) {
		// Grow by 50% or at least required size
		newSize := int64(len(s.mapped)) + int64(len(s.mapped))/2
		if newSize < requiredSize {
			newSize = requiredSize
		}

		if err := s.resize(newSize); err != nil {
			return 0, fmt.Errorf("resize failed: %w", err)
		}
		if err := s.remap(); err != nil {
			return 0, fmt.Errorf("remap failed: %w", err)
		}
		// After remap, header must still exist; ensure it's correct
		s.writeHeader(uint64(s.dim), s.count)
	}

	offset := HeaderSize + int(s.count)*s.dim*featureSize
	for i, v := range vector {
		binary.LittleEndian.PutUint64(s.mapped[offset+i*featureSize:], math.Float64bits(v))
	}

	s.count++
	s.writeHeader(uint64(s.dim), s.count)

	return s.count - 1, nil
}

// Get retrieves the vector stored at the given ordinal.
func (s *MmapStore) Get(ordinal uint64) (types.Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ordinal >= s.count {
		return nil, fmt.Errorf("ordinal out of bounds: %d >= %d", ordinal, s.count)
	}

	offset := HeaderSize + int(ordinal)*s.dim*featureSize
	vec := make(types.Vector, s.dim)
	for i := 0; i < s.dim; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(s.mapped[offset+i*featureSize:]))
	}
	return vec, nil
}

// Count returns the number of vectors in the store.
func (s *MmapStore) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close unmaps and closes the backing file.
func (s *MmapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.munmap()
	return s.file.Close()
}
