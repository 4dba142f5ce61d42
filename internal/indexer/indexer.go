// Package indexer walks an image directory, runs the configured
// descriptors over every readable image and appends the resulting
// feature records to the per-descriptor stores and the catalog.
package indexer

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"

	"cbir-engine/internal/descriptor"
	"cbir-engine/internal/imaging"
	"cbir-engine/internal/storage"
	"cbir-engine/internal/types"
)

// Options configures an indexing run.
type Options struct {
	// Extensions lists accepted file extensions (with dot, lower case).
	Extensions []string

	// MaxDimension downscales images whose longer side exceeds it before
	// description. 0 disables downscaling.
	MaxDimension int

	// AccessionIDs rewrites file names into accession-style identifiers:
	// "1980.001.png" becomes "a1980_001". Off, the identifier is the
	// plain file name.
	AccessionIDs bool
}

// Summary reports what an indexing run did.
type Summary struct {
	Indexed int
	Skipped int
}

// Indexer runs descriptors over a directory of images.
type Indexer struct {
	descriptors []descriptor.Descriptor
	writers     map[string]storage.FeatureWriter // keyed by descriptor name
	catalog     *storage.Catalog                 // optional
	opts        Options
}

// New returns an indexer writing through the given per-descriptor
// writers. catalog may be nil when no metadata should be recorded.
func New(descriptors []descriptor.Descriptor, writers map[string]storage.FeatureWriter, catalog *storage.Catalog, opts Options) *Indexer {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".png", ".jpg", ".jpeg"}
	}
	return &Indexer{
		descriptors: descriptors,
		writers:     writers,
		catalog:     catalog,
		opts:        opts,
	}
}

// Run indexes every accepted image under dir. Unreadable or undecodable
// files are logged and skipped; the run only fails on store errors.
func (ix *Indexer) Run(dir string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}

	summary := &Summary{}
	for _, entry := range entries {
		if entry.IsDir() || !ix.accepts(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		img, width, height, err := ix.load(path)
		if err != nil {
			log.Printf("[indexer] skip %s: %v", path, err)
			summary.Skipped++
			continue
		}

		id := entry.Name()
		if ix.opts.AccessionIDs {
			id = accessionID(entry.Name())
		}

		meta := types.ImageMeta{
			ID:        id,
			Source:    path,
			Width:     width,
			Height:    height,
			IndexedAt: time.Now().UTC(),
			Features:  make(map[string]types.FeatureMeta, len(ix.descriptors)),
		}

		for _, d := range ix.descriptors {
			vec, err := d.Describe(img)
			if err != nil {
				return nil, fmt.Errorf("describe %s with %s: %w", path, d.Name(), err)
			}
			w, ok := ix.writers[d.Name()]
			if !ok {
				return nil, fmt.Errorf("no feature writer for descriptor %q", d.Name())
			}
			if err := w.Append(id, vec); err != nil {
				return nil, fmt.Errorf("store %s features for %s: %w", d.Name(), id, err)
			}

			fm := types.FeatureMeta{Dim: d.Dim()}
			if c, ok := d.(interface{ Config() string }); ok {
				fm.Config = c.Config()
			}
			meta.Features[d.Name()] = fm
		}

		if ix.catalog != nil {
			if err := ix.catalog.SaveImage(meta); err != nil {
				return nil, fmt.Errorf("catalog %s: %w", id, err)
			}
		}

		summary.Indexed++
		log.Printf("[indexer] ok %s id=%s (%dx%d)", entry.Name(), id, width, height)
	}

	log.Printf("[indexer] done dir=%s indexed=%d skipped=%d", dir, summary.Indexed, summary.Skipped)
	return summary, nil
}

func (ix *Indexer) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ix.opts.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// load decodes an image file, downscaling it first if it exceeds the
// configured maximum dimension. It returns the original dimensions.
func (ix *Indexer) load(path string) (*imaging.Image, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if max := ix.opts.MaxDimension; max > 0 && (width > max || height > max) {
		if width >= height {
			src = resize.Resize(uint(max), 0, src, resize.Bicubic)
		} else {
			src = resize.Resize(0, uint(max), src, resize.Bicubic)
		}
	}

	return imaging.FromImage(src), width, height, nil
}

// accessionID turns a file name into an accession-style identifier:
// strip the extension, replace dots with underscores, prefix "a".
func accessionID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return "a" + strings.ReplaceAll(base, ".", "_")
}
