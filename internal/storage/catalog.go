package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"cbir-engine/internal/types"

	"go.etcd.io/bbolt"
)

var (
	bucketImages   = []byte("images")
	bucketOrdinals = []byte("ordinals")
)

// Catalog is the bbolt-backed record of what has been indexed: one
// ImageMeta per image, plus the descriptor/ordinal → id mapping needed
// to scan a MmapStore.
type Catalog struct {
	db *bbolt.DB
}

// NewCatalog opens or creates the catalog database at path.
func NewCatalog(path string) (*Catalog, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketImages); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketOrdinals); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// SaveImage stores or replaces the record for one image.
func (c *Catalog) SaveImage(meta types.ImageMeta) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketImages)
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return b.Put([]byte(meta.ID), data)
	})
}

// GetImage retrieves the record for one image.
func (c *Catalog) GetImage(id string) (*types.ImageMeta, error) {
	var meta types.ImageMeta
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketImages)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("image not found: %s", id)
		}
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// ForEachImage visits every image record. An error from fn aborts the
// iteration.
func (c *Catalog) ForEachImage(fn func(types.ImageMeta) error) error {
	return c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketImages)
		return b.ForEach(func(_, data []byte) error {
			var meta types.ImageMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				return err
			}
			return fn(meta)
		})
	})
}

// CountImages returns the number of image records.
func (c *Catalog) CountImages() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketImages).Stats().KeyN
		return nil
	})
	return n, err
}

// SetOrdinal records which image the vector at the given ordinal of a
// descriptor's MmapStore belongs to.
func (c *Catalog) SetOrdinal(descriptor string, ordinal uint64, id string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketOrdinals)
		return b.Put([]byte(ordinalKey(descriptor, ordinal)), []byte(id))
	})
}

// IDForOrdinal resolves the image id stored at a descriptor ordinal.
func (c *Catalog) IDForOrdinal(descriptor string, ordinal uint64) (string, error) {
	var id string
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketOrdinals)
		data := b.Get([]byte(ordinalKey(descriptor, ordinal)))
		if data == nil {
			return fmt.Errorf("no id for %s ordinal %d", descriptor, ordinal)
		}
		id = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func ordinalKey(descriptor string, ordinal uint64) string {
	return fmt.Sprintf("%s/%d", descriptor, ordinal)
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
