package types

import "time"

// Vector is a feature vector produced by a descriptor. Components are
// float64 because the moment invariants and chi-squared scoring are
// numerically sensitive.
type Vector []float64

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// FeatureMeta records how one descriptor's vector for an image was produced.
type FeatureMeta struct {
	Dim    int    `json:"dim"`
	Config string `json:"config"` // descriptor parameters, e.g. "bins=8x12x3"
}

// ImageMeta is the catalog record for one indexed image.
type ImageMeta struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"` // original file path
	Width     int                    `json:"width"`
	Height    int                    `json:"height"`
	IndexedAt time.Time              `json:"indexed_at"`
	Features  map[string]FeatureMeta `json:"features"` // keyed by descriptor name
}

// Match is one entry of a ranking result. Lower distance means more similar.
type Match struct {
	Distance float64 `json:"distance"`
	ID       string  `json:"id"`
}
