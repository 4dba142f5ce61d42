// Package descriptor converts images into fixed-length feature vectors.
// Three independent descriptors are provided: colour distribution with a
// five-region locality split, rotation-invariant local binary pattern
// texture, and Hu-moment shape statistics over the gradient magnitude.
package descriptor

import (
	"cbir-engine/internal/imaging"
	"cbir-engine/internal/types"
)

// Descriptor maps an image to a feature vector. Implementations are
// stateless: the same image and configuration always produce the same
// vector, and the input image is never modified.
type Descriptor interface {
	// Name identifies the descriptor in stores and the catalog.
	Name() string

	// Dim is the length of every vector Describe produces.
	Dim() int

	// Describe computes the feature vector for the image.
	Describe(img *imaging.Image) (types.Vector, error)
}
