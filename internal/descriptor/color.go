package descriptor

import (
	"fmt"

	"cbir-engine/internal/imaging"
	"cbir-engine/internal/types"
)

// DefaultColorBins is the default (hue, saturation, value) bin split.
var DefaultColorBins = [3]int{8, 12, 3}

// Color describes an image by its colour distribution. The image is split
// into five regions, the four corners and a central ellipse, and one HSV
// histogram is extracted per region. A single global histogram would
// discard spatial layout; the corner/center split keeps coarse locality
// at little cost.
type Color struct {
	bins [3]int
}

// NewColor returns a colour descriptor with the given per-channel bin
// counts.
func NewColor(bins [3]int) (*Color, error) {
	for i, b := range bins {
		if b < 1 {
			return nil, fmt.Errorf("color descriptor: bin count for channel %d must be positive, got %d", i, b)
		}
	}
	return &Color{bins: bins}, nil
}

// DefaultColor returns a colour descriptor with the default bins.
func DefaultColor() *Color {
	c, _ := NewColor(DefaultColorBins)
	return c
}

// Name implements Descriptor.
func (c *Color) Name() string { return "color" }

// Dim implements Descriptor.
func (c *Color) Dim() int { return c.bins[0] * c.bins[1] * c.bins[2] * 5 }

// Config returns a short string describing the configuration, stored in
// the catalog next to each vector.
func (c *Color) Config() string {
	return fmt.Sprintf("bins=%dx%dx%d", c.bins[0], c.bins[1], c.bins[2])
}

// Describe implements Descriptor. The region order is fixed: top-left,
// top-right, bottom-right, bottom-left corners (each minus the central
// ellipse), then the ellipse itself.
func (c *Color) Describe(img *imaging.Image) (types.Vector, error) {
	hsv := img.ToHSV()

	w, h := img.Width, img.Height
	cx, cy := int(float64(w)*0.5), int(float64(h)*0.5)

	center := imaging.Ellipse{
		CX: cx, CY: cy,
		RX: int(float64(w)*0.75) / 2,
		RY: int(float64(h)*0.75) / 2,
	}

	corners := []imaging.Rect{
		{X0: 0, Y0: 0, X1: cx, Y1: cy},  // top-left
		{X0: cx, Y0: 0, X1: w, Y1: cy},  // top-right
		{X0: cx, Y0: cy, X1: w, Y1: h},  // bottom-right
		{X0: 0, Y0: cy, X1: cx, Y1: h},  // bottom-left
	}

	features := make(types.Vector, 0, c.Dim())
	for _, corner := range corners {
		features = append(features, histogram(hsv, imaging.Difference(corner, center), c.bins)...)
	}
	features = append(features, histogram(hsv, center, c.bins)...)

	return features, nil
}
