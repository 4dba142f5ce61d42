package descriptor

import (
	"fmt"
	"math"

	"cbir-engine/internal/imaging"
	"cbir-engine/internal/types"
)

// Texture defaults.
const (
	DefaultTexturePoints = 36
	DefaultTextureRadius = 12.0
	DefaultTextureEps    = 1e-7
)

// Texture describes an image by the distribution of rotation-invariant
// uniform local binary patterns. Each pixel's intensity is compared to
// points sampled on a circle around it; uniform bit patterns (at most two
// circular 0/1 transitions) are coded by their popcount, all remaining
// patterns collapse into one bucket, giving points+2 distinct codes.
type Texture struct {
	points int
	radius float64
	eps    float64
}

// NewTexture returns a texture descriptor sampling the given number of
// points on a circle of the given radius.
func NewTexture(points int, radius, eps float64) (*Texture, error) {
	if points < 1 {
		return nil, fmt.Errorf("texture descriptor: points must be positive, got %d", points)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("texture descriptor: radius must be positive, got %g", radius)
	}
	return &Texture{points: points, radius: radius, eps: eps}, nil
}

// DefaultTexture returns a texture descriptor with the default parameters.
func DefaultTexture() *Texture {
	t, _ := NewTexture(DefaultTexturePoints, DefaultTextureRadius, DefaultTextureEps)
	return t
}

// Name implements Descriptor.
func (t *Texture) Name() string { return "texture" }

// Dim implements Descriptor.
func (t *Texture) Dim() int { return t.points + 2 }

// Config returns a short string describing the configuration.
func (t *Texture) Config() string {
	return fmt.Sprintf("points=%d radius=%g", t.points, t.radius)
}

// Describe implements Descriptor. The result is a probability
// distribution over the points+2 pattern codes, normalized by the pixel
// count plus eps so an empty image stays well defined.
func (t *Texture) Describe(img *imaging.Image) (types.Vector, error) {
	gray := img.Gray()

	// Precompute the sampling offsets around the circle.
	dx := make([]float64, t.points)
	dy := make([]float64, t.points)
	for k := 0; k < t.points; k++ {
		angle := 2 * math.Pi * float64(k) / float64(t.points)
		dx[k] = t.radius * math.Cos(angle)
		dy[k] = -t.radius * math.Sin(angle)
	}

	hist := make(types.Vector, t.points+2)
	pattern := make([]bool, t.points)

	for y := 0; y < gray.Height; y++ {
		for x := 0; x < gray.Width; x++ {
			center := gray.At(x, y)
			for k := 0; k < t.points; k++ {
				pattern[k] = gray.Sample(float64(x)+dx[k], float64(y)+dy[k]) >= center
			}
			hist[t.code(pattern)]++
		}
	}

	total := float64(gray.Width*gray.Height) + t.eps
	for i := range hist {
		hist[i] /= total
	}
	return hist, nil
}

// code maps a circular bit pattern to its rotation-invariant uniform
// code: the number of set bits when the pattern has at most two circular
// transitions, points+1 otherwise.
func (t *Texture) code(pattern []bool) int {
	transitions := 0
	ones := 0
	for k := 0; k < t.points; k++ {
		if pattern[k] {
			ones++
		}
		if pattern[k] != pattern[(k+1)%t.points] {
			transitions++
		}
	}
	if transitions <= 2 {
		return ones
	}
	return t.points + 1
}
