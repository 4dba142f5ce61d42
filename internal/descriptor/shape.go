package descriptor

import (
	"fmt"
	"math"

	"cbir-engine/internal/imaging"
	"cbir-engine/internal/types"
)

// Shape defaults. The border pads the gradient magnitude image so shapes
// touching the frame are not truncated before the moments are taken.
const (
	DefaultShapeKernelSize = 17
	MaxShapeKernelSize     = 31
	shapeBorderWidth       = 15
	shapeBorderValue       = 255
)

// Shape describes an image by the seven Hu moment invariants of its
// gradient magnitude. The invariants are unchanged under translation,
// scale and rotation of the depicted shape.
type Shape struct {
	kernelSize int
	border     bool
}

// NewShape returns a shape descriptor using a separable derivative kernel
// of the given odd size. border controls the constant padding applied to
// the magnitude image before the moments are computed.
func NewShape(kernelSize int, border bool) (*Shape, error) {
	if kernelSize < 1 || kernelSize > MaxShapeKernelSize || kernelSize%2 == 0 {
		return nil, fmt.Errorf("shape descriptor: kernel size must be odd and within [1,%d], got %d",
			MaxShapeKernelSize, kernelSize)
	}
	return &Shape{kernelSize: kernelSize, border: border}, nil
}

// DefaultShape returns a shape descriptor with the default parameters.
func DefaultShape() *Shape {
	s, _ := NewShape(DefaultShapeKernelSize, true)
	return s
}

// Name implements Descriptor.
func (s *Shape) Name() string { return "shape" }

// Dim implements Descriptor.
func (s *Shape) Dim() int { return 7 }

// Config returns a short string describing the configuration.
func (s *Shape) Config() string {
	return fmt.Sprintf("ksize=%d border=%t", s.kernelSize, s.border)
}

// Describe implements Descriptor. The result is always exactly seven
// finite numbers: log compression maps each invariant through
// -sign(h)*log10(|h|) and any NaN or infinity becomes zero.
func (s *Shape) Describe(img *imaging.Image) (types.Vector, error) {
	gray := img.Gray()

	smooth, deriv := derivKernels(s.kernelSize)
	gx := sepConvolve(gray, deriv, smooth)
	gy := sepConvolve(gray, smooth, deriv)

	mag := imaging.NewPlane(gray.Width, gray.Height)
	for i := range mag.Pix {
		mag.Pix[i] = math.Hypot(gx.Pix[i], gy.Pix[i])
	}

	if s.border {
		mag = mag.Pad(shapeBorderWidth, shapeBorderValue)
	}

	hu := huMoments(mag)

	features := make(types.Vector, len(hu))
	for i, h := range hu {
		v := -sign(h) * math.Log10(math.Abs(h))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		features[i] = v
	}
	return features, nil
}

// derivKernels builds the pair of separable 1-D kernels for a Sobel-style
// first derivative of the given odd aperture: a binomial smoothing kernel
// and a differentiating kernel. Size 1 selects the plain [1 0 -1]
// difference with no smoothing.
func derivKernels(size int) (smooth, deriv []float64) {
	if size == 1 {
		return []float64{1}, []float64{1, 0, -1}
	}
	smooth = binomial(size)
	deriv = convolve1D(binomial(size-1), []float64{1, -1})
	return smooth, deriv
}

// binomial returns the Pascal triangle row of the given length.
func binomial(n int) []float64 {
	row := []float64{1}
	for len(row) < n {
		row = convolve1D(row, []float64{1, 1})
	}
	return row
}

// convolve1D returns the full discrete convolution of a and b.
func convolve1D(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// sepConvolve applies kx along rows and ky along columns, replicating the
// border pixels.
func sepConvolve(p *imaging.Plane, kx, ky []float64) *imaging.Plane {
	tmp := imaging.NewPlane(p.Width, p.Height)
	ax := len(kx) / 2
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var sum float64
			for k, kv := range kx {
				sum += kv * p.AtClamped(x+k-ax, y)
			}
			tmp.Set(x, y, sum)
		}
	}

	out := imaging.NewPlane(p.Width, p.Height)
	ay := len(ky) / 2
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var sum float64
			for k, kv := range ky {
				sum += kv * tmp.AtClamped(x, y+k-ay)
			}
			out.Set(x, y, sum)
		}
	}
	return out
}

// huMoments computes the seven classical moment invariants of the plane
// from its geometric moments up to third order.
func huMoments(p *imaging.Plane) [7]float64 {
	var m00, m10, m01 float64
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := p.At(x, y)
			m00 += v
			m10 += float64(x) * v
			m01 += float64(y) * v
		}
	}

	var hu [7]float64
	if m00 == 0 {
		return hu
	}
	xbar, ybar := m10/m00, m01/m00

	// Central moments up to third order.
	var mu20, mu02, mu11, mu30, mu03, mu21, mu12 float64
	for y := 0; y < p.Height; y++ {
		dy := float64(y) - ybar
		for x := 0; x < p.Width; x++ {
			dx := float64(x) - xbar
			v := p.At(x, y)
			mu20 += dx * dx * v
			mu02 += dy * dy * v
			mu11 += dx * dy * v
			mu30 += dx * dx * dx * v
			mu03 += dy * dy * dy * v
			mu21 += dx * dx * dy * v
			mu12 += dx * dy * dy * v
		}
	}

	// Scale-normalized central moments.
	s2 := math.Pow(m00, 2)
	s3 := math.Pow(m00, 2.5)
	n20, n02, n11 := mu20/s2, mu02/s2, mu11/s2
	n30, n03, n21, n12 := mu30/s3, mu03/s3, mu21/s3, mu12/s3

	hu[0] = n20 + n02
	hu[1] = (n20-n02)*(n20-n02) + 4*n11*n11
	hu[2] = (n30-3*n12)*(n30-3*n12) + (3*n21-n03)*(3*n21-n03)
	hu[3] = (n30+n12)*(n30+n12) + (n21+n03)*(n21+n03)
	hu[4] = (n30-3*n12)*(n30+n12)*((n30+n12)*(n30+n12)-3*(n21+n03)*(n21+n03)) +
		(3*n21-n03)*(n21+n03)*(3*(n30+n12)*(n30+n12)-(n21+n03)*(n21+n03))
	hu[5] = (n20-n02)*((n30+n12)*(n30+n12)-(n21+n03)*(n21+n03)) +
		4*n11*(n30+n12)*(n21+n03)
	hu[6] = (3*n21-n03)*(n30+n12)*((n30+n12)*(n30+n12)-3*(n21+n03)*(n21+n03)) -
		(n30-3*n12)*(n21+n03)*(3*(n30+n12)*(n30+n12)-(n21+n03)*(n21+n03))
	return hu
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
