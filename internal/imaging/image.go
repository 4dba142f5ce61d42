// Package imaging holds the pixel-level types the descriptors operate on:
// a packed 8-bit BGR buffer, the colour space conversions it supports, and
// geometric regions used to mask histogram extraction.
package imaging

import (
	"fmt"
	"image"
	"io"
	"math"

	// Register the decoders the indexer and API accept.
	_ "image/jpeg"
	_ "image/png"
)

// Channels is the number of colour channels per pixel. Pixels are stored
// interleaved in blue, green, red order.
const Channels = 3

// Image is a width x height grid of 8-bit BGR pixels. Descriptors treat it
// as read-only.
type Image struct {
	Width  int
	Height int
	Pix    []byte // len = Width*Height*Channels, row-major, BGR interleaved
}

// New returns a zeroed image of the given size.
func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*Channels),
	}
}

// At returns the blue, green and red components of the pixel at (x, y).
func (m *Image) At(x, y int) (b, g, r byte) {
	i := (y*m.Width + x) * Channels
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// Set stores the blue, green and red components of the pixel at (x, y).
func (m *Image) Set(x, y int, b, g, r byte) {
	i := (y*m.Width + x) * Channels
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = b, g, r
}

// FromImage converts a decoded standard library image into a BGR buffer.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	m := New(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r32, g32, b32, _ := src.At(x, y).RGBA()
			m.Set(x-bounds.Min.X, y-bounds.Min.Y, byte(b32>>8), byte(g32>>8), byte(r32>>8))
		}
	}
	return m
}

// Decode reads a PNG or JPEG stream and converts it to a BGR buffer.
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(src), nil
}

// ToHSV converts the image into the hue/saturation/value representation
// used by the colour descriptor. Hue is scaled to [0,180) so it fits a
// byte, saturation and value span [0,256). The receiver is not modified.
func (m *Image) ToHSV() *Image {
	out := New(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			b8, g8, r8 := m.At(x, y)
			b, g, r := float64(b8), float64(g8), float64(r8)

			v := math.Max(r, math.Max(g, b))
			mn := math.Min(r, math.Min(g, b))
			delta := v - mn

			var s float64
			if v > 0 {
				s = 255 * delta / v
			}

			var h float64
			if delta > 0 {
				switch v {
				case r:
					h = 60 * (g - b) / delta
				case g:
					h = 120 + 60*(b-r)/delta
				default:
					h = 240 + 60*(r-g)/delta
				}
				if h < 0 {
					h += 360
				}
			}

			hh := int(math.Round(h / 2))
			if hh >= 180 {
				hh -= 180
			}
			out.Set(x, y, byte(hh), byte(math.Round(s)), byte(v))
		}
	}
	return out
}

// Gray reduces the image to a single intensity plane using the usual
// luminance weights (0.299 R + 0.587 G + 0.114 B).
func (m *Image) Gray() *Plane {
	p := NewPlane(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			b, g, r := m.At(x, y)
			p.Set(x, y, math.Round(0.299*float64(r)+0.587*float64(g)+0.114*float64(b)))
		}
	}
	return p
}

// Plane is a single-channel float64 image used by the texture and shape
// pipelines.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane returns a zeroed plane of the given size.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the value at (x, y).
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Set stores the value at (x, y).
func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.Width+x] = v
}

// AtClamped returns the value at (x, y) with coordinates clamped to the
// plane bounds (replicate border).
func (p *Plane) AtClamped(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= p.Width {
		x = p.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.Height {
		y = p.Height - 1
	}
	return p.Pix[y*p.Width+x]
}

// Sample returns the bilinearly interpolated value at the fractional
// coordinate (x, y), clamping out-of-range samples to the border.
func (p *Plane) Sample(x, y float64) float64 {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)

	v00 := p.AtClamped(x0, y0)
	v10 := p.AtClamped(x0+1, y0)
	v01 := p.AtClamped(x0, y0+1)
	v11 := p.AtClamped(x0+1, y0+1)

	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy
}

// Pad returns a copy of the plane surrounded by a constant border of the
// given width and value.
func (p *Plane) Pad(border int, value float64) *Plane {
	out := NewPlane(p.Width+2*border, p.Height+2*border)
	for i := range out.Pix {
		out.Pix[i] = value
	}
	for y := 0; y < p.Height; y++ {
		copy(out.Pix[(y+border)*out.Width+border:(y+border)*out.Width+border+p.Width],
			p.Pix[y*p.Width:(y+1)*p.Width])
	}
	return out
}
