package imaging

// Region selects a subset of an image's pixels. Regions are plain
// predicates so they can be combined without allocating mask buffers.
type Region interface {
	// Contains reports whether the pixel at (x, y) belongs to the region.
	Contains(x, y int) bool
}

// Rect is the half-open rectangle [X0,X1) x [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Contains implements Region.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Ellipse is a filled axis-aligned ellipse centered at (CX, CY) with
// semi-axes RX and RY.
type Ellipse struct {
	CX, CY int
	RX, RY int
}

// Contains implements Region.
func (e Ellipse) Contains(x, y int) bool {
	if e.RX <= 0 || e.RY <= 0 {
		return x == e.CX && y == e.CY
	}
	dx := float64(x-e.CX) / float64(e.RX)
	dy := float64(y-e.CY) / float64(e.RY)
	return dx*dx+dy*dy <= 1
}

// Difference returns the region of pixels inside a but outside b.
func Difference(a, b Region) Region {
	return difference{a, b}
}

type difference struct {
	a, b Region
}

func (d difference) Contains(x, y int) bool {
	return d.a.Contains(x, y) && !d.b.Contains(x, y)
}
