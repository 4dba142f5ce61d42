package imaging

import "testing"

func TestRectHalfOpen(t *testing.T) {
	r := Rect{X0: 0, Y0: 0, X1: 2, Y1: 2}
	if !r.Contains(0, 0) || !r.Contains(1, 1) {
		t.Error("rect should contain its interior")
	}
	if r.Contains(2, 0) || r.Contains(0, 2) {
		t.Error("rect upper bounds are exclusive")
	}
	if r.Contains(-1, 0) {
		t.Error("rect should not contain negative coordinates")
	}
}

func TestEllipseContains(t *testing.T) {
	e := Ellipse{CX: 10, CY: 10, RX: 4, RY: 2}
	if !e.Contains(10, 10) {
		t.Error("center must be inside")
	}
	if !e.Contains(14, 10) || !e.Contains(10, 12) {
		t.Error("semi-axis endpoints are inside")
	}
	if e.Contains(15, 10) || e.Contains(10, 13) {
		t.Error("points beyond the semi-axes are outside")
	}
	if e.Contains(14, 12) {
		t.Error("corner of the bounding box is outside the ellipse")
	}
}

func TestEllipseDegenerateAxes(t *testing.T) {
	e := Ellipse{CX: 3, CY: 3, RX: 0, RY: 0}
	if !e.Contains(3, 3) {
		t.Error("degenerate ellipse keeps its center")
	}
	if e.Contains(4, 3) {
		t.Error("degenerate ellipse contains only its center")
	}
}

func TestDifference(t *testing.T) {
	outer := Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	hole := Rect{X0: 4, Y0: 4, X1: 6, Y1: 6}
	d := Difference(outer, hole)

	if !d.Contains(0, 0) {
		t.Error("pixel outside the hole stays in the difference")
	}
	if d.Contains(5, 5) {
		t.Error("pixel in the hole is excluded")
	}
	if d.Contains(20, 20) {
		t.Error("pixel outside the outer region is excluded")
	}
}
