package descriptor

import (
	"math"
	"testing"
)

func TestColorDescriptorDefaultLength(t *testing.T) {
	c := DefaultColor()
	if c.Dim() != 8*12*3*5 {
		t.Fatalf("default dim: got %d, want 1440", c.Dim())
	}

	vec, err := c.Describe(solidImage(20, 20, 0, 0, 255))
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if len(vec) != c.Dim() {
		t.Errorf("vector length: got %d, want %d", len(vec), c.Dim())
	}
}

func TestColorDescriptorRegionSums(t *testing.T) {
	c, err := NewColor([3]int{2, 2, 2})
	if err != nil {
		t.Fatalf("new color: %v", err)
	}

	vec, err := c.Describe(solidImage(20, 20, 128, 64, 32))
	if err != nil {
		t.Fatalf("describe: %v", err)
	}

	regionLen := 2 * 2 * 2
	for region := 0; region < 5; region++ {
		sum := vectorSum(vec[region*regionLen : (region+1)*regionLen])
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("region %d sum: got %v, want 1", region, sum)
		}
	}

	for i, v := range vec {
		if v < 0 || v > 1 {
			t.Fatalf("element %d out of [0,1]: %v", i, v)
		}
	}
}

func TestColorDescriptorDeterministic(t *testing.T) {
	c := DefaultColor()
	img := solidImage(16, 12, 1, 2, 3)

	a, err := c.Describe(img)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	b, err := c.Describe(img)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("element %d differs between identical calls: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestColorDescriptorInvalidBins(t *testing.T) {
	if _, err := NewColor([3]int{0, 12, 3}); err == nil {
		t.Error("zero bin count should be rejected")
	}
	if _, err := NewColor([3]int{8, -1, 3}); err == nil {
		t.Error("negative bin count should be rejected")
	}
}
