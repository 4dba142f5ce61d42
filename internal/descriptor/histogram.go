package descriptor

import (
	"cbir-engine/internal/imaging"
	"cbir-engine/internal/types"
)

// Channel value ranges of an HSV image: hue occupies [0,180), saturation
// and value occupy [0,256).
var hsvRanges = [3]int{180, 256, 256}

// histogram computes the joint three-channel histogram of the pixels of
// hsv selected by region, L1-normalized so the result sums to one. A
// region selecting no pixels yields an all-zero histogram.
func histogram(hsv *imaging.Image, region imaging.Region, bins [3]int) types.Vector {
	hist := make(types.Vector, bins[0]*bins[1]*bins[2])
	total := 0

	for y := 0; y < hsv.Height; y++ {
		for x := 0; x < hsv.Width; x++ {
			if !region.Contains(x, y) {
				continue
			}
			c0, c1, c2 := hsv.At(x, y)
			i0 := binIndex(int(c0), hsvRanges[0], bins[0])
			i1 := binIndex(int(c1), hsvRanges[1], bins[1])
			i2 := binIndex(int(c2), hsvRanges[2], bins[2])
			hist[(i0*bins[1]+i1)*bins[2]+i2]++
			total++
		}
	}

	if total > 0 {
		inv := 1 / float64(total)
		for i := range hist {
			hist[i] *= inv
		}
	}
	return hist
}

// binIndex quantizes a channel value in [0,max) into one of n buckets.
func binIndex(v, max, n int) int {
	i := v * n / max
	if i >= n {
		i = n - 1
	}
	return i
}
