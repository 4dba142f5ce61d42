package engine

import (
	"fmt"
	"math"

	"cbir-engine/internal/types"
)

// distanceFunc resolves the configured metric to a concrete distance.
// Unknown names fail here, before any store work happens.
func distanceFunc(opts Options) (func(a, b types.Vector) float64, error) {
	switch opts.Metric {
	case MetricChiSquared:
		eps := opts.Eps
		return func(a, b types.Vector) float64 {
			return chiSquared(a, b, eps)
		}, nil
	case MetricEuclidean:
		return euclidean, nil
	case MetricCosine:
		return cosine, nil
	case MetricMinkowski:
		p := opts.MinkowskiOrder
		return func(a, b types.Vector) float64 {
			return minkowski(a, b, p)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetric, opts.Metric)
}

// chiSquared is the default metric: 0.5 * sum((a-b)^2 / (a+b+eps)).
// Suited to histogram-shaped, non-negative vectors.
func chiSquared(a, b types.Vector, eps float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d / (a[i] + b[i] + eps)
	}
	return 0.5 * sum
}

// euclidean is the standard L2 distance.
func euclidean(a, b types.Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cosine is 1 - cos(a, b). A zero-norm vector has no direction: it is at
// distance 1 from everything except another zero-norm vector.
func cosine(a, b types.Vector) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 && nb == 0 {
		return 0
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// minkowski is (sum |a-b|^p)^(1/p); p=1 is Manhattan, p=2 Euclidean.
func minkowski(a, b types.Vector, p float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Pow(math.Abs(a[i]-b[i]), p)
	}
	return math.Pow(sum, 1/p)
}
