// Package engine ranks stored feature vectors by similarity to a query
// vector. Retrieval is an explicit linear scan over the feature store:
// every ranking call re-reads the store, scores each record under the
// selected metric and returns the closest matches.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"cbir-engine/internal/storage"
	"cbir-engine/internal/types"
)

// Metric names a distance function.
type Metric string

// Supported metrics.
const (
	MetricChiSquared Metric = "chi-squared"
	MetricEuclidean  Metric = "euclidean"
	MetricCosine     Metric = "cosine"
	MetricMinkowski  Metric = "minkowski"
)

// ErrUnsupportedMetric is returned for a metric outside the four
// supported names.
var ErrUnsupportedMetric = errors.New("unsupported distance metric")

// Options configures one ranking call. The zero value selects the
// defaults: chi-squared, limit 5, offset 0, Minkowski order 3.
type Options struct {
	// Metric selects the distance function.
	Metric Metric

	// Limit bounds the number of matches returned.
	Limit int

	// Offset skips the first matches of the sorted ranking. Callers that
	// index the query image itself set Offset to 1 to drop the
	// self-match; nothing is dropped implicitly.
	Offset int

	// MinkowskiOrder is the p of the Minkowski distance family.
	MinkowskiOrder float64

	// Eps guards divisions in the chi-squared distance.
	Eps float64
}

const (
	defaultLimit          = 5
	defaultMinkowskiOrder = 3
	defaultEps            = 1e-7
)

// Ranker scores every record of a feature store against query vectors.
// It holds no cache: each Rank call scans the store anew, so concurrent
// calls are safe as long as nobody rewrites the store mid-scan.
type Ranker struct {
	store storage.FeatureScanner
}

// NewRanker returns a ranker reading from the given store.
func NewRanker(store storage.FeatureScanner) *Ranker {
	return &Ranker{store: store}
}

// Rank scores every stored record against the query and returns up to
// opts.Limit matches ordered by ascending distance, ties broken by id so
// repeated calls give identical output. A record whose vector length
// differs from the query's is an error; if the store holds duplicate
// ids the later record silently wins.
func (r *Ranker) Rank(query types.Vector, opts Options) ([]types.Match, error) {
	if opts.Metric == "" {
		opts.Metric = MetricChiSquared
	}
	if opts.Limit == 0 {
		opts.Limit = defaultLimit
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", opts.Limit)
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("offset must not be negative, got %d", opts.Offset)
	}
	if opts.MinkowskiOrder == 0 {
		opts.MinkowskiOrder = defaultMinkowskiOrder
	}
	if opts.Eps == 0 {
		opts.Eps = defaultEps
	}

	dist, err := distanceFunc(opts)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	err = r.store.Scan(func(id string, vec types.Vector) error {
		if len(vec) != len(query) {
			return fmt.Errorf("feature record %q: vector length %d does not match query length %d",
				id, len(vec), len(query))
		}
		scores[id] = dist(query, vec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	matches := make([]types.Match, 0, len(scores))
	for id, d := range scores {
		matches = append(matches, types.Match{Distance: d, ID: id})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if opts.Offset >= len(matches) {
		return []types.Match{}, nil
	}
	matches = matches[opts.Offset:]
	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}
