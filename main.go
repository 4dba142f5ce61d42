// Unified entry point for cbir-engine.
// -cmd index walks an image directory and appends feature records to the
// per-descriptor stores. -cmd search describes a query image and prints
// the ranked matches. Without -cmd, the HTTP API is served on -addr.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"cbir-engine/internal/api"
	"cbir-engine/internal/config"
	"cbir-engine/internal/descriptor"
	"cbir-engine/internal/engine"
	"cbir-engine/internal/imaging"
	"cbir-engine/internal/indexer"
	"cbir-engine/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional, defaults apply without one)")
		envName    = flag.String("env", "", "config environment override (loads config.<env>.yaml)")
		cmd        = flag.String("cmd", "", "CLI command: index | search. If empty, serves the HTTP API")
		dataDir    = flag.String("data", "", "data directory (overrides config)")
		images     = flag.String("images", "", "image directory for -cmd index")
		query      = flag.String("query", "", "query image path for -cmd search")
		descName   = flag.String("descriptor", "", "descriptor for -cmd search: color | texture | shape")
		metric     = flag.String("metric", "", "distance metric: chi-squared | euclidean | cosine | minkowski")
		limit      = flag.Int("limit", 0, "maximum results for -cmd search")
		offset     = flag.Int("offset", -1, "ranked results to skip (set 1 to drop a self-match)")
		addr       = flag.String("addr", "", "listen address for server mode")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, *envName)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	descriptors, err := cfg.BuildDescriptors()
	if err != nil {
		log.Fatalf("descriptors: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	catalog, err := storage.NewCatalog(filepath.Join(cfg.DataDir, "catalog.db"))
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}
	defer catalog.Close()

	stores, writers, closeStores, err := openStores(cfg, descriptors, catalog)
	if err != nil {
		log.Fatalf("failed to open feature stores: %v", err)
	}
	defer closeStores()

	opts := engine.Options{
		Metric:         engine.Metric(cfg.Search.Metric),
		Limit:          cfg.Search.Limit,
		Offset:         cfg.Search.Offset,
		MinkowskiOrder: cfg.Search.MinkowskiOrder,
	}
	if *metric != "" {
		opts.Metric = engine.Metric(*metric)
	}
	if *limit > 0 {
		opts.Limit = *limit
	}
	if *offset >= 0 {
		opts.Offset = *offset
	}

	switch *cmd {
	case "index":
		if *images == "" {
			log.Fatalf("-images is required for -cmd index")
		}
		ix := indexer.New(descriptors, writers, catalog, indexer.Options{
			Extensions:   cfg.Indexer.Extensions,
			MaxDimension: cfg.Indexer.MaxDimension,
			AccessionIDs: cfg.Indexer.AccessionIDs,
		})
		if _, err := ix.Run(*images); err != nil {
			log.Fatalf("index failed: %v", err)
		}

	case "search":
		if *query == "" {
			log.Fatalf("-query is required for -cmd search")
		}
		if err := runSearch(descriptors, stores, catalog, *descName, *query, opts); err != nil {
			log.Fatalf("search failed: %v", err)
		}

	case "":
		srv := api.NewServer(descriptors, stores, catalog, opts)
		log.Printf("cbir-engine listening on %s (data=%s)", cfg.Server.Addr, cfg.DataDir)
		if err := srv.Start(cfg.Server.Addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}

	default:
		log.Fatalf("unknown command: %s", *cmd)
	}
}

// openStores builds the per-descriptor feature stores for the configured
// backend. The returned close function releases the mmap stores.
func openStores(cfg *config.Config, descriptors []descriptor.Descriptor, catalog *storage.Catalog) (map[string]storage.FeatureScanner, map[string]storage.FeatureWriter, func(), error) {
	stores := make(map[string]storage.FeatureScanner, len(descriptors))
	writers := make(map[string]storage.FeatureWriter, len(descriptors))
	var closers []func() error

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("store close error: %v", err)
			}
		}
	}

	for _, d := range descriptors {
		switch cfg.Store.Backend {
		case "mmap":
			vecs, err := storage.NewMmapStore(filepath.Join(cfg.DataDir, d.Name()+".bin"), d.Dim())
			if err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			closers = append(closers, vecs.Close)
			set := storage.NewMmapFeatureSet(d.Name(), vecs, catalog)
			stores[d.Name()] = set
			writers[d.Name()] = set
		default: // csv
			store := storage.NewCSVStore(filepath.Join(cfg.DataDir, d.Name()+".csv"))
			stores[d.Name()] = store
			writers[d.Name()] = store
		}
	}
	return stores, writers, closeAll, nil
}

// runSearch describes the query image and prints the ranked matches as
// JSON on stdout.
func runSearch(descriptors []descriptor.Descriptor, stores map[string]storage.FeatureScanner, catalog *storage.Catalog, descName, queryPath string, opts engine.Options) error {
	if descName == "" {
		descName = "color"
	}
	var desc descriptor.Descriptor
	for _, d := range descriptors {
		if d.Name() == descName {
			desc = d
			break
		}
	}
	if desc == nil {
		return fmt.Errorf("descriptor %q is not enabled", descName)
	}
	store, ok := stores[descName]
	if !ok {
		return fmt.Errorf("no feature store for descriptor %q", descName)
	}

	f, err := os.Open(queryPath)
	if err != nil {
		return err
	}
	img, err := imaging.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode query image %s: %w", queryPath, err)
	}

	queryVec, err := desc.Describe(img)
	if err != nil {
		return err
	}

	matches, err := engine.NewRanker(store).Rank(queryVec, opts)
	if err != nil {
		return err
	}

	type result struct {
		ID       string  `json:"id"`
		Distance float64 `json:"distance"`
		Source   string  `json:"source,omitempty"`
	}
	out := make([]result, 0, len(matches))
	for _, m := range matches {
		r := result{ID: m.ID, Distance: m.Distance}
		if meta, err := catalog.GetImage(m.ID); err == nil {
			r.Source = meta.Source
		}
		out = append(out, r)
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}
