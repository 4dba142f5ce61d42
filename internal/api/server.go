package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"cbir-engine/internal/descriptor"
	"cbir-engine/internal/engine"
	"cbir-engine/internal/imaging"
	"cbir-engine/internal/storage"
	"cbir-engine/internal/types"
)

// Server exposes the descriptors and the ranking engine over HTTP JSON.
type Server struct {
	descriptors map[string]descriptor.Descriptor
	stores      map[string]storage.FeatureScanner
	catalog     *storage.Catalog
	defaults    engine.Options
}

// NewServer wires the per-descriptor stores and the catalog into an HTTP
// handler. defaults seeds the ranking options of /search requests.
func NewServer(descriptors []descriptor.Descriptor, stores map[string]storage.FeatureScanner, catalog *storage.Catalog, defaults engine.Options) *Server {
	byName := make(map[string]descriptor.Descriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name()] = d
	}
	return &Server{
		descriptors: byName,
		stores:      stores,
		catalog:     catalog,
		defaults:    defaults,
	}
}

// DescribeRequest computes a feature vector for an inline image.
type DescribeRequest struct {
	Descriptor string `json:"descriptor"`
	Image      string `json:"image"` // base64-encoded PNG or JPEG
}

// SearchRequest ranks the store against a query. Either Query or Image
// must be set; Image is described with the selected descriptor first.
type SearchRequest struct {
	Descriptor     string       `json:"descriptor"`
	Query          types.Vector `json:"query,omitempty"`
	Image          string       `json:"image,omitempty"` // base64-encoded PNG or JPEG
	Metric         string       `json:"metric,omitempty"`
	Limit          int          `json:"limit,omitempty"`
	Offset         int          `json:"offset,omitempty"`
	MinkowskiOrder float64      `json:"minkowski_order,omitempty"`
}

// SearchMatch is one ranked result, annotated with the catalog's source
// path when available.
type SearchMatch struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
	Source   string  `json:"source,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "cbir-engine",
		"ok":         true,
		"time_utc":   time.Now().UTC().Format(time.RFC3339),
		"endpoints":  []string{"/health", "/stats", "/images", "/describe", "/search"},
		"api_schema": 1,
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	images := -1
	if s.catalog != nil {
		if n, err := s.catalog.CountImages(); err == nil {
			images = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"time_utc": time.Now().UTC().Format(time.RFC3339),
		"images":   images,
	})
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := make(map[string]any, len(s.descriptors))
	for name, d := range s.descriptors {
		records := 0
		if store, ok := s.stores[name]; ok {
			_ = store.Scan(func(string, types.Vector) error {
				records++
				return nil
			})
		}
		stats[name] = map[string]any{"dim": d.Dim(), "records": records}
	}
	writeJSON(w, http.StatusOK, map[string]any{"descriptors": stats})
}

// HandleImages lists the catalog's image records.
func (s *Server) HandleImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	images := []types.ImageMeta{}
	if s.catalog != nil {
		err := s.catalog.ForEachImage(func(meta types.ImageMeta) error {
			images = append(images, meta)
			return nil
		})
		if err != nil {
			log.Printf("[images] list failed: %v", err)
			http.Error(w, "catalog read failed", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

func (s *Server) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DescribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, ok := s.descriptor(req.Descriptor)
	if !ok {
		http.Error(w, "unknown descriptor", http.StatusBadRequest)
		return
	}

	img, err := decodeInlineImage(req.Image)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vec, err := d.Describe(img)
	if err != nil {
		log.Printf("[describe] %s failed: %v", d.Name(), err)
		http.Error(w, "describe failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"descriptor": d.Name(),
		"dim":        len(vec),
		"vector":     vec,
	})
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, ok := s.descriptor(req.Descriptor)
	if !ok {
		http.Error(w, "unknown descriptor", http.StatusBadRequest)
		return
	}
	store, ok := s.stores[d.Name()]
	if !ok {
		http.Error(w, "no feature store for descriptor", http.StatusBadRequest)
		return
	}

	query := req.Query
	if len(query) == 0 {
		if req.Image == "" {
			http.Error(w, "query vector or image is required", http.StatusBadRequest)
			return
		}
		img, err := decodeInlineImage(req.Image)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		query, err = d.Describe(img)
		if err != nil {
			log.Printf("[search] describe %s failed: %v", d.Name(), err)
			http.Error(w, "describe failed", http.StatusInternalServerError)
			return
		}
	}

	opts := s.defaults
	if req.Metric != "" {
		opts.Metric = engine.Metric(req.Metric)
	}
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}
	if req.Offset > 0 {
		opts.Offset = req.Offset
	}
	if req.MinkowskiOrder > 0 {
		opts.MinkowskiOrder = req.MinkowskiOrder
	}

	matches, err := engine.NewRanker(store).Rank(query, opts)
	if err != nil {
		log.Printf("[search] descriptor=%s metric=%s failed: %v", d.Name(), opts.Metric, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out := make([]SearchMatch, 0, len(matches))
	for _, m := range matches {
		sm := SearchMatch{ID: m.ID, Distance: m.Distance}
		if s.catalog != nil {
			if meta, err := s.catalog.GetImage(m.ID); err == nil {
				sm.Source = meta.Source
			}
		}
		out = append(out, sm)
	}

	log.Printf("[search] descriptor=%s metric=%s matches=%d", d.Name(), opts.Metric, len(out))
	writeJSON(w, http.StatusOK, map[string]any{
		"descriptor": d.Name(),
		"metric":     string(opts.Metric),
		"matches":    out,
	})
}

// descriptor resolves a request's descriptor name; an empty name selects
// "color" when present, otherwise the single registered descriptor.
func (s *Server) descriptor(name string) (descriptor.Descriptor, bool) {
	if name == "" {
		if d, ok := s.descriptors["color"]; ok {
			return d, true
		}
		if len(s.descriptors) == 1 {
			for _, d := range s.descriptors {
				return d, true
			}
		}
		return nil, false
	}
	d, ok := s.descriptors[name]
	return d, ok
}

func decodeInlineImage(b64 string) (*imaging.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(raw))
}

// Router returns the HTTP handler for all endpoints.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleRoot)
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/stats", s.HandleStats)
	mux.HandleFunc("/images", s.HandleImages)
	mux.HandleFunc("/describe", s.HandleDescribe)
	mux.HandleFunc("/search", s.HandleSearch)
	return mux
}

// Start serves the API on addr, blocking until the listener fails.
func (s *Server) Start(addr string) error {
	log.Printf("API server listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}
