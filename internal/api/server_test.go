package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cbir-engine/internal/descriptor"
	"cbir-engine/internal/engine"
	"cbir-engine/internal/storage"
	"cbir-engine/internal/types"
)

type memRecord struct {
	id  string
	vec types.Vector
}

type memStore []memRecord

func (s memStore) Scan(fn func(id string, vec types.Vector) error) error {
	for _, rec := range s {
		if err := fn(rec.id, rec.vec); err != nil {
			return err
		}
	}
	return nil
}

func newTestServer(t *testing.T, store storage.FeatureScanner) *Server {
	t.Helper()
	d, err := descriptor.NewColor(descriptor.DefaultColorBins)
	if err != nil {
		t.Fatalf("new color descriptor: %v", err)
	}
	return NewServer(
		[]descriptor.Descriptor{d},
		map[string]storage.FeatureScanner{"color": store},
		nil,
		engine.Options{Metric: engine.MetricChiSquared, Limit: 5},
	)
}

func encodePNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, memStore{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ok, _ := body["ok"].(bool); !ok {
		t.Errorf("health body: %v", body)
	}
}

func TestSearchWithQueryVector(t *testing.T) {
	dim := 1440
	mk := func(hot int) types.Vector {
		v := make(types.Vector, dim)
		v[hot] = 1
		return v
	}
	store := memStore{
		{"img1", mk(0)},
		{"img2", mk(1)},
	}
	srv := newTestServer(t, store)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req := SearchRequest{Descriptor: "color", Query: mk(0), Limit: 2}
	payload, _ := json.Marshal(req)

	resp, err := http.Post(ts.URL+"/search", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post /search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		Metric  string        `json:"metric"`
		Matches []SearchMatch `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Metric != "chi-squared" {
		t.Errorf("metric echoed: got %q", body.Metric)
	}
	if len(body.Matches) != 2 || body.Matches[0].ID != "img1" {
		t.Errorf("matches: %+v", body.Matches)
	}
	if body.Matches[0].Distance != 0 {
		t.Errorf("exact match distance: got %v", body.Matches[0].Distance)
	}
}

func TestSearchRejectsBadMetric(t *testing.T) {
	srv := newTestServer(t, memStore{{"img1", make(types.Vector, 1440)}})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	payload := `{"descriptor":"color","query":[1,2,3],"metric":"hamming"}`
	resp, err := http.Post(ts.URL+"/search", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post /search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad metric status: got %d, want 400", resp.StatusCode)
	}
}

func TestSearchRequiresQueryOrImage(t *testing.T) {
	srv := newTestServer(t, memStore{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/search", "application/json", strings.NewReader(`{"descriptor":"color"}`))
	if err != nil {
		t.Fatalf("post /search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing query status: got %d, want 400", resp.StatusCode)
	}
}

func TestDescribeEndpoint(t *testing.T) {
	srv := newTestServer(t, memStore{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req := DescribeRequest{Descriptor: "color", Image: encodePNG(t, 16, 16, color.RGBA{255, 0, 0, 255})}
	payload, _ := json.Marshal(req)

	resp, err := http.Post(ts.URL+"/describe", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post /describe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		Descriptor string       `json:"descriptor"`
		Dim        int          `json:"dim"`
		Vector     types.Vector `json:"vector"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Descriptor != "color" || body.Dim != 1440 || len(body.Vector) != 1440 {
		t.Errorf("describe body: descriptor=%s dim=%d len=%d", body.Descriptor, body.Dim, len(body.Vector))
	}
}

func TestDescribeRejectsBadImage(t *testing.T) {
	srv := newTestServer(t, memStore{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	payload := `{"descriptor":"color","image":"!!not-base64!!"}`
	resp, err := http.Post(ts.URL+"/describe", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post /describe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad image status: got %d, want 400", resp.StatusCode)
	}
}

func TestImagesWithoutCatalog(t *testing.T) {
	srv := newTestServer(t, memStore{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/images")
	if err != nil {
		t.Fatalf("get /images: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		Images []types.ImageMeta `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Images) != 0 {
		t.Errorf("images without a catalog: %+v", body.Images)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memStore{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search")
	if err != nil {
		t.Fatalf("get /search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /search status: got %d, want 405", resp.StatusCode)
	}
}
