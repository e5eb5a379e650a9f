package boundary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const layerJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"WADMKC": "Kota Bandung", "WADMPR": "Jawa Barat"},
     "geometry": {"type": "Polygon", "coordinates": [[[107.5,-7.0],[107.7,-7.0],[107.7,-6.8],[107.5,-6.8],[107.5,-7.0]]]}},
    {"type": "Feature", "properties": {"WADMKC": "Kabupaten Bandung Barat"},
     "geometry": {"type": "Polygon", "coordinates": [[[107.2,-7.0],[107.5,-7.0],[107.5,-6.7],[107.2,-6.7],[107.2,-7.0]]]}},
    {"type": "Feature", "properties": {"WADMKC": "Kota Bogor"},
     "geometry": {"type": "Polygon", "coordinates": [[[106.7,-6.7],[106.9,-6.7],[106.9,-6.5],[106.7,-6.5],[106.7,-6.7]]]}}
  ]
}`

func newLayerServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("f") != "geojson" || q.Get("outFields") != "*" || q.Get("returnGeometry") != "true" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("where") == "" {
			t.Error("Expected a where clause")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch(t *testing.T) {
	srv := newLayerServer(t, layerJSON, http.StatusOK)
	c := NewClient(srv.URL+"/MapServer/0/query", "WADMKC", 5*time.Second)

	fc, err := c.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Errorf("Expected 3 features, got %d", len(fc.Features))
	}
}

func TestClient_FetchByName(t *testing.T) {
	srv := newLayerServer(t, layerJSON, http.StatusOK)
	c := NewClient(srv.URL, "WADMKC", 5*time.Second)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"case-insensitive substring", "bandung", 2},
		{"exact name", "Kota Bogor", 1},
		{"blank returns everything", "  ", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := c.FetchByName(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(fc.Features) != tt.want {
				t.Errorf("Expected %d features, got %d", tt.want, len(fc.Features))
			}
		})
	}

	if _, err := c.FetchByName(context.Background(), "surabaya"); !errors.Is(err, ErrNoBoundary) {
		t.Errorf("Expected ErrNoBoundary, got %v", err)
	}
}

func TestClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"http status", "oops", http.StatusBadGateway},
		{"arcgis error body", `{"error":{"code":400,"message":"Invalid query"}}`, http.StatusOK},
		{"not geojson", `<html></html>`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newLayerServer(t, tt.body, tt.status)
			c := NewClient(srv.URL, "WADMKC", 5*time.Second)
			if _, err := c.Fetch(context.Background(), "1=1"); !errors.Is(err, ErrUpstream) {
				t.Errorf("Expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := newLayerServer(t, layerJSON, http.StatusOK)
	c := NewClient(srv.URL, "WADMKC", 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, ""); !errors.Is(err, ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
}
