package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
)

func renderRecorder(t *testing.T, codes []string, format string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	renderCodes(c, codes, format, coverageMeta{Precision: 6})
	return w
}

// Stored code lists (job results, cache entries) can hold codes that no
// longer decode. They are dropped from the output and counted in a header.
func TestRenderCodes_SkipsUndecodableCodes(t *testing.T) {
	codes := []string{"qqguwr", "qqgu!!", "qqguwx"}

	t.Run("geojson", func(t *testing.T) {
		w := renderRecorder(t, codes, FormatGeoJSON)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if got := w.Header().Get(SkippedHeader); got != "1" {
			t.Errorf("Expected %s 1, got %q", SkippedHeader, got)
		}
		fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
		if err != nil {
			t.Fatalf("Expected a FeatureCollection, got %v", err)
		}
		if len(fc.Features) != 2 {
			t.Errorf("Expected 2 features, got %d", len(fc.Features))
		}
	})

	t.Run("csv", func(t *testing.T) {
		w := renderRecorder(t, codes, FormatCSV)
		if got := w.Header().Get(SkippedHeader); got != "1" {
			t.Errorf("Expected %s 1, got %q", SkippedHeader, got)
		}
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		if len(lines) != 3 {
			t.Errorf("Expected header plus 2 rows, got %d lines", len(lines))
		}
		if strings.Contains(w.Body.String(), "qqgu!!") {
			t.Error("Expected the bad code to be left out of the CSV")
		}
	})

	t.Run("codes are passed through", func(t *testing.T) {
		w := renderRecorder(t, codes, FormatCodes)
		if got := w.Header().Get(SkippedHeader); got != "" {
			t.Errorf("Expected no %s on a plain list, got %q", SkippedHeader, got)
		}
		var body struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if body.Count != 3 {
			t.Errorf("Expected count 3, got %d", body.Count)
		}
	})
}

func TestRenderCodes_CleanListHasNoSkippedHeader(t *testing.T) {
	w := renderRecorder(t, []string{"qqguwr"}, FormatGeoJSON)
	if got := w.Header().Get(SkippedHeader); got != "" {
		t.Errorf("Expected no %s, got %q", SkippedHeader, got)
	}
}
