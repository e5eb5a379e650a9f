package geo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"geocover/pkg/utils"
)

func TestRoadLength(t *testing.T) {
	code, _ := Encode(0.02, 0.02, 5)
	east, _, _ := Neighbor(code, "e")
	north, _, _ := Neighbor(code, "n")

	road := orb.LineString{{-0.1, 0.02}, {0.1, 0.02}}
	roads := []orb.Geometry{
		road,
		orb.Point{0.02, 0.02},
		orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
	}

	res, failures, err := RoadLength(context.Background(), []string{code, east, north, "a!", code}, roads)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(failures) != 1 || !errors.Is(failures[0], ErrInvalidGeohash) {
		t.Errorf("Expected one invalid geohash failure, got %v", failures)
	}
	if res.Skipped != 2 {
		t.Errorf("Expected 2 skipped geometries, got %d", res.Skipped)
	}
	if len(res.Cells) != 3 {
		t.Fatalf("Expected 3 cells, got %d", len(res.Cells))
	}

	_, lonDeg := CellSize(5)
	width := utils.HaversineDistance(0.02, 0, 0.02, lonDeg)
	got := map[string]float64{}
	for _, c := range res.Cells {
		got[c.Geohash] = c.LengthKm
	}
	if math.Abs(got[code]-width) > 1e-6 {
		t.Errorf("Expected %v km in %s, got %v", width, code, got[code])
	}
	if math.Abs(got[east]-width) > 1e-6 {
		t.Errorf("Expected %v km in %s, got %v", width, east, got[east])
	}
	if got[north] != 0 {
		t.Errorf("Expected no road in %s, got %v", north, got[north])
	}
	if math.Abs(res.TotalKm-2*width) > 1e-6 {
		t.Errorf("Expected total %v, got %v", 2*width, res.TotalKm)
	}
	if res.Segments != 2 {
		t.Errorf("Expected 2 segments, got %d", res.Segments)
	}
}

func TestRoadLength_MultiLineAndCollection(t *testing.T) {
	code, _ := Encode(0.02, 0.02, 5)
	b, _ := Bounds(code)
	mid := b.Center()

	// Two vertical pieces fully inside the cell.
	piece := orb.LineString{{mid[0], b.Min[1] + 0.001}, {mid[0], b.Min[1] + 0.011}}
	roads := []orb.Geometry{
		orb.MultiLineString{piece},
		orb.Collection{piece, orb.Point{0, 0}},
	}
	res, _, err := RoadLength(context.Background(), []string{code}, roads)
	if err != nil {
		t.Fatal(err)
	}
	want := 2 * utils.HaversineDistance(piece[0][1], piece[0][0], piece[1][1], piece[1][0])
	if math.Abs(res.TotalKm-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, res.TotalKm)
	}
	if res.Skipped != 0 {
		t.Errorf("Expected nothing skipped, got %d", res.Skipped)
	}
}

func TestRoadLength_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := RoadLength(ctx, []string{"s0000"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
