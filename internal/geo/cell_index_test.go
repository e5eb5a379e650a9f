package geo

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func TestCellIndex_Add(t *testing.T) {
	index, err := NewCellIndex(6)
	if err != nil {
		t.Fatalf("NewCellIndex() error = %v", err)
	}

	p, err := index.Add("poi-1", -6.2, 106.8)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if p.Geohash != "qqguwr" {
		t.Errorf("Expected qqguwr, got %s", p.Geohash)
	}
	if p.Location.Latitude != -6.2 || p.Location.Longitude != 106.8 {
		t.Errorf("Unexpected location %+v", p.Location)
	}
	if index.Count("qqguwr") != 1 {
		t.Errorf("Expected count 1, got %d", index.Count("qqguwr"))
	}
}

func TestCellIndex_AddMovesPoint(t *testing.T) {
	index, _ := NewCellIndex(6)

	index.Add("poi-1", -6.2, 106.8)
	index.Add("poi-1", 37.7749, -122.4194)

	if index.Len() != 1 {
		t.Errorf("Expected 1 point, got %d", index.Len())
	}
	if index.Count("qqguwr") != 0 {
		t.Error("Expected old cell to be empty")
	}
	if index.Count("9q8yyk") != 1 {
		t.Error("Expected point in new cell")
	}
	if cells := index.Cells(); len(cells) != 1 || cells[0] != "9q8yyk" {
		t.Errorf("Expected only 9q8yyk, got %v", cells)
	}
}

func TestCellIndex_Remove(t *testing.T) {
	index, _ := NewCellIndex(6)
	index.Add("poi-1", -6.2, 106.8)
	index.Remove("poi-1")
	index.Remove("poi-unknown")

	if index.Len() != 0 {
		t.Errorf("Expected 0 points, got %d", index.Len())
	}
	if _, ok := index.Get("poi-1"); ok {
		t.Error("Expected poi-1 to be gone")
	}
	if len(index.Counts()) != 0 {
		t.Error("Expected no occupied cells")
	}
}

func TestCellIndex_Counts(t *testing.T) {
	index, _ := NewCellIndex(6)
	index.Add("a", -6.2, 106.8)
	index.Add("b", -6.2001, 106.8001)
	index.Add("c", 37.7749, -122.4194)

	counts := index.Counts()
	if counts["qqguwr"] != 2 || counts["9q8yyk"] != 1 {
		t.Errorf("Unexpected counts %v", counts)
	}
	if cells := index.Cells(); len(cells) != 2 || cells[0] != "9q8yyk" || cells[1] != "qqguwr" {
		t.Errorf("Expected sorted cells, got %v", cells)
	}
}

func TestCellIndex_Invalid(t *testing.T) {
	if _, err := NewCellIndex(0); !errors.Is(err, ErrInvalidPrecision) {
		t.Errorf("Expected ErrInvalidPrecision, got %v", err)
	}
	index, _ := NewCellIndex(6)
	if _, err := index.Add("x", 95, 0); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("Expected ErrInvalidCoordinate, got %v", err)
	}
	if index.Len() != 0 {
		t.Error("Expected invalid point not to be stored")
	}
}

func TestCellIndex_Nearby(t *testing.T) {
	index, _ := NewCellIndex(6)
	ctx := context.Background()

	index.Add("same", 37.7749, -122.4194)
	index.Add("close", 37.7789, -122.4194) // ~0.45 km north
	index.Add("far", 37.8044, -122.2712)   // ~13 km away

	results, err := index.Nearby(ctx, 37.7749, -122.4194, 1.0)
	if err != nil {
		t.Fatalf("Nearby() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 nearby points, got %d", len(results))
	}
	if results[0].Point.ID != "same" || results[1].Point.ID != "close" {
		t.Errorf("Expected nearest first, got %s then %s", results[0].Point.ID, results[1].Point.ID)
	}
	if results[0].DistanceKm > results[1].DistanceKm {
		t.Error("Expected results sorted by distance")
	}
}

func BenchmarkCellIndexNearby(b *testing.B) {
	index, _ := NewCellIndex(6)
	for i := 0; i < 1000; i++ {
		lat := 37.7 + float64(i%100)*0.001
		lon := -122.5 + float64(i/100)*0.001
		index.Add(strconv.Itoa(i), lat, lon)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		index.Nearby(ctx, 37.75, -122.45, 2.0)
	}
}
