package utils

import (
	"math"
	"testing"
)

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "Same location",
			lat1:      -6.2088,
			lon1:      106.8456,
			lat2:      -6.2088,
			lon2:      106.8456,
			expected:  0,
			tolerance: 0.001,
		},
		{
			name:      "SF to Oakland",
			lat1:      37.7749,
			lon1:      -122.4194,
			lat2:      37.8044,
			lon2:      -122.2712,
			expected:  13.0, // approximately 13 km
			tolerance: 1.0,
		},
		{
			name:      "NYC to LA",
			lat1:      40.7128,
			lon1:      -74.0060,
			lat2:      34.0522,
			lon2:      -118.2437,
			expected:  3940, // approximately 3940 km
			tolerance: 50,
		},
		{
			name:      "One degree of longitude on the equator",
			lat1:      0,
			lon1:      0,
			lat2:      0,
			lon2:      1,
			expected:  111.19,
			tolerance: 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(result-tt.expected) > tt.tolerance {
				t.Errorf("HaversineDistance() = %v, expected %v (+/- %v)", result, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestPathLengthKm(t *testing.T) {
	if got := PathLengthKm(nil); got != 0 {
		t.Errorf("Expected 0 for empty path, got %v", got)
	}
	if got := PathLengthKm([][2]float64{{106.8, -6.2}}); got != 0 {
		t.Errorf("Expected 0 for single point, got %v", got)
	}

	path := [][2]float64{{0, 0}, {0.5, 0}, {1, 0}}
	want := HaversineDistance(0, 0, 0, 1)
	if got := PathLengthKm(path); math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCellDimensionsKm(t *testing.T) {
	// Precision 5 cell on the equator.
	h, w := CellDimensionsKm(0, 0.0439453125, 0.0439453125)
	if math.Abs(h-4.886) > 0.01 || math.Abs(w-4.886) > 0.01 {
		t.Errorf("Expected ~4.886 x 4.886 km, got %v x %v", h, w)
	}

	// Width shrinks away from the equator, height does not.
	h60, w60 := CellDimensionsKm(60, 0.0439453125, 0.0439453125)
	if math.Abs(h60-h) > 1e-6 {
		t.Errorf("Expected height to stay %v, got %v", h, h60)
	}
	if math.Abs(w60-w/2) > 0.01 {
		t.Errorf("Expected width about %v at 60 degrees, got %v", w/2, w60)
	}
}

func TestGenerateJobID(t *testing.T) {
	a, b := GenerateJobID(), GenerateJobID()
	if len(a) != len(JobIDPrefix)+36 {
		t.Errorf("Expected prefixed 36-char UUID, got %q", a)
	}
	if a == b {
		t.Errorf("Expected distinct IDs, got %q twice", a)
	}
	if !IsJobID(a) {
		t.Errorf("Expected %q to be recognised as a job ID", a)
	}
}

func TestIsJobID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"job_550e8400-e29b-41d4-a716-446655440000", true},
		{"550e8400-e29b-41d4-a716-446655440000", false},
		{"job_550e8400e29b41d4a716446655440000", false},
		{"job_missing", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsJobID(tt.id); got != tt.want {
			t.Errorf("IsJobID(%q): expected %v, got %v", tt.id, tt.want, got)
		}
	}
}

func BenchmarkHaversineDistance(b *testing.B) {
	for i := 0; i < b.N; i++ {
		HaversineDistance(37.7749, -122.4194, 37.8044, -122.2712)
	}
}
