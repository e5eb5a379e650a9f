package geo

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	reference "github.com/TomiHiltunen/geohash-golang"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lon       float64
		precision int
		want      string
	}{
		{
			name:      "Jakarta",
			lat:       -6.2,
			lon:       106.8,
			precision: 6,
			want:      "qqguwr",
		},
		{
			name:      "Jakarta full precision",
			lat:       -6.2,
			lon:       106.8,
			precision: 12,
			want:      "qqguwr36kk5z",
		},
		{
			name:      "San Francisco",
			lat:       37.7749,
			lon:       -122.4194,
			precision: 6,
			want:      "9q8yyk",
		},
		{
			name:      "New York",
			lat:       40.7128,
			lon:       -74.0060,
			precision: 6,
			want:      "dr5reg",
		},
		{
			name:      "London",
			lat:       51.5074,
			lon:       -0.1278,
			precision: 6,
			want:      "gcpvj0",
		},
		{
			name:      "Origin falls in the upper half",
			lat:       0,
			lon:       0,
			precision: 5,
			want:      "s0000",
		},
		{
			name:      "Near north pole",
			lat:       89.99,
			lon:       0,
			precision: 3,
			want:      "upb",
		},
		{
			name:      "Near antimeridian east",
			lat:       0,
			lon:       179.99,
			precision: 3,
			want:      "xbp",
		},
		{
			name:      "Near antimeridian west",
			lat:       0,
			lon:       -179.99,
			precision: 3,
			want:      "800",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.lat, tt.lon, tt.precision)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncode_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lon       float64
		precision int
		wantErr   error
	}{
		{"Latitude too high", 90.5, 0, 6, ErrInvalidCoordinate},
		{"Latitude too low", -91, 0, 6, ErrInvalidCoordinate},
		{"Longitude too high", 0, 180.1, 6, ErrInvalidCoordinate},
		{"Longitude too low", 0, -200, 6, ErrInvalidCoordinate},
		{"NaN latitude", math.NaN(), 0, 6, ErrInvalidCoordinate},
		{"Zero precision", 0, 0, 0, ErrInvalidPrecision},
		{"Precision above twelve", 0, 0, 13, ErrInvalidPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.lat, tt.lon, tt.precision)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Encode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncode_RangeEdgesAreValid(t *testing.T) {
	for _, pt := range [][2]float64{{90, 180}, {-90, -180}, {90, -180}, {-90, 180}} {
		code, err := Encode(pt[0], pt[1], 6)
		if err != nil {
			t.Errorf("Encode(%v, %v) error = %v", pt[0], pt[1], err)
			continue
		}
		if len(code) != 6 {
			t.Errorf("Encode(%v, %v) = %q, want 6 characters", pt[0], pt[1], code)
		}
	}
}

func TestEncode_MatchesReferenceImplementation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		lat := rng.Float64()*179.8 - 89.9
		lon := rng.Float64()*359.8 - 179.9
		want := reference.Encode(lat, lon)
		for p := MinPrecision; p <= MaxPrecision; p++ {
			got, err := Encode(lat, lon, p)
			if err != nil {
				t.Fatalf("Encode(%v, %v, %d) error = %v", lat, lon, p, err)
			}
			if !strings.HasPrefix(want, got) {
				t.Fatalf("Encode(%v, %v, %d) = %q, reference %q", lat, lon, p, got, want)
			}
		}
	}
}

func TestDecodeExactly(t *testing.T) {
	tests := []struct {
		name       string
		hash       string
		wantLat    float64
		wantLon    float64
		wantLatErr float64
		wantLonErr float64
	}{
		{
			name:       "Jakarta",
			hash:       "qqguwr",
			wantLat:    -6.19903564453125,
			wantLon:    106.8035888671875,
			wantLatErr: 0.00274658203125,
			wantLonErr: 0.0054931640625,
		},
		{
			name:       "Origin cell",
			hash:       "s0000",
			wantLat:    0.02197265625,
			wantLon:    0.02197265625,
			wantLatErr: 0.02197265625,
			wantLonErr: 0.02197265625,
		},
		{
			name:       "Upper case is folded",
			hash:       "QQGUWR",
			wantLat:    -6.19903564453125,
			wantLon:    106.8035888671875,
			wantLatErr: 0.00274658203125,
			wantLonErr: 0.0054931640625,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, latErr, lonErr, err := DecodeExactly(tt.hash)
			if err != nil {
				t.Fatalf("DecodeExactly() error = %v", err)
			}
			if lat != tt.wantLat || lon != tt.wantLon {
				t.Errorf("DecodeExactly() center = (%v, %v), want (%v, %v)", lat, lon, tt.wantLat, tt.wantLon)
			}
			if latErr != tt.wantLatErr || lonErr != tt.wantLonErr {
				t.Errorf("DecodeExactly() errors = (%v, %v), want (%v, %v)", latErr, lonErr, tt.wantLatErr, tt.wantLonErr)
			}
		})
	}
}

func TestDecodeExactly_InvalidGeohash(t *testing.T) {
	for _, code := range []string{"abc@1", "", "qqguwa", "qqguwr36kk5zz", "9q8 yk"} {
		t.Run(code, func(t *testing.T) {
			_, _, _, _, err := DecodeExactly(code)
			if !errors.Is(err, ErrInvalidGeohash) {
				t.Errorf("DecodeExactly(%q) error = %v, want ErrInvalidGeohash", code, err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		hash      string
		wantLat   float64
		wantLon   float64
		tolerance float64
	}{
		{
			name:      "San Francisco",
			hash:      "9q8yyk",
			wantLat:   37.7749,
			wantLon:   -122.4194,
			tolerance: 0.01,
		},
		{
			name:      "New York",
			hash:      "dr5reg",
			wantLat:   40.7128,
			wantLon:   -74.0060,
			tolerance: 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLat, gotLon, err := Decode(tt.hash)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if math.Abs(gotLat-tt.wantLat) > tt.tolerance {
				t.Errorf("Decode() lat = %v, want %v", gotLat, tt.wantLat)
			}
			if math.Abs(gotLon-tt.wantLon) > tt.tolerance {
				t.Errorf("Decode() lon = %v, want %v", gotLon, tt.wantLon)
			}
		})
	}
}

func TestEncodeDecodeRoundTripBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		lat := rng.Float64()*180 - 90
		lon := rng.Float64()*360 - 180
		p := MinPrecision + rng.Intn(MaxPrecision)

		code, err := Encode(lat, lon, p)
		if err != nil {
			t.Fatalf("Encode(%v, %v, %d) error = %v", lat, lon, p, err)
		}
		dLat, dLon, latErr, lonErr, err := DecodeExactly(code)
		if err != nil {
			t.Fatalf("DecodeExactly(%q) error = %v", code, err)
		}
		if math.Abs(dLat-lat) > latErr || math.Abs(dLon-lon) > lonErr {
			t.Fatalf("round trip of (%v, %v) at %d: got (%v±%v, %v±%v)", lat, lon, p, dLat, latErr, dLon, lonErr)
		}
	}
}

func TestBounds(t *testing.T) {
	b, err := Bounds("s0000")
	if err != nil {
		t.Fatalf("Bounds() error = %v", err)
	}
	if b.Min[0] != 0 || b.Min[1] != 0 {
		t.Errorf("Bounds() min = %v, want [0 0]", b.Min)
	}
	if b.Max[0] != 0.0439453125 || b.Max[1] != 0.0439453125 {
		t.Errorf("Bounds() max = %v, want [0.0439453125 0.0439453125]", b.Max)
	}
}

func TestCellSize(t *testing.T) {
	tests := []struct {
		precision int
		wantLat   float64
		wantLon   float64
	}{
		{1, 45, 45},
		{2, 5.625, 11.25},
		{5, 0.0439453125, 0.0439453125},
		{6, 0.0054931640625, 0.010986328125},
	}
	for _, tt := range tests {
		lat, lon := CellSize(tt.precision)
		if lat != tt.wantLat || lon != tt.wantLon {
			t.Errorf("CellSize(%d) = (%v, %v), want (%v, %v)", tt.precision, lat, lon, tt.wantLat, tt.wantLon)
		}
	}
	if got := RecommendedStep(6); got != 0.0054931640625/2 {
		t.Errorf("RecommendedStep(6) = %v", got)
	}
}

func TestNeighbors(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want []string
	}{
		{
			name: "San Francisco",
			hash: "9q8yyk",
			want: []string{"9q8yym", "9q8yyt", "9q8yys", "9q8yye", "9q8yy7", "9q8yy5", "9q8yyh", "9q8yyj"},
		},
		{
			name: "Wraps across the antimeridian",
			hash: "xbp",
			want: []string{"xbr", "802", "800", "2pb", "rzz", "rzy", "xbn", "xbq"},
		},
		{
			name: "Clamped at the north pole",
			hash: "upb",
			want: []string{"upc", "up9", "up8", "gzx", "gzz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Neighbors(tt.hash)
			if err != nil {
				t.Fatalf("Neighbors() error = %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Neighbors(%q) = %v, want %v", tt.hash, got, tt.want)
			}
		})
	}
}

func TestNeighbor(t *testing.T) {
	north, ok, err := Neighbor("9q8yyk", "n")
	if err != nil || !ok {
		t.Fatalf("Neighbor() = %v, %v, %v", north, ok, err)
	}
	if north != "9q8yym" {
		t.Errorf("North neighbor = %s, want 9q8yym", north)
	}

	if _, ok, err := Neighbor("upb", "n"); err != nil || ok {
		t.Errorf("Neighbor past the pole = ok %v err %v, want no neighbor", ok, err)
	}
	if _, _, err := Neighbor("9q8yyk", "up"); err == nil {
		t.Error("Expected error for unknown direction")
	}
	if _, _, err := Neighbor("9q8@yk", "n"); !errors.Is(err, ErrInvalidGeohash) {
		t.Errorf("Neighbor() error = %v, want ErrInvalidGeohash", err)
	}
}

func TestAllNeighbors(t *testing.T) {
	center := "9q8yyk"
	neighbors, err := AllNeighbors(center)
	if err != nil {
		t.Fatalf("AllNeighbors() error = %v", err)
	}

	if len(neighbors) != 9 {
		t.Errorf("Expected 9 neighbors (including center), got %d", len(neighbors))
	}
	if neighbors[0] != center {
		t.Errorf("First neighbor should be center, got %s", neighbors[0])
	}

	seen := make(map[string]bool)
	for _, n := range neighbors {
		if seen[n] {
			t.Errorf("Duplicate neighbor found: %s", n)
		}
		seen[n] = true
	}
}

func TestChildren(t *testing.T) {
	kids, err := Children("qqguw")
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(kids) != 32 || kids[0] != "qqguw0" || kids[31] != "qqguwz" {
		t.Errorf("Children() = %v", kids)
	}
	if _, err := Children("qqguwr36kk5z"); !errors.Is(err, ErrInvalidPrecision) {
		t.Errorf("Children() at max precision error = %v", err)
	}
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Encode(37.7749, -122.4194, 6)
	}
}

func BenchmarkDecodeExactly(b *testing.B) {
	for i := 0; i < b.N; i++ {
		DecodeExactly("9q8yyk")
	}
}
