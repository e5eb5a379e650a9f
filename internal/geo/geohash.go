// Package geo implements the geohash codec and the coverage engine that turns
// polygonal regions into sets of fixed-precision geohash cells (and back).
//
// Go Learning Note — What is a Geohash?
// A geohash is a way to encode a latitude/longitude pair into a short string.
// Every extra character halves the cell a few more times, so nearby locations
// share a common prefix. "qqguwr" is a ~1.2 km x 0.6 km cell in Jakarta and
// every point inside it starts with those six characters.
//
// Precision determines the cell size:
//
//	1 → ~5000 km    4 → ~39 km     7 → ~153 m    10 → ~1.2 m
//	2 → ~1250 km    5 → ~5 km      8 → ~19 m     11 → ~15 cm
//	3 → ~156 km     6 → ~1.2 km    9 → ~2.4 m    12 → ~1.9 cm
//
// Coverage work defaults to precision 6, the cell size the downstream survey
// tooling is built around.
package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// base32 is the geohash character set (32 characters). Note that 'a', 'i',
// 'l', and 'o' are excluded to avoid confusion with digits 0/1.
const (
	base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

	MinPrecision     = 1
	MaxPrecision     = 12
	DefaultPrecision = 6
)

// Directions lists the compass directions in the order Neighbors reports them.
var Directions = []string{"n", "ne", "e", "se", "s", "sw", "w", "nw"}

// offsets maps a direction to its (lat, lon) step measured in whole cells.
var offsets = map[string][2]float64{
	"n":  {1, 0},
	"ne": {1, 1},
	"e":  {0, 1},
	"se": {-1, 1},
	"s":  {-1, 0},
	"sw": {-1, -1},
	"w":  {0, -1},
	"nw": {1, -1},
}

var base32Map = map[byte]int{}

// init() runs automatically when the package is first imported, before main().
//
// Go Learning Note — init() Functions:
// Every Go package can have one or more init() functions. They run once, in
// dependency order, when the program starts. Here we pre-compute a reverse
// lookup map from base32 characters to their index positions so decoding does
// not scan the alphabet for every character.
func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// ValidateCoordinate reports ErrInvalidCoordinate for NaN or out-of-range
// latitude/longitude values.
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, lon)
	}
	return nil
}

// ValidatePrecision reports ErrInvalidPrecision when p is outside 1..12.
func ValidatePrecision(p int) error {
	if p < MinPrecision || p > MaxPrecision {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidPrecision, p, MinPrecision, MaxPrecision)
	}
	return nil
}

// Encode converts latitude and longitude to a geohash string with given precision.
//
// Algorithm overview (binary interleaving):
//  1. Start with the full range: lat [-90, 90], lon [-180, 180]
//  2. Alternate between longitude (even bits) and latitude (odd bits)
//  3. For each step, bisect the range and set bit=1 if value >= midpoint
//  4. Every 5 bits are encoded as one base32 character
//
// Go Learning Note — strings.Builder:
// strings.Builder is the idiomatic way to efficiently build strings in Go.
// It minimizes memory allocations by using an internal byte buffer. Never
// build strings with repeated concatenation (s += "x") in a loop; that
// creates a new string (and allocation) each iteration because Go strings
// are immutable.
func Encode(lat, lon float64, precision int) (string, error) {
	if err := ValidatePrecision(precision); err != nil {
		return "", err
	}
	if err := ValidateCoordinate(lat, lon); err != nil {
		return "", err
	}
	return encode(lat, lon, precision), nil
}

// encode is Encode without validation, for callers that already know the
// inputs are in range.
func encode(lat, lon float64, precision int) string {
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var hash strings.Builder
	hash.Grow(precision)
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// Normalize lower-cases a code and checks its length and alphabet. It is the
// single gate every decoding path goes through.
func Normalize(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: empty code", ErrInvalidGeohash)
	}
	if len(code) > MaxPrecision {
		return "", fmt.Errorf("%w: %q longer than %d characters", ErrInvalidGeohash, code, MaxPrecision)
	}
	code = strings.ToLower(code)
	for i := 0; i < len(code); i++ {
		if _, ok := base32Map[code[i]]; !ok {
			return "", fmt.Errorf("%w: %q has invalid character %q at %d", ErrInvalidGeohash, code, code[i], i)
		}
	}
	return code, nil
}

// decodeRange replays the binary subdivision of an already-normalized code
// and returns the final latitude and longitude ranges.
func decodeRange(code string) (minLat, maxLat, minLon, maxLon float64) {
	minLat, maxLat = -90.0, 90.0
	minLon, maxLon = -180.0, 180.0
	isEven := true

	for i := 0; i < len(code); i++ {
		cd := base32Map[code[i]]
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (minLon + maxLon) / 2
				if bit == 1 {
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if bit == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isEven = !isEven
		}
	}
	return
}

// DecodeExactly converts a geohash back to the center of its cell together
// with the half-height (latErr) and half-width (lonErr) of the cell. Any
// point that encodes to code lies within those margins of the center.
//
// Go Learning Note — Named Return Values:
// The signature uses named return values. This serves as documentation (the
// caller knows which float64 is latitude vs its error margin) and allows a
// bare `return` statement in short functions.
func DecodeExactly(code string) (lat, lon, latErr, lonErr float64, err error) {
	code, err = Normalize(code)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	minLat, maxLat, minLon, maxLon := decodeRange(code)
	lat = (minLat + maxLat) / 2
	lon = (minLon + maxLon) / 2
	latErr = (maxLat - minLat) / 2
	lonErr = (maxLon - minLon) / 2
	return
}

// Decode returns just the center of the cell.
func Decode(code string) (lat, lon float64, err error) {
	lat, lon, _, _, err = DecodeExactly(code)
	return
}

// Bounds returns the rectangle of the cell in lon/lat order.
func Bounds(code string) (orb.Bound, error) {
	code, err := Normalize(code)
	if err != nil {
		return orb.Bound{}, err
	}
	return bounds(code), nil
}

func bounds(code string) orb.Bound {
	minLat, maxLat, minLon, maxLon := decodeRange(code)
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
}

// CellSize returns the height and width of a cell at the given precision, in
// degrees. Longitude gets the extra bit when 5*precision is odd.
func CellSize(precision int) (latDeg, lonDeg float64) {
	bits := 5 * precision
	lonBits := (bits + 1) / 2
	latBits := bits / 2
	return 180 / math.Exp2(float64(latBits)), 360 / math.Exp2(float64(lonBits))
}

// RecommendedStep is the grid-scan step that samples every cell of the given
// precision at least twice along its shorter side. The scan step stays a
// caller-supplied tunable; this is only the documented starting point.
func RecommendedStep(precision int) float64 {
	latDeg, lonDeg := CellSize(precision)
	return math.Min(latDeg, lonDeg) / 2
}

// Neighbor returns the adjacent cell in the given direction ("n", "ne", ...).
// Moving across the antimeridian wraps around; moving past a pole has no
// neighbor and returns ok=false.
func Neighbor(code, direction string) (neighbor string, ok bool, err error) {
	off, known := offsets[direction]
	if !known {
		return "", false, fmt.Errorf("unknown direction %q", direction)
	}
	lat, lon, latErr, lonErr, err := DecodeExactly(code)
	if err != nil {
		return "", false, err
	}

	nLat := lat + off[0]*2*latErr
	if nLat > 90 || nLat < -90 {
		return "", false, nil
	}
	nLon := lon + off[1]*2*lonErr
	if nLon > 180 {
		nLon -= 360
	} else if nLon < -180 {
		nLon += 360
	}
	return encode(nLat, nLon, len(code)), true, nil
}

// Neighbors returns the adjacent cells of code in N, NE, E, SE, S, SW, W, NW
// order. Cells touching a pole have only five neighbors because the three on
// the far side of the pole are omitted.
func Neighbors(code string) ([]string, error) {
	result := make([]string, 0, len(Directions))
	for _, dir := range Directions {
		n, ok, err := Neighbor(code, dir)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, n)
		}
	}
	return result, nil
}

// AllNeighbors returns the normalized center cell followed by its neighbors,
// the 3x3 block used when looking at a cell together with its surroundings.
func AllNeighbors(code string) ([]string, error) {
	center, err := Normalize(code)
	if err != nil {
		return nil, err
	}
	nbs, err := Neighbors(center)
	if err != nil {
		return nil, err
	}
	return append([]string{center}, nbs...), nil
}

// Children returns the 32 cells one precision level below code, in alphabet
// order.
func Children(code string) ([]string, error) {
	code, err := Normalize(code)
	if err != nil {
		return nil, err
	}
	if len(code) == MaxPrecision {
		return nil, fmt.Errorf("%w: %q is already at maximum precision", ErrInvalidPrecision, code)
	}
	return children(code), nil
}

func children(code string) []string {
	out := make([]string, len(base32))
	for i := 0; i < len(base32); i++ {
		out[i] = code + string(base32[i])
	}
	return out
}
