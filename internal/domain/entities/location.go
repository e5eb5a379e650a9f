package entities

// Location represents a geographic coordinate pair (latitude/longitude).
//
// Go Learning Note — Value Types vs Reference Types:
// Location is a small, immutable data holder. NewLocation returns it by value
// (not a pointer), which is idiomatic for small structs. Value types are copied
// on assignment, which is fine here since Location is only 16 bytes (two float64s).
// By contrast, larger or mutable structs (like CoverageJob) are returned as
// pointers to avoid expensive copies and allow shared mutation.
//
// Go Learning Note — Custom JSON Field Names:
// The struct tag `json:"lat"` makes this field serialize as "lat" instead of
// "Latitude" in JSON. The "omitempty" option (seen on other structs) omits the
// field from JSON output when it holds its zero value.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// NewLocation creates a Location value from latitude and longitude.
func NewLocation(lat, lon float64) Location {
	return Location{
		Latitude:  lat,
		Longitude: lon,
	}
}
