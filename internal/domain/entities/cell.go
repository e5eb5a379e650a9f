package entities

// CellRow is one line of the flat geohash table: the code and the center of
// its cell.
//
// Go Learning Note — Struct Embedding and JSON:
// Location is embedded without a field name, so its fields are promoted:
// row.Latitude works directly, and encoding/json flattens the embedded
// fields into the parent object, producing {"geohash":..,"lat":..,"lon":..}.
type CellRow struct {
	Geohash string `json:"geohash"`
	Location
}

// NewCellRow builds a row from a code and its decoded center.
func NewCellRow(geohash string, lat, lon float64) CellRow {
	return CellRow{Geohash: geohash, Location: NewLocation(lat, lon)}
}

// DenseCell is a cell picked by density selection, with the number of
// features that fell into it.
type DenseCell struct {
	Geohash string `json:"geohash"`
	Count   int    `json:"count"`
}

// RoadCell is the length of road network that falls inside one cell.
type RoadCell struct {
	Geohash  string  `json:"geohash"`
	LengthKm float64 `json:"length_km"`
}
