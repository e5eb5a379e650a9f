package geo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geocover/internal/domain/entities"
)

// PropertyGeohash is the feature property that carries a cell's code.
const PropertyGeohash = "geohash"

// codeProperties are the property names accepted when reading codes back
// out of a FeatureCollection, in order of preference. Older exports used
// "geoHash" and "Name".
var codeProperties = []string{PropertyGeohash, "geoHash", "Name"}

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{"geohash", "lat", "lon"}

// normalizeCodes validates every code, collects failures, and returns the
// valid ones deduplicated and sorted.
func normalizeCodes(codes []string) ([]string, []CellFailure) {
	var failures []CellFailure
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for i, raw := range codes {
		code, err := Normalize(strings.TrimSpace(raw))
		if err != nil {
			failures = append(failures, newCellFailure(i, raw, err))
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out, failures
}

// CellPolygon returns the closed counter-clockwise ring of a cell:
// (w,s) (e,s) (e,n) (w,n) (w,s).
func CellPolygon(code string) (orb.Polygon, error) {
	b, err := Bounds(code)
	if err != nil {
		return nil, err
	}
	return boundPolygon(b), nil
}

func boundPolygon(b orb.Bound) orb.Polygon {
	w, s := b.Min[0], b.Min[1]
	e, n := b.Max[0], b.Max[1]
	return orb.Polygon{orb.Ring{
		{w, s}, {e, s}, {e, n}, {w, n}, {w, s},
	}}
}

// ToFeatureCollection converts codes into one rectangle feature per cell,
// sorted by code, each with a "geohash" property. Invalid codes are reported
// as failures and skipped; an empty input gives an empty collection.
func ToFeatureCollection(codes []string) (*geojson.FeatureCollection, []CellFailure) {
	valid, failures := normalizeCodes(codes)
	fc := geojson.NewFeatureCollection()
	for _, code := range valid {
		f := geojson.NewFeature(boundPolygon(bounds(code)))
		f.Properties[PropertyGeohash] = code
		fc.Append(f)
	}
	return fc, failures
}

// DenseFeatureCollection renders density-selected cells, adding the feature
// count as a "count" property.
func DenseFeatureCollection(cells []entities.DenseCell) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cells {
		code, err := Normalize(c.Geohash)
		if err != nil {
			continue
		}
		f := geojson.NewFeature(boundPolygon(bounds(code)))
		f.Properties[PropertyGeohash] = code
		f.Properties["count"] = c.Count
		fc.Append(f)
	}
	return fc
}

// ToTable converts codes into center-point rows, sorted by code.
func ToTable(codes []string) ([]entities.CellRow, []CellFailure) {
	valid, failures := normalizeCodes(codes)
	rows := make([]entities.CellRow, 0, len(valid))
	for _, code := range valid {
		minLat, maxLat, minLon, maxLon := decodeRange(code)
		rows = append(rows, entities.NewCellRow(code, (minLat+maxLat)/2, (minLon+maxLon)/2))
	}
	return rows, failures
}

// WriteCSV writes rows with a geohash,lat,lon header.
//
// Go Learning Note — encoding/csv:
// csv.Writer buffers output; nothing reaches w until Flush, and write errors
// surface through Error() afterwards rather than from each Write call.
func WriteCSV(w io.Writer, rows []entities.CellRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Geohash,
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CodesFromFeatureCollection reads the code property back out of each
// feature. Features without one are reported as failures.
func CodesFromFeatureCollection(fc *geojson.FeatureCollection) ([]string, []CellFailure) {
	if fc == nil {
		return nil, nil
	}
	var (
		codes    []string
		failures []CellFailure
	)
	for i, f := range fc.Features {
		code, ok := featureCode(f)
		if !ok {
			failures = append(failures, newCellFailure(i, "", fmt.Errorf("%w: feature has no geohash property", ErrInvalidGeohash)))
			continue
		}
		codes = append(codes, code)
	}
	return codes, failures
}

func featureCode(f *geojson.Feature) (string, bool) {
	if f == nil {
		return "", false
	}
	for _, key := range codeProperties {
		if v, ok := f.Properties[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// ReadCodesCSV reads geohash codes from CSV. The code column is found by a
// case-insensitive "geohash" header; a file without such a header is read
// as a single column of codes. Blank cells are skipped; validation is left
// to the conversion that follows.
func ReadCodesCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "geohash") {
			col = i
			break
		}
	}

	var codes []string
	if col < 0 {
		// No header: the first row is data.
		col = 0
		if v := strings.TrimSpace(header[0]); v != "" {
			codes = append(codes, v)
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[col]); v != "" {
			codes = append(codes, v)
		}
	}
	return codes, nil
}
