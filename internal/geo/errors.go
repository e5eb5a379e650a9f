package geo

import "errors"

// Error kinds surfaced by the codec and the coverage engine. Callers match
// them with errors.Is; the concrete error usually wraps one of these with the
// offending value attached.
var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidPrecision  = errors.New("invalid geohash precision")
	ErrInvalidGeohash    = errors.New("invalid geohash")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrNoCoverageFound   = errors.New("no coverage found")
	ErrInvalidConfig     = errors.New("invalid coverage config")
)

// CellFailure records one code that could not be converted during a batch
// operation. Batches keep going after a failure; the failures are returned
// next to the successful subset.
type CellFailure struct {
	Index   int    `json:"index"`
	Geohash string `json:"geohash"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

func newCellFailure(index int, code string, err error) CellFailure {
	return CellFailure{Index: index, Geohash: code, Reason: err.Error(), Err: err}
}

func (f CellFailure) Error() string {
	return f.Reason
}

func (f CellFailure) Unwrap() error {
	return f.Err
}
