package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"geocover/internal/domain/entities"
	"geocover/internal/geo"
	"geocover/internal/logger"
)

// Output formats for code lists.
const (
	FormatGeoJSON = "geojson"
	FormatCSV     = "csv"
	FormatCodes   = "codes"
	FormatJSON    = "json"
)

// WarningHeader carries the no-coverage warning on otherwise successful
// responses.
const WarningHeader = "X-Coverage-Warning"

// SkippedHeader counts codes left out of a rendered response because they
// did not decode.
const SkippedHeader = "X-Coverage-Skipped"

// coverageMeta describes a code list being rendered.
type coverageMeta struct {
	Precision int
	CacheHit  bool
	Warning   string
}

// renderCodes writes codes as a FeatureCollection, a geohash,lat,lon CSV or
// a plain JSON list.
func renderCodes(c *gin.Context, codes []string, format string, meta coverageMeta) {
	c.Header("X-Coverage-Cells", strconv.Itoa(len(codes)))
	if meta.CacheHit {
		c.Header("X-Cache", "hit")
	} else {
		c.Header("X-Cache", "miss")
	}
	if meta.Warning != "" {
		c.Header(WarningHeader, meta.Warning)
	}

	switch format {
	case "", FormatGeoJSON:
		fc, failures := geo.ToFeatureCollection(codes)
		reportSkipped(c, failures)
		c.JSON(http.StatusOK, fc)
	case FormatCSV:
		rows, failures := geo.ToTable(codes)
		reportSkipped(c, failures)
		writeCSV(c, "coverage.csv", rows)
	case FormatCodes, FormatJSON:
		if codes == nil {
			codes = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"codes":     codes,
			"count":     len(codes),
			"precision": meta.Precision,
			"cache_hit": meta.CacheHit,
			"warning":   meta.Warning,
		})
	default:
		respondError(c, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
	}
}

// reportSkipped logs codes that could not be rendered. Engine output always
// decodes, but job results and cache entries are stored data and may not.
func reportSkipped(c *gin.Context, failures []geo.CellFailure) {
	if len(failures) == 0 {
		return
	}
	c.Header(SkippedHeader, strconv.Itoa(len(failures)))
	for _, f := range failures {
		logger.L().Warn("cell_render_skipped", "path", c.FullPath(), "row", f.Index, "geohash", f.Geohash, "reason", f.Reason)
	}
}

func writeCSV(c *gin.Context, filename string, rows []entities.CellRow) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := geo.WriteCSV(c.Writer, rows); err != nil {
		// Headers are gone already; all that is left is to log it.
		logger.L().Warn("csv_write_failed", "err", err)
	}
}

// checkFormat rejects unknown output formats before any work is done.
func checkFormat(format string) error {
	switch format {
	case "", FormatGeoJSON, FormatCSV, FormatCodes, FormatJSON:
		return nil
	}
	return fmt.Errorf("%w: unknown format %q", errBadRequest, format)
}
