package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"geocover/internal/geo"
	"geocover/internal/services"
)

type CellHandler struct {
	cells *services.CellService
}

func NewCellHandler(cells *services.CellService) *CellHandler {
	return &CellHandler{cells: cells}
}

// readCodes accepts a text/csv body with a geohash column, a GeoJSON
// FeatureCollection of cells, or {"codes": [...]}. Features without a
// readable code are returned as failures indexed by feature position.
func (h *CellHandler) readCodes(c *gin.Context) ([]string, []geo.CellFailure, error) {
	data, err := c.GetRawData()
	if err != nil {
		return nil, nil, err
	}
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		codes, err := geo.ReadCodesCSV(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return codes, nil, nil
	}

	var body struct {
		Type  string   `json:"type"`
		Codes []string `json:"codes"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if body.Type == "FeatureCollection" {
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		codes, failures := h.cells.CodesFromCollection(fc)
		return codes, failures, nil
	}
	return body.Codes, nil, nil
}

func failuresOrEmpty(f []geo.CellFailure) []geo.CellFailure {
	if f == nil {
		return []geo.CellFailure{}
	}
	return f
}

// GeoJSON handles POST /v1/cells/geojson
func (h *CellHandler) GeoJSON(c *gin.Context) {
	codes, readFailures, err := h.readCodes(c)
	if err != nil {
		respondError(c, err)
		return
	}
	fc, failures := h.cells.GeoJSON(codes)
	c.JSON(http.StatusOK, gin.H{
		"collection": fc,
		"failures":   failuresOrEmpty(append(readFailures, failures...)),
	})
}

// Table handles POST /v1/cells/table
func (h *CellHandler) Table(c *gin.Context) {
	format := c.DefaultQuery("format", FormatJSON)
	if format != FormatJSON && format != FormatCSV {
		respondError(c, fmt.Errorf("%w: table format must be json or csv", errBadRequest))
		return
	}
	codes, readFailures, err := h.readCodes(c)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, failures := h.cells.Table(codes)
	failures = append(readFailures, failures...)

	if format == FormatCSV {
		c.Header("X-Cell-Failures", strconv.Itoa(len(failures)))
		writeCSV(c, "geohash.csv", rows)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":     rows,
		"failures": failuresOrEmpty(failures),
	})
}

// Decode handles GET /v1/cells/:geohash
func (h *CellHandler) Decode(c *gin.Context) {
	lat, lon, latErr, lonErr, err := geo.DecodeExactly(c.Param("geohash"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"geohash": strings.ToLower(c.Param("geohash")),
		"lat":     lat,
		"lon":     lon,
		"lat_err": latErr,
		"lon_err": lonErr,
		"bbox":    []float64{lon - lonErr, lat - latErr, lon + lonErr, lat + latErr},
	})
}

// Neighbors handles GET /v1/cells/:geohash/neighbors
func (h *CellHandler) Neighbors(c *gin.Context) {
	nbs, err := h.cells.Neighbors(c.Param("geohash"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"geohash":   strings.ToLower(c.Param("geohash")),
		"neighbors": nbs,
	})
}

// Encode handles GET /v1/encode?lat=&lon=&precision=
func (h *CellHandler) Encode(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
	if err1 != nil || err2 != nil {
		respondError(c, fmt.Errorf("%w: lat and lon must be numbers", geo.ErrInvalidCoordinate))
		return
	}
	precision := geo.DefaultPrecision
	if v := c.Query("precision"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			respondError(c, fmt.Errorf("%w: %q is not an integer", geo.ErrInvalidPrecision, v))
			return
		}
		precision = p
	}

	code, err := geo.Encode(lat, lon, precision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"geohash": code, "lat": lat, "lon": lon, "precision": precision})
}

type roadLengthRequest struct {
	Codes []string                   `json:"codes"`
	Roads *geojson.FeatureCollection `json:"roads"`
}

// RoadLength handles POST /v1/cells/road-length
func (h *CellHandler) RoadLength(c *gin.Context) {
	var req roadLengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, failures, err := h.cells.RoadLength(c.Request.Context(), req.Codes, req.Roads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cells":    res.Cells,
		"total_km": res.TotalKm,
		"segments": res.Segments,
		"skipped":  res.Skipped,
		"failures": failuresOrEmpty(failures),
	})
}
