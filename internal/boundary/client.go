// Package boundary fetches administrative boundaries from an ArcGIS
// MapServer layer as GeoJSON. The default layer is the kabupaten/kota
// boundary set of Indonesia's geospatial agency (BIG).
package boundary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

var (
	// ErrUpstream wraps transport failures, non-200 replies and ArcGIS error
	// bodies.
	ErrUpstream = errors.New("boundary service error")
	// ErrNoBoundary is returned by FetchByName when nothing matches.
	ErrNoBoundary = errors.New("no boundary matches")
)

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 256 << 20

// Client queries one MapServer layer.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	// NameField is the attribute FetchByName filters on.
	NameField string
}

// NewClient creates a Client for the layer's query endpoint.
func NewClient(baseURL, nameField string, timeout time.Duration) *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL:   baseURL,
		NameField: nameField,
	}
}

// arcgisError is the body ArcGIS sends, often with HTTP 200, when a query
// is rejected.
type arcgisError struct {
	Error *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

// Fetch runs a query with the given SQL where clause ("1=1" when empty) and
// returns every matching feature with all attributes.
func (c *Client) Fetch(ctx context.Context, where string) (*geojson.FeatureCollection, error) {
	if strings.TrimSpace(where) == "" {
		where = "1=1"
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid boundary URL %q: %w", c.BaseURL, err)
	}
	q := u.Query()
	q.Set("where", where)
	q.Set("outFields", "*")
	q.Set("f", "geojson")
	q.Set("returnGeometry", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create boundary request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return nil, fmt.Errorf("%w: request timed out: %v", ErrUpstream, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: received HTTP status %d", ErrUpstream, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}

	var apiErr arcgisError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != nil {
		return nil, fmt.Errorf("%w: query rejected (%d): %s", ErrUpstream, apiErr.Error.Code, apiErr.Error.Message)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse GeoJSON: %v", ErrUpstream, err)
	}
	return fc, nil
}

// FetchByName fetches the whole layer and keeps the features whose name
// attribute contains name, ignoring case. Filtering happens here rather
// than in the where clause so user input never reaches the server's SQL.
func (c *Client) FetchByName(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	fc, err := c.Fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fc, nil
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		v, ok := f.Properties[c.NameField].(string)
		if ok && strings.Contains(strings.ToLower(v), name) {
			out.Append(f)
		}
	}
	if len(out.Features) == 0 {
		return out, fmt.Errorf("%w: %q", ErrNoBoundary, name)
	}
	return out, nil
}
