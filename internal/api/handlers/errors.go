// Package handlers holds the gin handlers of the HTTP API. Handlers parse
// and validate requests, call one service, and render the result; domain
// errors are mapped onto status codes in one place, respondError.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"geocover/internal/boundary"
	"geocover/internal/domain/entities"
	"geocover/internal/geo"
	"geocover/internal/logger"
	"geocover/internal/services"
	"geocover/pkg/budget"
)

// errBadRequest marks request-shape problems found by the handlers
// themselves (unparseable query values, missing bodies).
var errBadRequest = errors.New("bad request")

// statusFor maps an error onto an HTTP status code.
//
// Go Learning Note — errors.Is vs ==:
// Services wrap sentinel errors with context (fmt.Errorf("...: %w", err)), so
// a plain `err == geo.ErrInvalidGeohash` comparison would miss them.
// errors.Is walks the wrap chain and matches any layer.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, geo.ErrInvalidPrecision),
		errors.Is(err, geo.ErrInvalidGeohash),
		errors.Is(err, geo.ErrInvalidConfig),
		errors.Is(err, budget.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, geo.ErrInvalidGeometry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrJobNotFound),
		errors.Is(err, boundary.ErrNoBoundary):
		return http.StatusNotFound
	case errors.Is(err, services.ErrJobInProgress),
		errors.Is(err, services.ErrJobNotFinished),
		errors.Is(err, entities.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, boundary.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": "..."} with the mapped status. Unexpected
// errors are logged and their text is not sent to the client.
func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.L().Error("request_failed", "route", c.FullPath(), "err", err)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
