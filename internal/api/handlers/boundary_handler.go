package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geocover/internal/boundary"
)

type BoundaryHandler struct {
	client *boundary.Client
}

func NewBoundaryHandler(client *boundary.Client) *BoundaryHandler {
	return &BoundaryHandler{client: client}
}

// List handles GET /v1/boundaries?name=
//
// Without a name the whole layer is returned, which for the default BIG
// layer is several hundred kabupaten/kota polygons.
func (h *BoundaryHandler) List(c *gin.Context) {
	fc, err := h.client.FetchByName(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}
