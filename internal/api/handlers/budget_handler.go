package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"geocover/pkg/budget"
)

type BudgetHandler struct {
	calc *budget.Calculator
}

func NewBudgetHandler(calc *budget.Calculator) *BudgetHandler {
	return &BudgetHandler{calc: calc}
}

// Forecast handles POST /v1/budget/forecast
func (h *BudgetHandler) Forecast(c *gin.Context) {
	var in budget.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	f, err := h.calc.Forecast(in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"input":    in,
		"forecast": f,
		"rates":    h.calc.Rates(),
	})
}
