// Package budget estimates the field budget of a mapping campaign from the
// kilometres of road to collect and the crew size.
//
// Go Learning Note — Value Calculators:
// The calculator holds the rates and nothing else, so it is safe to share
// between goroutines without locking. Each call returns a fresh Forecast value.
package budget

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when a forecast input is out of range.
var ErrInvalidInput = errors.New("invalid budget input")

// Default per-worker monthly rates in IDR.
const (
	DefaultInsurancePerWorkerMonth = 132000
	DefaultDataPlanPerWorkerMonth  = 450000
	DefaultMiscRate                = 0.05
)

// Rates are the per-worker monthly costs and the miscellaneous surcharge
// applied on top of the subtotal.
type Rates struct {
	InsurancePerWorkerMonth float64 `json:"insurance_per_worker_month"`
	DataPlanPerWorkerMonth  float64 `json:"dataplan_per_worker_month"`
	MiscRate                float64 `json:"misc_rate"`
}

// DefaultRates returns the standard rate card.
func DefaultRates() Rates {
	return Rates{
		InsurancePerWorkerMonth: DefaultInsurancePerWorkerMonth,
		DataPlanPerWorkerMonth:  DefaultDataPlanPerWorkerMonth,
		MiscRate:                DefaultMiscRate,
	}
}

// Input describes one campaign.
type Input struct {
	TargetKm   float64 `json:"target_km"`
	PricePerKm float64 `json:"price_per_km"`
	Workers    int     `json:"workers"`
	Months     float64 `json:"months"`
}

// Forecast is the itemised budget. Money items are whole rupiah.
type Forecast struct {
	Months         float64 `json:"months"`
	BasicIncentive float64 `json:"basic_incentive"`
	BonusCoverage  float64 `json:"bonus_coverage"`
	Insurance      float64 `json:"insurance"`
	DataPlan       float64 `json:"dataplan"`
	Misc           float64 `json:"miscellaneous"`
	Total          float64 `json:"total"`
}

// Calculator computes forecasts using a fixed rate card.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator. Negative rates are rejected.
func NewCalculator(r Rates) (*Calculator, error) {
	if r.InsurancePerWorkerMonth < 0 || r.DataPlanPerWorkerMonth < 0 || r.MiscRate < 0 {
		return nil, fmt.Errorf("%w: rates must not be negative", ErrInvalidInput)
	}
	return &Calculator{rates: r}, nil
}

// Rates returns the calculator's rate card.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// Forecast computes the itemised budget for in.
//
// The basic incentive and the coverage bonus are both target_km x price.
// Insurance and data plan scale with workers x months. The miscellaneous
// item is MiscRate of the sum of the four. Every item is computed unrounded
// and then rounded half-to-even on its own, so the rounded items need not
// add up to the rounded total.
func (c *Calculator) Forecast(in Input) (Forecast, error) {
	if err := in.validate(); err != nil {
		return Forecast{}, err
	}

	workerMonths := float64(in.Workers) * in.Months
	basic := in.TargetKm * in.PricePerKm
	bonus := in.TargetKm * in.PricePerKm
	insurance := c.rates.InsurancePerWorkerMonth * workerMonths
	dataplan := c.rates.DataPlanPerWorkerMonth * workerMonths
	subtotal := basic + bonus + insurance + dataplan
	misc := subtotal * c.rates.MiscRate

	return Forecast{
		Months:         math.RoundToEven(in.Months*100) / 100,
		BasicIncentive: math.RoundToEven(basic),
		BonusCoverage:  math.RoundToEven(bonus),
		Insurance:      math.RoundToEven(insurance),
		DataPlan:       math.RoundToEven(dataplan),
		Misc:           math.RoundToEven(misc),
		Total:          math.RoundToEven(subtotal + misc),
	}, nil
}

func (in Input) validate() error {
	switch {
	case math.IsNaN(in.TargetKm) || math.IsInf(in.TargetKm, 0) || in.TargetKm < 0:
		return fmt.Errorf("%w: target_km must be >= 0, got %v", ErrInvalidInput, in.TargetKm)
	case math.IsNaN(in.PricePerKm) || math.IsInf(in.PricePerKm, 0) || in.PricePerKm < 0:
		return fmt.Errorf("%w: price_per_km must be >= 0, got %v", ErrInvalidInput, in.PricePerKm)
	case in.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidInput, in.Workers)
	case math.IsNaN(in.Months) || math.IsInf(in.Months, 0) || in.Months <= 0:
		return fmt.Errorf("%w: months must be > 0, got %v", ErrInvalidInput, in.Months)
	}
	return nil
}
