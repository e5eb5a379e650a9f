package budget

import (
	"errors"
	"testing"
)

func TestCalculator_Forecast(t *testing.T) {
	calc, err := NewCalculator(DefaultRates())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   Input
		want Forecast
	}{
		{
			name: "one worker one month, no road",
			in:   Input{TargetKm: 0, PricePerKm: 8000, Workers: 1, Months: 1},
			want: Forecast{
				Months:    1,
				Insurance: 132000,
				DataPlan:  450000,
				Misc:      29100,
				Total:     611100,
			},
		},
		{
			name: "typical campaign",
			in:   Input{TargetKm: 1000, PricePerKm: 8000, Workers: 2, Months: 1.5},
			want: Forecast{
				Months:         1.5,
				BasicIncentive: 8000000,
				BonusCoverage:  8000000,
				Insurance:      396000,
				DataPlan:       1350000,
				Misc:           887300,
				Total:          18633300,
			},
		},
		{
			name: "half rupiah rounds to even",
			in:   Input{TargetKm: 0.5, PricePerKm: 5, Workers: 1, Months: 1},
			want: Forecast{
				Months:         1,
				BasicIncentive: 2,
				BonusCoverage:  2,
				Insurance:      132000,
				DataPlan:       450000,
				Misc:           29100,
				Total:          611105,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Forecast(tt.in)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCalculator_MonthsRounding(t *testing.T) {
	calc, _ := NewCalculator(DefaultRates())
	got, err := calc.Forecast(Input{Workers: 1, Months: 1.234})
	if err != nil {
		t.Fatal(err)
	}
	if got.Months != 1.23 {
		t.Errorf("Expected 1.23 months, got %v", got.Months)
	}
	// Money items use the unrounded months.
	if got.Insurance != 162888 {
		t.Errorf("Expected insurance 162888, got %v", got.Insurance)
	}
}

func TestCalculator_InvalidInput(t *testing.T) {
	calc, _ := NewCalculator(DefaultRates())
	bad := []Input{
		{TargetKm: -1, Workers: 1, Months: 1},
		{PricePerKm: -0.5, Workers: 1, Months: 1},
		{Workers: 0, Months: 1},
		{Workers: 1, Months: 0},
		{Workers: 1, Months: -2},
	}
	for _, in := range bad {
		if _, err := calc.Forecast(in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestNewCalculator_NegativeRate(t *testing.T) {
	_, err := NewCalculator(Rates{InsurancePerWorkerMonth: -1})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestCalculator_CustomRates(t *testing.T) {
	calc, _ := NewCalculator(Rates{InsurancePerWorkerMonth: 100, DataPlanPerWorkerMonth: 200, MiscRate: 0})
	got, _ := calc.Forecast(Input{TargetKm: 10, PricePerKm: 10, Workers: 3, Months: 2})
	if got.Misc != 0 || got.Total != 100+100+600+1200 {
		t.Errorf("Unexpected forecast %+v", got)
	}
	if calc.Rates().DataPlanPerWorkerMonth != 200 {
		t.Errorf("Expected rates to round-trip, got %+v", calc.Rates())
	}
}

func BenchmarkForecast(b *testing.B) {
	calc, _ := NewCalculator(DefaultRates())
	in := Input{TargetKm: 1000, PricePerKm: 8000, Workers: 2, Months: 1.5}
	for i := 0; i < b.N; i++ {
		calc.Forecast(in)
	}
}
