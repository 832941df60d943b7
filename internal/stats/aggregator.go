// Package stats aligns building consumption with grid carbon data and reduces
// the three datasets into one AggregateStats.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

// Fuels reported by the GB carbon intensity API. Averages always carry all of
// them, zero when never observed.
var Fuels = []string{"biomass", "coal", "gas", "hydro", "imports", "nuclear", "other", "solar", "wind"}

var gramsPerKilogram = decimal.NewFromInt(1000)

// EnergySource supplies building meter readings
type EnergySource interface {
	FetchEnergyConsumption(ctx context.Context, meterID string, start, end time.Time) (*models.IntervalData, error)
}

// CarbonSource supplies grid carbon intensity and generation mix
type CarbonSource interface {
	FetchCarbonIntensity(ctx context.Context, from, to time.Time) ([]models.CarbonIntensityReading, error)
	FetchFuelMix(ctx context.Context, from, to time.Time) ([]models.FuelMixReading, error)
}

// Aggregator computes stats for one meter over one window
type Aggregator struct {
	energy  EnergySource
	carbon  CarbonSource
	meterID string
	start   time.Time
	end     time.Time

	// Progress, when set, receives one line per completed step
	Progress func(format string, args ...interface{})

	now func() time.Time
}

// NewAggregator creates an aggregator for meterID over [start, end]
func NewAggregator(energy EnergySource, carbon CarbonSource, meterID string, start, end time.Time) *Aggregator {
	return &Aggregator{
		energy:  energy,
		carbon:  carbon,
		meterID: meterID,
		start:   start,
		end:     end,
		now:     time.Now,
	}
}

// Result bundles the computed stats with the datasets they were reduced from
type Result struct {
	Stats     *models.AggregateStats
	Energy    *models.IntervalData
	Intensity []models.CarbonIntensityReading
	FuelMix   []models.FuelMixReading
}

// Compute runs the fetch chain and returns only the aggregate
func (a *Aggregator) Compute(ctx context.Context) (*models.AggregateStats, error) {
	res, err := a.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Stats, nil
}

// Run fetches consumption, then intensity and fuel mix for the window the
// energy API reported, one request at a time. Any failure aborts the run.
func (a *Aggregator) Run(ctx context.Context) (*Result, error) {
	energy, err := a.energy.FetchEnergyConsumption(ctx, a.meterID, a.start, a.end)
	if err != nil {
		return nil, err
	}
	a.progress("✓ %d consumption readings (%s to %s)", len(energy.Readings),
		energy.StartInterval.Format(time.RFC3339), energy.EndInterval.Format(time.RFC3339))

	totalKWh := SumConsumption(energy.Readings)

	intensity, err := a.carbon.FetchCarbonIntensity(ctx, energy.StartInterval, energy.EndInterval)
	if err != nil {
		return nil, err
	}
	if len(intensity) != len(energy.Readings) {
		return nil, &models.ValidationError{
			Dataset:  "carbon intensity",
			Expected: len(energy.Readings),
			Got:      len(intensity),
		}
	}
	a.progress("✓ %d carbon intensity readings", len(intensity))

	totalCO2Kg := SumCO2Kg(intensity)

	mix, err := a.carbon.FetchFuelMix(ctx, energy.StartInterval, energy.EndInterval)
	if err != nil {
		return nil, err
	}
	average, err := ComputeFuelMixAverage(mix, len(intensity))
	if err != nil {
		return nil, err
	}
	a.progress("✓ %d fuel mix readings", len(mix))

	stats := &models.AggregateStats{
		ID:                  uuid.NewString(),
		MeterID:             a.meterID,
		Start:               energy.StartInterval,
		End:                 energy.EndInterval,
		Intervals:           len(energy.Readings),
		TotalConsumptionKWh: totalKWh.InexactFloat64(),
		TotalCO2Kg:          totalCO2Kg.InexactFloat64(),
		AverageFuelMix:      average,
		CreatedAt:           a.now().UTC(),
	}

	return &Result{
		Stats:     stats,
		Energy:    energy,
		Intensity: intensity,
		FuelMix:   mix,
	}, nil
}

func (a *Aggregator) progress(format string, args ...interface{}) {
	if a.Progress != nil {
		a.Progress(format, args...)
	}
}

// SumConsumption totals kWh across readings
func SumConsumption(readings []models.IntervalReading) decimal.Decimal {
	total := decimal.Zero
	for _, r := range readings {
		total = total.Add(r.ConsumptionKWh)
	}
	return total
}

// SumCO2Kg totals the actual gCO2 of every interval and converts to kilograms
func SumCO2Kg(readings []models.CarbonIntensityReading) decimal.Decimal {
	grams := decimal.Zero
	for _, r := range readings {
		grams = grams.Add(decimal.NewFromFloat(r.ActualGCO2))
	}
	return grams.Div(gramsPerKilogram)
}

// ComputeFuelMixAverage returns the arithmetic mean percentage per fuel.
// When expected > 0 the reading count must match it. An empty input is a
// ValidationError rather than a map of NaNs.
func ComputeFuelMixAverage(readings []models.FuelMixReading, expected int) (map[string]float64, error) {
	if expected > 0 && len(readings) != expected {
		return nil, &models.ValidationError{
			Dataset:  "fuel mix",
			Expected: expected,
			Got:      len(readings),
		}
	}
	if len(readings) == 0 {
		return nil, &models.ValidationError{Dataset: "fuel mix"}
	}

	sum := make(map[string]float64, len(Fuels))
	for _, fuel := range Fuels {
		sum[fuel] = 0
	}
	for _, r := range readings {
		for fuel, perc := range r.Mix {
			sum[fuel] += perc
		}
	}

	n := float64(len(readings))
	average := make(map[string]float64, len(sum))
	for fuel, total := range sum {
		average[fuel] = total / n
	}
	return average, nil
}

// SortedFuels returns the keys of a fuel mix in name order
func SortedFuels(mix map[string]float64) []string {
	fuels := make([]string, 0, len(mix))
	for fuel := range mix {
		fuels = append(fuels, fuel)
	}
	sort.Strings(fuels)
	return fuels
}

// Describe is a one-line summary used in progress output
func Describe(s *models.AggregateStats) string {
	return fmt.Sprintf("%s %s..%s: %.2f kWh, %.3f kg CO2 over %d intervals",
		s.MeterID, s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"),
		s.TotalConsumptionKWh, s.TotalCO2Kg, s.Intervals)
}
