package models

import "time"

// CarbonIntensityReading is the national grid carbon intensity for one interval
type CarbonIntensityReading struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	ForecastGCO2 float64   `json:"forecast_gco2"`
	ActualGCO2   float64   `json:"actual_gco2"`
	Index        string    `json:"index"` // "very low" .. "very high"
}

// FuelMixReading is the generation mix for one interval, fuel name to percentage
type FuelMixReading struct {
	From time.Time          `json:"from"`
	To   time.Time          `json:"to"`
	Mix  map[string]float64 `json:"mix"`
}

// AggregateStats is the result of one stats run over a consumption window
type AggregateStats struct {
	ID                  string             `json:"id"`
	MeterID             string             `json:"meter_id"`
	Start               time.Time          `json:"start"`
	End                 time.Time          `json:"end"`
	Intervals           int                `json:"intervals"`
	TotalConsumptionKWh float64            `json:"total_consumption_kwh"`
	TotalCO2Kg          float64            `json:"total_co2_kg"`
	AverageFuelMix      map[string]float64 `json:"average_fuel_mix"`
	CreatedAt           time.Time          `json:"created_at"`
}
