package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntervalReading represents a single half-hour of building electricity usage
type IntervalReading struct {
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	ConsumptionKWh decimal.Decimal `json:"consumption_kwh"`
	Units          string          `json:"units"` // "kWh"
	MeterID        string          `json:"meter_id"`
	MeterNumber    string          `json:"meter_number,omitempty"`
	CustomerID     string          `json:"customer_id,omitempty"`
}

// IntervalData is the consumption window returned by the energy API
type IntervalData struct {
	StartInterval time.Time         `json:"start_interval"`
	EndInterval   time.Time         `json:"end_interval"`
	Granularity   string            `json:"granularity"`
	Readings      []IntervalReading `json:"readings"`
}
