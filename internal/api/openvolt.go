package api

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

// OpenvoltClient fetches building meter interval data
type OpenvoltClient struct {
	http        *resty.Client
	baseURL     string
	granularity string

	// Logf, when set, is handed each request URL before it is sent
	Logf Logf
}

// NewOpenvoltClient creates a client for the interval-data endpoint at baseURL
func NewOpenvoltClient(baseURL, apiKey, granularity string) *OpenvoltClient {
	if granularity == "" {
		granularity = "hh"
	}
	return &OpenvoltClient{
		http:        newRestyClient().SetHeader("x-api-key", apiKey),
		baseURL:     baseURL,
		granularity: granularity,
	}
}

type intervalDataResponse struct {
	StartInterval string `json:"startInterval"`
	EndInterval   string `json:"endInterval"`
	Granularity   string `json:"granularity"`
	Data          []struct {
		Consumption      decimal.Decimal `json:"consumption"`
		ConsumptionUnits string          `json:"consumption_units"`
		CustomerID       string          `json:"customer_id"`
		MeterID          string          `json:"meter_id"`
		MeterNumber      string          `json:"meter_number"`
		StartInterval    string          `json:"start_interval"`
	} `json:"data"`
}

// FetchEnergyConsumption returns the meter's readings for [start, end]
func (c *OpenvoltClient) FetchEnergyConsumption(ctx context.Context, meterID string, start, end time.Time) (*models.IntervalData, error) {
	const op = "fetching energy consumption"

	req := c.http.R().SetQueryParams(map[string]string{
		"meter_id":    meterID,
		"start_date":  start.UTC().Format(time.RFC3339),
		"end_date":    end.UTC().Format(time.RFC3339),
		"granularity": c.granularity,
	})

	var body intervalDataResponse
	if err := getJSON(ctx, req, op, c.baseURL, c.Logf, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, &models.ParseError{Op: op, Err: errors.New("response has no data array")}
	}

	startInterval, err := parseAPITime(body.StartInterval)
	if err != nil {
		return nil, &models.ParseError{Op: op, Err: errors.Wrap(err, "startInterval")}
	}
	endInterval, err := parseAPITime(body.EndInterval)
	if err != nil {
		return nil, &models.ParseError{Op: op, Err: errors.Wrap(err, "endInterval")}
	}

	granularity := body.Granularity
	if granularity == "" {
		granularity = c.granularity
	}
	step, ok := granularityStep(granularity)
	if !ok {
		return nil, &models.ParseError{Op: op, Err: errors.Errorf("unsupported granularity %q", granularity)}
	}

	readings := make([]models.IntervalReading, 0, len(body.Data))
	for i, d := range body.Data {
		readingStart, err := parseAPITime(d.StartInterval)
		if err != nil {
			return nil, &models.ParseError{Op: op, Err: errors.Wrapf(err, "reading %d start_interval", i)}
		}
		readings = append(readings, models.IntervalReading{
			Start:          readingStart,
			End:            readingStart.Add(step),
			ConsumptionKWh: d.Consumption,
			Units:          d.ConsumptionUnits,
			MeterID:        d.MeterID,
			MeterNumber:    d.MeterNumber,
			CustomerID:     d.CustomerID,
		})
	}

	return &models.IntervalData{
		StartInterval: startInterval,
		EndInterval:   endInterval,
		Granularity:   granularity,
		Readings:      readings,
	}, nil
}

// granularityStep maps an Openvolt granularity to its interval length
func granularityStep(granularity string) (time.Duration, bool) {
	switch granularity {
	case "hh":
		return 30 * time.Minute, true
	case "hour":
		return time.Hour, true
	case "day":
		return 24 * time.Hour, true
	case "week":
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
