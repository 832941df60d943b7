package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

// CarbonIntensityClient fetches national grid intensity and generation mix.
// The API is public, no credentials are sent.
type CarbonIntensityClient struct {
	http    *resty.Client
	baseURL string

	// Logf, when set, is handed each request URL before it is sent
	Logf Logf
}

// NewCarbonIntensityClient creates a client rooted at baseURL
func NewCarbonIntensityClient(baseURL string) *CarbonIntensityClient {
	return &CarbonIntensityClient{
		http:    newRestyClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type intensityResponse struct {
	Data []struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Intensity struct {
			Forecast *float64 `json:"forecast"`
			Actual   *float64 `json:"actual"`
			Index    string   `json:"index"`
		} `json:"intensity"`
	} `json:"data"`
}

type generationResponse struct {
	Data []struct {
		From          string `json:"from"`
		To            string `json:"to"`
		GenerationMix []struct {
			Fuel string  `json:"fuel"`
			Perc float64 `json:"perc"`
		} `json:"generationmix"`
	} `json:"data"`
}

// FetchCarbonIntensity returns one reading per half hour in [from, to]
func (c *CarbonIntensityClient) FetchCarbonIntensity(ctx context.Context, from, to time.Time) ([]models.CarbonIntensityReading, error) {
	const op = "fetching carbon intensity"

	req, url := c.windowRequest("intensity", from, to)
	var body intensityResponse
	if err := getJSON(ctx, req, op, url, c.Logf, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, &models.ParseError{Op: op, Err: errors.New("response has no data array")}
	}

	readings := make([]models.CarbonIntensityReading, 0, len(body.Data))
	for i, d := range body.Data {
		start, end, err := parseWindow(d.From, d.To)
		if err != nil {
			return nil, &models.ParseError{Op: op, Err: errors.Wrapf(err, "reading %d", i)}
		}
		// Intervals without a published actual contribute nothing
		readings = append(readings, models.CarbonIntensityReading{
			From:         start,
			To:           end,
			ForecastGCO2: valueOrZero(d.Intensity.Forecast),
			ActualGCO2:   valueOrZero(d.Intensity.Actual),
			Index:        d.Intensity.Index,
		})
	}

	return readings, nil
}

// FetchFuelMix returns the generation mix per half hour in [from, to]
func (c *CarbonIntensityClient) FetchFuelMix(ctx context.Context, from, to time.Time) ([]models.FuelMixReading, error) {
	const op = "fetching fuel mix"

	req, url := c.windowRequest("generation", from, to)
	var body generationResponse
	if err := getJSON(ctx, req, op, url, c.Logf, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, &models.ParseError{Op: op, Err: errors.New("response has no data array")}
	}

	readings := make([]models.FuelMixReading, 0, len(body.Data))
	for i, d := range body.Data {
		start, end, err := parseWindow(d.From, d.To)
		if err != nil {
			return nil, &models.ParseError{Op: op, Err: errors.Wrapf(err, "reading %d", i)}
		}
		mix := make(map[string]float64, len(d.GenerationMix))
		for _, f := range d.GenerationMix {
			mix[f.Fuel] += f.Perc
		}
		readings = append(readings, models.FuelMixReading{From: start, To: end, Mix: mix})
	}

	return readings, nil
}

// windowRequest builds GET {base}/{resource}/{from}/{to}
func (c *CarbonIntensityClient) windowRequest(resource string, from, to time.Time) (*resty.Request, string) {
	fromStr := from.UTC().Format(carbonPathLayout)
	toStr := to.UTC().Format(carbonPathLayout)
	url := fmt.Sprintf("%s/%s/%s/%s", c.baseURL, resource, fromStr, toStr)
	return c.http.R(), url
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := parseAPITime(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "from")
	}
	to, err := parseAPITime(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "to")
	}
	return from, to, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
