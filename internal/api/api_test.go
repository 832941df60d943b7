package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

const intervalBody = `{
  "startInterval": "2023-01-01T00:00:00.000Z",
  "endInterval": "2023-01-01T01:00:00.000Z",
  "granularity": "hh",
  "data": [
    {"consumption": "1.0", "consumption_units": "kWh", "customer_id": "c1", "meter_id": "m1", "meter_number": "n1", "start_interval": "2023-01-01T00:00:00.000Z"},
    {"consumption": "2.5", "consumption_units": "kWh", "customer_id": "c1", "meter_id": "m1", "meter_number": "n1", "start_interval": "2023-01-01T00:30:00.000Z"}
  ]
}`

func serve(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchEnergyConsumption(t *testing.T) {
	var got *http.Request
	srv := serve(t, http.StatusOK, intervalBody, func(r *http.Request) { got = r })

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 31, 23, 59, 59, 0, time.UTC)

	client := NewOpenvoltClient(srv.URL+"/v1/interval-data", "secret", "hh")
	data, err := client.FetchEnergyConsumption(context.Background(), "m1", start, end)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/v1/interval-data", got.URL.Path)
	assert.Equal(t, "secret", got.Header.Get("x-api-key"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	q := got.URL.Query()
	assert.Equal(t, "m1", q.Get("meter_id"))
	assert.Equal(t, "2023-01-01T00:00:00Z", q.Get("start_date"))
	assert.Equal(t, "2023-01-31T23:59:59Z", q.Get("end_date"))
	assert.Equal(t, "hh", q.Get("granularity"))

	assert.Equal(t, start, data.StartInterval)
	assert.Equal(t, start.Add(time.Hour), data.EndInterval)
	require.Len(t, data.Readings, 2)
	assert.True(t, decimal.RequireFromString("2.5").Equal(data.Readings[1].ConsumptionKWh))
	assert.Equal(t, start.Add(30*time.Minute), data.Readings[0].End)
	assert.Equal(t, "kWh", data.Readings[0].Units)
	assert.Equal(t, "n1", data.Readings[0].MeterNumber)
}

func TestFetchEnergyConsumption_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantNet bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, wantNet: true},
		{name: "not json", status: http.StatusOK, body: `<html>oops</html>`},
		{name: "missing data", status: http.StatusOK, body: `{"startInterval":"2023-01-01T00:00:00Z","endInterval":"2023-01-02T00:00:00Z"}`},
		{name: "bad consumption", status: http.StatusOK, body: `{"startInterval":"2023-01-01T00:00:00Z","endInterval":"2023-01-02T00:00:00Z","data":[{"consumption":"lots","start_interval":"2023-01-01T00:00:00Z"}]}`},
		{name: "bad interval", status: http.StatusOK, body: `{"startInterval":"yesterday","endInterval":"2023-01-02T00:00:00Z","data":[]}`},
		{name: "empty consumption", status: http.StatusOK, body: `{"startInterval":"2023-01-01T00:00:00Z","endInterval":"2023-01-02T00:00:00Z","data":[{"consumption":"","start_interval":"2023-01-01T00:00:00Z"}]}`},
		{name: "unknown granularity", status: http.StatusOK, body: `{"startInterval":"2023-01-01T00:00:00Z","endInterval":"2023-01-02T00:00:00Z","granularity":"minute","data":[{"consumption":"1","start_interval":"2023-01-01T00:00:00Z"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body, nil)
			client := NewOpenvoltClient(srv.URL, "k", "")
			_, err := client.FetchEnergyConsumption(context.Background(), "m", time.Now().Add(-time.Hour), time.Now())
			require.Error(t, err)

			var netErr *models.NetworkError
			var parseErr *models.ParseError
			if tt.wantNet {
				require.True(t, errors.As(err, &netErr), "want NetworkError, got %T", err)
				assert.Equal(t, tt.status, netErr.StatusCode)
			} else {
				assert.True(t, errors.As(err, &parseErr), "want ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestFetchEnergyConsumption_Logf(t *testing.T) {
	srv := serve(t, http.StatusOK, intervalBody, nil)

	var lines []string
	client := NewOpenvoltClient(srv.URL+"/v1/interval-data", "secret", "hh")
	client.Logf = func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	_, err := client.FetchEnergyConsumption(context.Background(), "m1", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "Requesting "+srv.URL+"/v1/interval-data", lines[0])
}

func TestFetchEnergyConsumption_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewOpenvoltClient(url, "k", "hh")
	_, err := client.FetchEnergyConsumption(context.Background(), "m", time.Now().Add(-time.Hour), time.Now())

	var netErr *models.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.StatusCode)
}

func TestFetchCarbonIntensity(t *testing.T) {
	body := `{"data":[
	  {"from":"2023-01-01T00:00Z","to":"2023-01-01T00:30Z","intensity":{"forecast":120,"actual":100,"index":"low"}},
	  {"from":"2023-01-01T00:30Z","to":"2023-01-01T01:00Z","intensity":{"forecast":210,"actual":null,"index":"moderate"}}
	]}`
	var path string
	srv := serve(t, http.StatusOK, body, func(r *http.Request) {
		path = r.URL.Path
		assert.Empty(t, r.Header.Get("x-api-key"))
	})

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	client := NewCarbonIntensityClient(srv.URL + "/")
	readings, err := client.FetchCarbonIntensity(context.Background(), from, from.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "/intensity/2023-01-01T00:00Z/2023-01-01T01:00Z", path)
	require.Len(t, readings, 2)
	assert.Equal(t, 100.0, readings[0].ActualGCO2)
	assert.Equal(t, 120.0, readings[0].ForecastGCO2)
	assert.Equal(t, "low", readings[0].Index)
	assert.Equal(t, 0.0, readings[1].ActualGCO2)
	assert.Equal(t, from.Add(30*time.Minute), readings[1].From)
}

func TestFetchFuelMix(t *testing.T) {
	body := `{"data":[
	  {"from":"2023-01-01T00:00Z","to":"2023-01-01T00:30Z","generationmix":[{"fuel":"gas","perc":50},{"fuel":"wind","perc":50}]},
	  {"from":"2023-01-01T00:30Z","to":"2023-01-01T01:00Z","generationmix":[{"fuel":"gas","perc":30},{"fuel":"wind","perc":70}]}
	]}`
	var path string
	srv := serve(t, http.StatusOK, body, func(r *http.Request) { path = r.URL.Path })

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	client := NewCarbonIntensityClient(srv.URL)
	readings, err := client.FetchFuelMix(context.Background(), from, from.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "/generation/2023-01-01T00:00Z/2023-01-01T01:00Z", path)
	require.Len(t, readings, 2)
	assert.Equal(t, map[string]float64{"gas": 30, "wind": 70}, readings[1].Mix)
}

func TestCarbonIntensityClient_Errors(t *testing.T) {
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	srv := serve(t, http.StatusBadRequest, `{"error":{"code":"400 Bad Request"}}`, nil)
	_, err := NewCarbonIntensityClient(srv.URL).FetchCarbonIntensity(context.Background(), from, from.Add(time.Hour))
	var netErr *models.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusBadRequest, netErr.StatusCode)

	srv = serve(t, http.StatusOK, `{"data":{"from":"2023-01-01T00:00Z"}}`, nil)
	_, err = NewCarbonIntensityClient(srv.URL).FetchFuelMix(context.Background(), from, from.Add(time.Hour))
	var parseErr *models.ParseError
	assert.True(t, errors.As(err, &parseErr))

	srv = serve(t, http.StatusOK, `{}`, nil)
	_, err = NewCarbonIntensityClient(srv.URL).FetchCarbonIntensity(context.Background(), from, from.Add(time.Hour))
	assert.True(t, errors.As(err, &parseErr))

	srv = serve(t, http.StatusOK, `{"data":[{"from":"soon","to":"later","intensity":{}}]}`, nil)
	_, err = NewCarbonIntensityClient(srv.URL).FetchCarbonIntensity(context.Background(), from, from.Add(time.Hour))
	assert.True(t, errors.As(err, &parseErr))
}
