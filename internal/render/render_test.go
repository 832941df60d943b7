package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

func sampleStats() *models.AggregateStats {
	return &models.AggregateStats{
		ID:                  "run-1",
		MeterID:             "6514167223e3d1424bf82742",
		Start:               time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:                 time.Date(2023, 1, 31, 23, 30, 0, 0, time.UTC),
		Intervals:           1488,
		TotalConsumptionKWh: 12345.678,
		TotalCO2Kg:          0.3,
		AverageFuelMix: map[string]float64{
			"gas":     40,
			"wind":    59.996,
			"nuclear": 0.004,
		},
	}
}

func TestText(t *testing.T) {
	out := Text(sampleStats())

	assert.Contains(t, out, "12,345.68 kWh")
	assert.Contains(t, out, "0.3 kg")
	assert.Contains(t, out, "1,488")
	assert.Contains(t, out, " 40.00%")
	assert.Contains(t, out, " 60.00%")
	assert.Contains(t, out, "  0.00%")

	// fuels are listed alphabetically
	gas := strings.Index(out, "gas:")
	nuclear := strings.Index(out, "nuclear:")
	wind := strings.Index(out, "wind:")
	require.True(t, gas > 0 && nuclear > 0 && wind > 0)
	assert.Less(t, gas, nuclear)
	assert.Less(t, nuclear, wind)
}

func TestHTML(t *testing.T) {
	s := sampleStats()
	s.TotalConsumptionKWh = 3.5

	out, err := HTML(s)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<div>"))
	assert.Contains(t, out, "Building Energy Consumption: 3.5 kWh <br>")
	assert.Contains(t, out, "Amount of CO2 produced: 0.3kg <br>")
	assert.Contains(t, out, "~ gas: 40.00% <br>")
	assert.Contains(t, out, "~ wind: 60.00% <br>")
	assert.Contains(t, out, "~ nuclear: 0.00% <br>")
}

func TestHTML_EscapesFuelNames(t *testing.T) {
	s := sampleStats()
	s.AverageFuelMix = map[string]float64{"<script>": 100}

	out, err := HTML(s)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRender(t *testing.T) {
	s := sampleStats()

	out, err := Render(s, "json")
	require.NoError(t, err)
	var decoded models.AggregateStats
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, s.MeterID, decoded.MeterID)
	assert.Equal(t, s.AverageFuelMix, decoded.AverageFuelMix)

	out, err = Render(s, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Fuel Mix")

	_, err = Render(s, "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "3.5 kWh", FormatKWh(3.5))
	assert.Equal(t, "1,234,567.89 kWh", FormatKWh(1234567.891))
	assert.Equal(t, "0.3 kg", FormatKg(0.3))
	assert.Equal(t, " 40.00%", FormatPercent(40))
}
