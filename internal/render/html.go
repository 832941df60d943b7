package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/jgoulah/gridcarbon/internal/stats"
	"github.com/jgoulah/gridcarbon/pkg/models"
)

type fuelLine struct {
	Fuel    string
	Percent string
}

var fragment = template.Must(template.New("stats").Parse(`<div>
  Building Energy Consumption: {{.Consumption}} kWh <br>
  Amount of CO2 produced: {{.CO2}}kg <br>
  Fuel Mix: <br>
  <code>
{{- range .Fuels}}
    ~ {{.Fuel}}: {{.Percent}}% <br>
{{- end}}
  </code>
</div>
`))

// HTML renders the stats as a fragment for a host page container
func HTML(s *models.AggregateStats) (string, error) {
	fuels := make([]fuelLine, 0, len(s.AverageFuelMix))
	for _, fuel := range stats.SortedFuels(s.AverageFuelMix) {
		fuels = append(fuels, fuelLine{
			Fuel:    fuel,
			Percent: fmt.Sprintf("%.2f", s.AverageFuelMix[fuel]),
		})
	}

	var buf bytes.Buffer
	err := fragment.Execute(&buf, struct {
		Consumption string
		CO2         string
		Fuels       []fuelLine
	}{
		Consumption: formatPlain(s.TotalConsumptionKWh),
		CO2:         formatPlain(s.TotalCO2Kg),
		Fuels:       fuels,
	})
	if err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}
	return buf.String(), nil
}

// formatPlain prints the shortest exact representation, 3.5 stays "3.5"
func formatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
