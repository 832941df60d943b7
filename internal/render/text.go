// Package render formats AggregateStats for the terminal, HTML hosts and JSON consumers.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jgoulah/gridcarbon/internal/stats"
	"github.com/jgoulah/gridcarbon/pkg/models"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	energyStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	carbonStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)
)

const barWidth = 30

// Text renders the stats block for a terminal
func Text(s *models.AggregateStats) string {
	var b strings.Builder

	b.WriteString(renderTitle("Building Carbon Stats"))
	b.WriteString("\n\n")

	b.WriteString(row("Meter", valueStyle.Render(s.MeterID)))
	b.WriteString(row("Period", valueStyle.Render(fmt.Sprintf("%s → %s",
		s.Start.Format("2006-01-02 15:04"), s.End.Format("2006-01-02 15:04")))))

	b.WriteString(row("Building Energy Consumption", energyStyle.Render(FormatKWh(s.TotalConsumptionKWh))))
	b.WriteString(row("Amount of CO2 produced", carbonStyle.Render(FormatKg(s.TotalCO2Kg))))
	b.WriteString(row("Intervals", valueStyle.Render(humanize.Comma(int64(s.Intervals)))))
	b.WriteString("\n")

	b.WriteString("  ")
	b.WriteString(headerStyle.Render("Fuel Mix"))
	b.WriteString("\n")

	fuels := stats.SortedFuels(s.AverageFuelMix)
	width := 0
	for _, fuel := range fuels {
		if len(fuel)+1 > width {
			width = len(fuel) + 1
		}
	}
	for _, fuel := range fuels {
		pct := s.AverageFuelMix[fuel]
		b.WriteString(fmt.Sprintf("  ~ %-*s %s %s\n", width, fuel+":",
			valueStyle.Render(FormatPercent(pct)), labelStyle.Render(bar(pct))))
	}

	return b.String()
}

func renderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

func row(label, value string) string {
	return fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-28s", label+":")), value)
}

func bar(pct float64) string {
	n := int(pct / 100 * barWidth)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return strings.Repeat("█", n)
}

// FormatKWh formats an energy total, e.g. 12345.678 -> "12,345.68 kWh"
func FormatKWh(v float64) string {
	return humanize.Commaf(math.Round(v*100)/100) + " kWh"
}

// FormatKg formats a CO2 mass, e.g. 0.3 -> "0.3 kg"
func FormatKg(v float64) string {
	return humanize.Commaf(math.Round(v*1000)/1000) + " kg"
}

// FormatPercent formats a 0-100 percentage with two decimals
func FormatPercent(v float64) string {
	return fmt.Sprintf("%6.2f%%", v)
}
