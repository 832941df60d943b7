package render

import (
	"encoding/json"
	"fmt"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

// JSON renders the stats as indented JSON
func JSON(s *models.AggregateStats) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding stats: %w", err)
	}
	return string(data) + "\n", nil
}

// Render dispatches on format: text, html or json
func Render(s *models.AggregateStats, format string) (string, error) {
	switch format {
	case "", "text":
		return Text(s), nil
	case "html":
		return HTML(s)
	case "json":
		return JSON(s)
	default:
		return "", fmt.Errorf("unknown format: %s (available: text, html, json)", format)
	}
}
