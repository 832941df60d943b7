package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jgoulah/gridcarbon/internal/api"
	"github.com/jgoulah/gridcarbon/internal/config"
	"github.com/jgoulah/gridcarbon/internal/render"
	"github.com/jgoulah/gridcarbon/internal/stats"
	"github.com/jgoulah/gridcarbon/pkg/models"
	"github.com/spf13/cobra"
)

var (
	statsMeter  string
	statsStart  string
	statsEnd    string
	statsFormat string
	statsSave   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute consumption, CO2 and fuel mix for a period",
	Long: `Fetches the meter's half-hourly consumption for the period, then carbon intensity
and generation mix for the exact window the meter data covers, and prints the totals.

Any failure (network, malformed response, or datasets that do not line up interval
for interval) aborts the run and nothing is printed.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsMeter, "meter", "", "Meter ID (default: openvolt.meter_id from config)")
	statsCmd.Flags().StringVar(&statsStart, "start", "", "Period start, RFC3339 or YYYY-MM-DD (default: period.start from config)")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "Period end, RFC3339 or YYYY-MM-DD (default: period.end from config)")
	statsCmd.Flags().StringVar(&statsFormat, "format", "text", "Output format: text, html or json")
	statsCmd.Flags().BoolVar(&statsSave, "save", false, "Store the run and its readings in the database")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if statsMeter != "" {
		cfg.Openvolt.MeterID = statsMeter
	}
	if statsStart != "" {
		cfg.Period.Start = statsStart
	}
	if statsEnd != "" {
		cfg.Period.End = statsEnd
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	start, end, err := cfg.GetPeriod()
	if err != nil {
		return err
	}

	// Progress goes to stderr so html/json output stays clean
	logf := func(format string, args ...interface{}) {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
	logf("=== Stats started at %s ===", time.Now().Format("2006-01-02 15:04:05 MST"))
	logf("Meter %s, %s to %s", cfg.Openvolt.MeterID, start.Format(time.RFC3339), end.Format(time.RFC3339))

	agg := newAggregator(cfg, start, end, logf)

	res, err := agg.Run(cmd.Context())
	if err != nil {
		return describeFailure(err)
	}

	out, err := render.Render(res.Stats, statsFormat)
	if err != nil {
		return err
	}

	if statsSave {
		if err := saveRun(res); err != nil {
			return err
		}
		logf("✓ Saved run %s", res.Stats.ID)
	}

	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// newAggregator wires the API clients to the aggregator; logf gets progress and, with --verbose, request lines
func newAggregator(cfg *config.Config, start, end time.Time, logf api.Logf) *stats.Aggregator {
	energy := api.NewOpenvoltClient(cfg.GetEnergyBaseURL(), cfg.Openvolt.APIKey, cfg.GetGranularity())
	carbon := api.NewCarbonIntensityClient(cfg.GetCarbonBaseURL())
	if verbose {
		energy.Logf = logf
		carbon.Logf = logf
	}

	agg := stats.NewAggregator(energy, carbon, cfg.Openvolt.MeterID, start, end)
	agg.Progress = logf
	return agg
}

func saveRun(res *stats.Result) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.InsertReadings(res.Energy.Readings, res.Intensity); err != nil {
		return fmt.Errorf("storing readings: %w", err)
	}
	if err := db.InsertStats(res.Stats); err != nil {
		return fmt.Errorf("storing stats: %w", err)
	}
	return nil
}

// describeFailure prefixes the error with its kind; the typed error stays reachable via errors.As
func describeFailure(err error) error {
	var netErr *models.NetworkError
	var parseErr *models.ParseError
	var validationErr *models.ValidationError

	switch {
	case errors.As(err, &netErr):
		return fmt.Errorf("network error: %w", err)
	case errors.As(err, &parseErr):
		return fmt.Errorf("unexpected API response: %w", err)
	case errors.As(err, &validationErr):
		return fmt.Errorf("datasets do not line up: %w", err)
	default:
		return err
	}
}
