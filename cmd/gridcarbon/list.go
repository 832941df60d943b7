package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listMeter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored stats runs",
	Long:  `Displays all stats runs saved with 'gridcarbon stats --save'.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listMeter, "meter", "", "Filter by meter ID")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListStats(listMeter)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stats runs found")
		return nil
	}

	fmt.Fprintln(out, "------------------------------------------------------------------------------------------")
	fmt.Fprintf(out, "%-36s  %-10s  %-10s  %12s  %10s  %s\n", "Run", "From", "To", "kWh", "kg CO2", "Published")
	fmt.Fprintln(out, "------------------------------------------------------------------------------------------")

	for _, run := range runs {
		published := "no"
		if run.Published {
			published = "yes"
		}
		fmt.Fprintf(out, "%-36s  %-10s  %-10s  %12.2f  %10.3f  %s\n",
			run.ID, run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"),
			run.TotalConsumptionKWh, run.TotalCO2Kg, published)
	}

	fmt.Fprintln(out, "------------------------------------------------------------------------------------------")
	fmt.Fprintf(out, "%d runs\n", len(runs))
	return nil
}
