package main

import (
	"fmt"

	"github.com/jgoulah/gridcarbon/internal/render"
	"github.com/spf13/cobra"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Render a stored stats run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "text", "Output format: text, html or json")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	run, err := db.GetStats(args[0])
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no stats run with id %s", args[0])
	}

	out, err := render.Render(&run.AggregateStats, showFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
