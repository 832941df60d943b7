package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/gridcarbon/internal/database"
	"github.com/jgoulah/gridcarbon/internal/publisher"
	"github.com/jgoulah/gridcarbon/internal/stats"
	"github.com/spf13/cobra"
)

var (
	publishAll   bool
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored stats runs to Home Assistant and/or MQTT",
	Long:  `Reads saved stats runs from the database and publishes them to Home Assistant via HTTP API and/or an MQTT broker.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all runs (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of runs to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.HomeAssistant.Enabled && !cfg.MQTT.Enabled {
		return fmt.Errorf("neither home_assistant nor mqtt is enabled in config")
	}

	// Create publisher
	pub, err := publisher.New(cfg.MQTT, cfg.HomeAssistant)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var runs []database.StoredStats
	if publishAll {
		runs, err = db.ListStats("")
	} else {
		runs, err = db.ListUnpublishedStats()
	}
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No unpublished runs found")
		return nil
	}

	// Apply limit if specified
	if publishLimit > 0 && len(runs) > publishLimit {
		runs = runs[:publishLimit]
		fmt.Printf("Limiting to %d runs (--limit flag)\n", publishLimit)
	}

	published := 0
	for i, run := range runs {
		fmt.Printf("[%d/%d] Publishing %s... ", i+1, len(runs), stats.Describe(&run.AggregateStats))
		if err := pub.Publish(&run.AggregateStats); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		// Mark run as published in database
		if err := db.MarkPublished(run.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nSuccessfully published %d/%d runs\n", published, len(runs))
	return nil
}
