package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run a single bill ingestion cycle",
	Long: `Discovers bills updated since the configured start date, enriches
them with text and PDF links, and persists them. The serve command
runs the same cycle on a schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		apiClient, err := createCongressClient(cfg)
		if err != nil {
			return err
		}

		since, err := cfg.Since()
		if err != nil {
			return fmt.Errorf("parsing ingest since date: %w", err)
		}

		coordinator := ingest.New(apiClient, bills.NewStore(database), since, cfg.PollInterval())
		stats, err := coordinator.RunOnce(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Discovered %d bills: %d new, %d with text, %d skipped\n",
			stats.Discovered, stats.Inserted, stats.WithText, stats.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
