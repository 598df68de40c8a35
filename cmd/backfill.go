package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/ingest"
	"github.com/openlegis/billchat/internal/progress"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <congress>",
	Short: "Ingest every bill of one congress",
	Long: `Pages through the full bill listing of the given congress number
(e.g. 118) and persists every bill. Safe to re-run: bills already
stored with a text link are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		congressNum, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("congress must be a number, got %q", args[0])
		}

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

		reporter := progress.NewReporter()
		reporter.Start(-1)
		defer reporter.Finish()

		coordinator := ingest.New(apiClient, bills.NewStore(database), since, cfg.PollInterval())
		stats, err := coordinator.Backfill(cmd.Context(), congressNum, func(done int) {
			reporter.Update(done, fmt.Sprintf("congress %d", congressNum))
		})
		if err != nil {
			return err
		}

		fmt.Printf("Backfilled congress %d: %d bills, %d new, %d with text\n",
			congressNum, stats.Discovered, stats.Inserted, stats.WithText)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
