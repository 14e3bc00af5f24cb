package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitvia/bitvia/internal/config"
	"github.com/bitvia/bitvia/internal/db"
	"github.com/bitvia/bitvia/internal/news"
	"github.com/bitvia/bitvia/internal/progress"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Fetch the configured news feeds into the database",
	Long: `Downloads every configured RSS/Atom feed, stores fresh entries keyed
by URL and prunes rows older than three days.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		fetcher := news.NewFetcher(news.NewStore(database), cfg.Feeds,
			progress.NewReporter("Fetching feeds"))

		stats, err := fetcher.FetchAll(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("OK: upserted %d items, skipped %d stale, %d feeds failed, pruned %d old rows\n",
			stats.Upserted, stats.Skipped, stats.Failed, stats.Pruned)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newsCmd)
}
