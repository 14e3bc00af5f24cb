package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitvia/bitvia/internal/config"
	"github.com/bitvia/bitvia/internal/db"
	"github.com/bitvia/bitvia/internal/digest"
	"github.com/bitvia/bitvia/internal/llm"
	"github.com/bitvia/bitvia/internal/metrics"
	"github.com/bitvia/bitvia/internal/news"
)

var (
	digestDryRun  bool
	digestModel   string
	digestMaxNews int
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Generate the daily AI digest from stored metrics and news",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return errors.New("OPENAI_API_KEY environment variable not set")
		}

		model := digestModel
		if model == "" {
			model = cfg.Digest.Model
		}
		maxNews := digestMaxNews
		if maxNews <= 0 {
			maxNews = cfg.Digest.MaxNews
		}

		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		ctx := cmd.Context()

		latest, err := metrics.NewStore(database).Latest(ctx)
		if err != nil {
			return fmt.Errorf("loading metrics: %w", err)
		}
		if latest == nil {
			return errors.New("no metrics found, run bitvia metrics collect first")
		}

		articles, err := news.NewStore(database).LoadRecent(ctx, maxNews*3)
		if err != nil {
			return fmt.Errorf("loading news: %w", err)
		}

		provider := llm.NewRateLimitedProvider(
			llm.NewRetryingProvider(llm.NewOpenAIProvider(apiKey, model)),
			cfg.Digest.MaxRPM,
		)

		body, err := digest.NewGenerator(provider, maxNews).Generate(ctx, *latest, articles)
		if err != nil {
			return fmt.Errorf("generating digest: %w", err)
		}

		if digestDryRun {
			fmt.Println(body)
			return nil
		}

		if err := digest.NewStore(database).Upsert(ctx, latest.Date, digest.DefaultTitle, body); err != nil {
			return err
		}
		fmt.Printf("OK: digest stored for %s\n", latest.Date)
		return nil
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestDryRun, "dry-run", false, "print the digest instead of storing it")
	digestCmd.Flags().StringVar(&digestModel, "model", "", "override the configured model")
	digestCmd.Flags().IntVar(&digestMaxNews, "max-news", 0, "override the configured article cap")
	rootCmd.AddCommand(digestCmd)
}
