package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitvia/bitvia/internal/config"
	"github.com/bitvia/bitvia/internal/db"
	"github.com/bitvia/bitvia/internal/metrics"
	"github.com/bitvia/bitvia/internal/rpc"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Collect and inspect daily network metrics",
}

var metricsCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Snapshot mempool and block-interval metrics from the node",
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

		node, err := rpc.NewClient(cfg.RPC.URL, cfg.RPC.User, cfg.RPC.Password)
		if err != nil {
			return fmt.Errorf("connecting to node: %w", err)
		}
		defer node.Close()

		row, err := metrics.Collect(cmd.Context(), node)
		if err != nil {
			return fmt.Errorf("collecting metrics: %w", err)
		}

		if err := metrics.NewStore(database).Upsert(cmd.Context(), *row); err != nil {
			return err
		}

		fmt.Printf("OK: collected metrics for %s (mempool_tx: %d, fee_min: %.2f sat/vB)\n",
			row.Date, *row.MempoolTx, *row.MedianFeeSatPerVB)
		return nil
	},
}

var (
	insertDate  string
	insertTx    int64
	insertBytes int64
	insertAvg   float64
	insertFee   float64
)

var metricsInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Upsert a metrics row by hand",
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

		row := metrics.Row{Date: insertDate}
		if cmd.Flags().Changed("mempool-tx") {
			row.MempoolTx = &insertTx
		}
		if cmd.Flags().Changed("mempool-bytes") {
			row.MempoolBytes = &insertBytes
		}
		if cmd.Flags().Changed("avg-block-interval-sec") {
			row.AvgBlockIntervalSec = &insertAvg
		}
		if cmd.Flags().Changed("median-fee-sat-per-vb") {
			row.MedianFeeSatPerVB = &insertFee
		}

		if err := metrics.NewStore(database).Upsert(cmd.Context(), row); err != nil {
			return err
		}
		fmt.Printf("OK: metrics upserted for %s\n", insertDate)
		return nil
	},
}

var showLimit int

var metricsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print recent metrics rows",
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

		rows, err := metrics.NewStore(database).Recent(cmd.Context(), showLimit)
		if err != nil {
			return err
		}

		fmt.Println("metric_date | mempool_tx | mempool_bytes | avg_block_interval_sec | median_fee_sat_per_vb | created_at")
		for _, r := range rows {
			fmt.Printf("%s | %s | %s | %s | %s | %s\n",
				r.Date, optInt(r.MempoolTx), optInt(r.MempoolBytes),
				optFloat(r.AvgBlockIntervalSec), optFloat(r.MedianFeeSatPerVB), r.CreatedAt)
		}
		return nil
	},
}

func optInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", *v), "0"), ".")
}

func init() {
	metricsInsertCmd.Flags().StringVar(&insertDate, "date", "", "metric date (YYYY-MM-DD)")
	metricsInsertCmd.Flags().Int64Var(&insertTx, "mempool-tx", 0, "mempool transaction count")
	metricsInsertCmd.Flags().Int64Var(&insertBytes, "mempool-bytes", 0, "mempool size in bytes")
	metricsInsertCmd.Flags().Float64Var(&insertAvg, "avg-block-interval-sec", 0, "average block interval in seconds")
	metricsInsertCmd.Flags().Float64Var(&insertFee, "median-fee-sat-per-vb", 0, "fee rate in sat/vB")
	metricsInsertCmd.MarkFlagRequired("date")

	metricsShowCmd.Flags().IntVar(&showLimit, "limit", 10, "number of rows to print")

	metricsCmd.AddCommand(metricsCollectCmd, metricsInsertCmd, metricsShowCmd)
	rootCmd.AddCommand(metricsCmd)
}
