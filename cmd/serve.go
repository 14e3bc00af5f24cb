package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bitvia/bitvia/internal/config"
	"github.com/bitvia/bitvia/internal/db"
	"github.com/bitvia/bitvia/internal/digest"
	"github.com/bitvia/bitvia/internal/electrum"
	"github.com/bitvia/bitvia/internal/explorer"
	"github.com/bitvia/bitvia/internal/metrics"
	"github.com/bitvia/bitvia/internal/news"
	"github.com/bitvia/bitvia/internal/price"
	"github.com/bitvia/bitvia/internal/rpc"
	"github.com/bitvia/bitvia/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bitvia explorer server",
	Long: `Starts the HTTP server: the explorer page and widgets, the JSON API
over the configured Bitcoin Core node and Electrum index, and the live
price relay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
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

		var index electrum.IndexClient
		if cfg.ElectrumAddr != "" {
			ec, err := electrum.NewClient(cmd.Context(), cfg.ElectrumAddr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: electrum connect to %s failed (%v), address lookups disabled\n", cfg.ElectrumAddr, err)
			} else {
				defer ec.Close()
				index = ec
			}
		} else {
			fmt.Fprintln(os.Stderr, "Warning: no electrum_addr configured, address lookups disabled")
		}

		srv := server.New(server.Config{BindAddr: cfg.BindAddr, AllowAll: true}, database)

		svc := explorer.NewService(node, index, nil)
		explorer.RegisterPageRoutes(srv.Router())
		explorer.RegisterRoutes(srv.Router(), svc)
		explorer.RegisterWidgetRoutes(srv.Router(), svc)

		news.RegisterRoutes(srv.Router(), news.NewStore(database))
		metrics.RegisterRoutes(srv.Router(), metrics.NewStore(database))
		digest.RegisterRoutes(srv.Router(), digest.NewStore(database))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ticker := price.NewTicker(cfg.Price.FeedURL, cfg.Price.Product)
		go ticker.Run(ctx)
		price.RegisterRoutes(srv.Router(), ticker)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		if err := srv.Start(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
