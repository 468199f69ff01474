package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockDesk/internal/di"
	"StockDesk/pkg/config"
	"StockDesk/pkg/server"

	"github.com/spf13/cobra"
)

const snapshotOwner = "cli"

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "stockdesk",
	Short:         "Stock portfolio simulator backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.LoadWithEnv(path)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		cfg = c
		return nil
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	RunE:  runServe,
}

var snapshotCmd = &cobra.Command{
	Use:       "snapshot {portfolio|watchlist|detail TICKER}",
	Short:     "Load one screen and print it as JSON",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"portfolio", "watchlist", "detail"},
	RunE:      runSnapshot,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (defaults only when empty)")
	snapshotCmd.Flags().Duration("wait", 30*time.Second, "how long to wait for the screen to finish loading")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer app.Close()

	wait, _ := cmd.Flags().GetDuration("wait")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view, err := loadView(ctx, app.Views(), args, wait)
	if view == nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(view); encErr != nil {
		return encErr
	}
	// a partial screen is still printed; the error says why it is partial
	return err
}

func loadView(ctx context.Context, v server.Views, args []string, wait time.Duration) (interface{}, error) {
	switch args[0] {
	case "portfolio":
		p, err := v.Portfolio.Load(ctx, snapshotOwner, wait)
		if p == nil {
			return nil, err
		}
		return p, err
	case "watchlist":
		w, err := v.Watchlist.Load(ctx, snapshotOwner, wait)
		if w == nil {
			return nil, err
		}
		return w, err
	case "detail":
		if len(args) != 2 {
			return nil, fmt.Errorf("snapshot detail needs a ticker")
		}
		d, err := v.Detail.Load(ctx, snapshotOwner, args[1], wait)
		if d == nil {
			return nil, err
		}
		return d, err
	}
	return nil, fmt.Errorf("unknown screen %q", args[0])
}
