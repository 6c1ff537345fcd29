package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rewired-gh/fishrank/internal/dashboard"
	"github.com/rewired-gh/fishrank/internal/logger"
	"github.com/rewired-gh/fishrank/internal/telegram"
	"github.com/spf13/cobra"
)

var (
	reportActor    string
	reportProvince string
	reportYear     int
	reportMonth    int
)

// reportCmd prints one dashboard as JSON
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an actor's dashboard as JSON",
	Long: `Build the leaderboard, peer comparison and rank trend for one actor
and print them as JSON. The month defaults to the current one.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

// digestCmd sends one dashboard to Telegram
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send an actor's monthly digest to Telegram",
	Args:  cobra.NoArgs,
	RunE:  runDigest,
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, digestCmd} {
		c.Flags().StringVar(&reportActor, "actor", "", "Viewing actor id (required)")
		c.Flags().StringVar(&reportProvince, "province", "", "Province override (default: province of the actor's first asset)")
		c.Flags().IntVar(&reportYear, "year", 0, "Year (default: current)")
		c.Flags().IntVar(&reportMonth, "month", 0, "Month 1-12 (default: current)")
		_ = c.MarkFlagRequired("actor")
	}
}

// buildDashboard opens the store and builds the dashboard selected by flags
func buildDashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	period, err := periodFlags(reportYear, reportMonth)
	if err != nil {
		return nil, err
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer closeStore(store)

	svc := newService(store)
	defer svc.Close()

	return svc.Build(ctx, dashboard.Query{
		ActorID:  reportActor,
		Province: reportProvince,
		Period:   period,
	})
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	d, err := buildDashboard(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func runDigest(cmd *cobra.Command, args []string) error {
	if !cfg.Telegram.Enabled {
		return fmt.Errorf("telegram is disabled; set telegram.enabled in the config")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
		cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase, cfg.Telegram.TopEntries)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram client: %w", err)
	}

	d, err := buildDashboard(ctx)
	if err != nil {
		return err
	}
	if err := client.SendDigest(d); err != nil {
		return err
	}
	logger.Info("Digest for %s (%s) sent", d.Viewer.ActorID, d.Period)
	return nil
}
