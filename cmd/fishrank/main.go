package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rewired-gh/fishrank/internal/config"
	"github.com/rewired-gh/fishrank/internal/dashboard"
	"github.com/rewired-gh/fishrank/internal/logger"
	"github.com/rewired-gh/fishrank/internal/models"
	"github.com/rewired-gh/fishrank/internal/storage"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	timeout    time.Duration

	// Loaded by the root pre-run hook
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fishrank",
	Short: "Provincial performance rankings for fishers",
	Long: `fishrank ranks fishers against their provincial peers by declared
monthly catch, compares them with the peer average and tracks their rank
over the trailing months.

Configuration is read from --config and FISHRANK_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		if configPath != "" {
			logger.Debug("Configuration loaded from %s", configPath)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for one-shot commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the configured store. The caller closes it.
func openStore() (*storage.Store, error) {
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func closeStore(store *storage.Store) {
	if err := store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}

// newService builds the dashboard service from config
func newService(store *storage.Store) *dashboard.Service {
	return dashboard.New(store, dashboard.Options{
		TopN:        cfg.Ranking.TopN,
		TrendMonths: cfg.Ranking.TrendMonths,
		Workers:     cfg.Dashboard.Workers,
	})
}

// periodFlags resolves --year/--month, defaulting to the current month
func periodFlags(year, month int) (models.Period, error) {
	p := models.PeriodOf(time.Now())
	if year != 0 {
		p.Year = year
	}
	if month != 0 {
		p.Month = month
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid period: %w", err)
	}
	return p, nil
}
