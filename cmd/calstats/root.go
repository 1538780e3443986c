package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"calstats/internal/config"
	"calstats/internal/ingest"
	appLog "calstats/internal/log"
	"calstats/internal/store"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "calstats",
	Short: "calstats - activity statistics from calendar exports",
	Long: `calstats imports iCalendar (.ics) exports, treats every event title as an
activity and reports time spent, streaks, breaks and distributions. It also
suggests merges for near-duplicate titles and flags suspicious events.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./calstats.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	appLog.Configure(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// app bundles what every data command needs.
type app struct {
	cfg   *config.Config
	store *store.BlobStore
	cache *ingest.Cache
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return &app{
		cfg:   cfg,
		store: st,
		cache: ingest.NewCache(st, ingest.OptionsFromConfig(cfg)),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		appLog.Error("failed to close storage", err)
	}
}
