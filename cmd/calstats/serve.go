package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"calstats/internal/ics"
	"calstats/internal/ingest"
	appLog "calstats/internal/log"
	"calstats/internal/web"
)

var (
	serveListen string
	serveOnce   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API and metrics endpoint. Configured feeds are re-imported
on the refresh schedule.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	serveCmd.Flags().BoolVar(&serveOnce, "once", false, "Refresh configured feeds once and exit")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := openApp()
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	appLog.Info("calstats starting",
		"version", version,
		"listen", cfg.Listen,
		"storage", cfg.Storage.Type,
		"refresh", cfg.RefreshCron,
		"feeds", len(cfg.Feeds),
		"expand_recurrence", cfg.ExpandRecurrence,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	srv, err := web.NewServer(cfg, rt.cache)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	fetcher := ics.NewFetcher(cfg.CacheDir)
	opts := ingest.OptionsFromConfig(cfg)
	refresh := func() {
		if _, err := ingest.RefreshFeeds(ctx, fetcher, cfg.Feeds, rt.cache, opts); err != nil {
			appLog.Error("feed refresh incomplete", err)
		}
		srv.Invalidate()
	}

	if serveOnce {
		refresh()
		return nil
	}

	if len(cfg.Feeds) > 0 {
		refresh()

		c := cron.New()
		if _, err := c.AddFunc(cfg.RefreshCron, refresh); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	if err := web.StartServer(ctx, srv); err != nil {
		return fmt.Errorf("HTTP server: %w", err)
	}
	appLog.Info("calstats exiting")
	return nil
}
