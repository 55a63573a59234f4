// sync-debug runs a full sync against the in-memory engine, using either
// a local FIT fixture directory or the remote telemetry API, and prints
// every progress transition. Useful for eyeballing the pipeline without a
// UI shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	shared "github.com/tracematch/sync-engine/pkg"
	"github.com/tracematch/sync-engine/pkg/analysis"
	"github.com/tracematch/sync-engine/pkg/bootstrap"
	"github.com/tracematch/sync-engine/pkg/credentials"
	"github.com/tracematch/sync-engine/pkg/engine"
	"github.com/tracematch/sync-engine/pkg/fetch"
	"github.com/tracematch/sync-engine/pkg/generation"
	"github.com/tracematch/sync-engine/pkg/integrations/intervals"
	"github.com/tracematch/sync-engine/pkg/prefs"
	"github.com/tracematch/sync-engine/pkg/retention"
	"github.com/tracematch/sync-engine/pkg/syncer"
	"github.com/tracematch/sync-engine/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	fixtureDir := flag.String("fixtures", "", "FIT fixture directory (overrides config)")
	ids := flag.String("ids", "", "comma-separated activity ids (remote mode)")
	cleanup := flag.Bool("cleanup", false, "run retention cleanup after the sync")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *fixtureDir != "" {
		cfg.Telemetry.FixtureDir = *fixtureDir
	}

	logger := bootstrap.NewLogger(cfg.Logging, "sync-debug")

	var source shared.TelemetrySource
	var items []shared.Item
	switch {
	case cfg.Telemetry.FixtureDir != "":
		fixtures := telemetry.NewFixtureSource(cfg.Telemetry.FixtureDir)
		fixtureIDs, err := fixtures.ListItemIDs()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fixtures: %v\n", err)
			os.Exit(1)
		}
		for _, id := range fixtureIDs {
			items = append(items, shared.Item{ID: id, SportType: "Ride"})
		}
		source = fixtures
	case *ids != "":
		for _, id := range strings.Split(*ids, ",") {
			items = append(items, shared.Item{ID: strings.TrimSpace(id), SportType: "Ride"})
		}
		if cfg.Telemetry.BaseURL != "" {
			source = intervals.NewClientWithBaseURL(cfg.Telemetry.BaseURL)
		} else {
			source = intervals.NewClient()
		}
	default:
		fmt.Fprintln(os.Stderr, "nothing to sync: pass -fixtures or -ids")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng := engine.NewBridge(engine.NewMemoryBridge())
	tracker := &generation.Tracker{}
	coordinator := syncer.NewCoordinator(eng, fetch.NewFetcher(source, logger), tracker, logger)

	start := time.Now()
	result, err := coordinator.Sync(ctx, items, syncer.Options{
		BatchSize: cfg.Sync.BatchSize,
		Poll: analysis.Config{
			Interval: cfg.Sync.PollInterval,
			MaxTotal: cfg.Sync.PollCeiling,
		},
	}, syncer.Deps{
		Credentials: credentials.Static{Key: firstNonEmpty(cfg.Telemetry.APIKey, "fixture-mode")},
		OnProgress: func(p shared.SyncProgress) {
			fmt.Printf("[%6.2fs] %-10s %3d/%-3d %s\n",
				time.Since(start).Seconds(), p.Status, p.Completed, p.Total, p.Message)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nattempt %s: synced %d items (%d with data): %s\n",
		result.AttemptID, len(result.SyncedIDs), result.WithDataCount, result.Message)

	if *cleanup {
		store, err := prefs.NewStore(cfg.Sync.PreferencesDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "prefs: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		cleaner := retention.NewCleaner(eng, store, logger)
		deleted, err := cleaner.Cleanup(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("cleanup deleted %d activities\n", deleted)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
