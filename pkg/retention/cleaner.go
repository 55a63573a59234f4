// Package retention purges engine-held activity data older than the
// configured retention window. The engine does the deleting; this package
// only resolves the effective window from preferences and reports the
// count.
package retention

import (
	"context"
	"fmt"
	"log/slog"

	shared "github.com/tracematch/sync-engine/pkg"
)

// KeepAll disables the cutoff entirely: no data is ever purged.
const KeepAll = 0

// Cleaner resolves the retention window and delegates deletion.
type Cleaner struct {
	engine shared.Engine
	prefs  shared.PreferenceStore
	logger *slog.Logger
}

func NewCleaner(engine shared.Engine, prefs shared.PreferenceStore, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{engine: engine, prefs: prefs, logger: logger.With("component", "retention")}
}

// Cleanup purges data older than the preferred retention window and returns
// the number of deleted items. No retries: a failed purge surfaces as-is
// and the next scheduled cleanup picks it up.
func (c *Cleaner) Cleanup(ctx context.Context) (int, error) {
	return c.cleanup(ctx, c.preferredDays(ctx))
}

// CleanupWithRetention purges with an explicit window, bypassing the
// preference store. The same floor applies.
func (c *Cleaner) CleanupWithRetention(ctx context.Context, days int) (int, error) {
	return c.cleanup(ctx, normalizeDays(days))
}

func (c *Cleaner) cleanup(ctx context.Context, days int) (int, error) {
	if days == KeepAll {
		c.logger.Info("Cleanup skipped: retention set to keep all")
		return 0, nil
	}

	deleted, err := c.engine.DeleteOlderThan(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("delete older than %d days: %w", days, err)
	}
	if deleted > 0 {
		c.logger.Info("Purged old activities", "deleted", deleted, "retentionDays", days)
	}
	return deleted, nil
}

// preferredDays reads the stored retention preference. A read failure
// degrades to the default; cleanup should never fail because a preference
// file is unreadable.
func (c *Cleaner) preferredDays(ctx context.Context) int {
	if c.prefs == nil {
		return shared.DefaultRetentionDays
	}
	days, ok, err := c.prefs.GetRetentionDays(ctx)
	if err != nil {
		c.logger.Warn("Failed to read retention preference, using default", "error", err)
		return shared.DefaultRetentionDays
	}
	if !ok {
		return shared.DefaultRetentionDays
	}
	return normalizeDays(days)
}

// normalizeDays enforces the retention floor. Values below the floor are
// treated as corrupt and replaced with the default so a bad preference
// cannot trigger a mass deletion. Zero is the deliberate keep-all setting
// and passes through.
func normalizeDays(days int) int {
	if days == KeepAll {
		return KeepAll
	}
	if days < shared.MinRetentionDays {
		return shared.DefaultRetentionDays
	}
	return days
}
