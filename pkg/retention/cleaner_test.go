package retention

import (
	"context"
	"fmt"
	"testing"

	shared "github.com/tracematch/sync-engine/pkg"
	"github.com/tracematch/sync-engine/pkg/testing/mocks"
)

func TestCleanupResolvesRetentionWindow(t *testing.T) {
	tests := []struct {
		name       string
		stored     int
		hasStored  bool
		prefsErr   error
		wantDays   int
		wantEngine bool
	}{
		{
			name:       "stored preference used as-is",
			stored:     120,
			hasStored:  true,
			wantDays:   120,
			wantEngine: true,
		},
		{
			name:       "below-floor preference falls back to default",
			stored:     10,
			hasStored:  true,
			wantDays:   90,
			wantEngine: true,
		},
		{
			name:       "missing preference falls back to default",
			wantDays:   90,
			wantEngine: true,
		},
		{
			name:       "preference read error falls back to default",
			prefsErr:   fmt.Errorf("store corrupt"),
			wantDays:   90,
			wantEngine: true,
		},
		{
			name:       "zero keeps everything and skips the engine",
			stored:     0,
			hasStored:  true,
			wantEngine: false,
		},
		{
			name:       "floor boundary is accepted",
			stored:     30,
			hasStored:  true,
			wantDays:   30,
			wantEngine: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotDays int
			called := false
			engine := &mocks.MockEngine{
				DeleteOlderThanFunc: func(ctx context.Context, days int) (int, error) {
					called = true
					gotDays = days
					return 7, nil
				},
			}
			prefs := &mocks.MockPreferenceStore{
				GetRetentionDaysFunc: func(ctx context.Context) (int, bool, error) {
					return tt.stored, tt.hasStored, tt.prefsErr
				},
			}

			deleted, err := NewCleaner(engine, prefs, nil).Cleanup(context.Background())
			if err != nil {
				t.Fatalf("Cleanup() error: %v", err)
			}
			if called != tt.wantEngine {
				t.Fatalf("engine called = %v, want %v", called, tt.wantEngine)
			}
			if !tt.wantEngine {
				if deleted != 0 {
					t.Errorf("keep-all deleted %d", deleted)
				}
				return
			}
			if gotDays != tt.wantDays {
				t.Errorf("engine received %d days, want %d", gotDays, tt.wantDays)
			}
			if deleted != 7 {
				t.Errorf("deleted = %d, want the engine's count 7", deleted)
			}
		})
	}
}

func TestCleanupWithExplicitRetention(t *testing.T) {
	var gotDays int
	engine := &mocks.MockEngine{
		DeleteOlderThanFunc: func(ctx context.Context, days int) (int, error) {
			gotDays = days
			return 3, nil
		},
	}

	// The floor applies to explicit values too.
	c := NewCleaner(engine, &mocks.MockPreferenceStore{}, nil)
	if _, err := c.CleanupWithRetention(context.Background(), 5); err != nil {
		t.Fatalf("CleanupWithRetention() error: %v", err)
	}
	if gotDays != shared.DefaultRetentionDays {
		t.Errorf("engine received %d days, want floor-enforced default %d", gotDays, shared.DefaultRetentionDays)
	}
}

func TestCleanupPropagatesEngineErrors(t *testing.T) {
	engine := &mocks.MockEngine{
		DeleteOlderThanFunc: func(ctx context.Context, days int) (int, error) {
			return 0, fmt.Errorf("database locked")
		},
	}

	_, err := NewCleaner(engine, &mocks.MockPreferenceStore{}, nil).Cleanup(context.Background())
	if err == nil {
		t.Fatal("Cleanup() swallowed the engine error")
	}
}
