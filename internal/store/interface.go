package store

import (
	"context"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

// CounterStore holds the fast per-session aggregate counters. It is a cache,
// not a source of truth: values are always reconstructable from the event log
// plus live membership. Only atomic increment/decrement/read operations are
// exposed; callers never read-then-write.
type CounterStore interface {
	// IncrJoined atomically increments the joined counter and returns the new value.
	IncrJoined(ctx context.Context, classSessionID string) (int64, error)

	// DecrJoined atomically decrements the joined counter, clamping at zero,
	// and returns the new value.
	DecrJoined(ctx context.Context, classSessionID string) (int64, error)

	// IncrEnterEvents atomically increments the enter-event counter and
	// returns the new value.
	IncrEnterEvents(ctx context.Context, classSessionID string) (int64, error)

	// GetCounts reads both counters in one batch.
	GetCounts(ctx context.Context, classSessionID string) (domain.Counts, error)

	// SetCounts overwrites both counters. Used only by reconciliation.
	SetCounts(ctx context.Context, classSessionID string, counts domain.Counts) error

	// Close releases the underlying connection.
	Close() error
}
