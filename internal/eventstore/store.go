// Package eventstore persists the build history: one row per orchestration
// run or bundle event, keyed by run ID.
package eventstore

import (
	"context"
)

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, e Event) error

	// GetByRunID retrieves all events of one run, oldest first.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// Recent retrieves the newest limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
