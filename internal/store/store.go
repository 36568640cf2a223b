// Package store provides the session journal interface and its SQLite
// implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

// ErrNotFound is returned when a journaled session does not exist.
var ErrNotFound = errors.New("session not found")

// Repository persists the summaries of finished page views.
type Repository interface {
	// SaveSession inserts or replaces a session record.
	SaveSession(ctx context.Context, rec *domain.SessionRecord) error

	// GetSession retrieves a session record by ID.
	GetSession(ctx context.Context, id string) (*domain.SessionRecord, error)

	// CountByState returns the number of sessions closed since the given
	// time, keyed by final redirect state.
	CountByState(ctx context.Context, since time.Time) (map[string]int64, error)

	// DeleteSessionsBefore removes sessions closed before cutoff.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
