package storage

import (
	"context"
	"errors"

	"github.com/hwidjaja/tabletally/internal/game/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ResumeStore persists session snapshots keyed by session id. The host saves
// after every committed event; a restarted process loads the latest snapshot
// to resume hosting.
type ResumeStore interface {
	// Save upserts the snapshot. Later saves for a session replace earlier
	// ones.
	Save(ctx context.Context, session domain.Session) error
	// Load fetches a snapshot by session id.
	Load(ctx context.Context, sessionID string) (domain.Session, error)
	// Latest fetches the most recently saved snapshot.
	Latest(ctx context.Context) (domain.Session, error)
	// Delete removes a stored session.
	Delete(ctx context.Context, sessionID string) error
}
