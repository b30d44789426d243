// Package sqlite provides a SQLite-backed session resume store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/platform/storage/sqlitemigrate"
	"github.com/hwidjaja/tabletally/internal/storage"
	"github.com/hwidjaja/tabletally/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists session snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite resume store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the snapshot for a session.
func (s *Store) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	snapshot, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}

	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (id, join_code, epoch, seq, phase, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   join_code = excluded.join_code,
		   epoch = excluded.epoch,
		   seq = excluded.seq,
		   phase = excluded.phase,
		   snapshot = excluded.snapshot,
		   updated_at = excluded.updated_at`,
		session.ID,
		session.JoinCode,
		int64(session.Epoch),
		int64(session.Seq),
		string(session.Phase),
		string(snapshot),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load fetches a session snapshot by id.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT snapshot FROM sessions WHERE id = ?`, sessionID)
	return scanSession(row)
}

// Latest fetches the most recently saved session snapshot.
func (s *Store) Latest(ctx context.Context) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT snapshot FROM sessions ORDER BY updated_at DESC, id LIMIT 1`)
	return scanSession(row)
}

// Delete removes a stored session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func scanSession(row *sql.Row) (domain.Session, error) {
	var snapshot string
	if err := row.Scan(&snapshot); err != nil {
		if err == sql.ErrNoRows {
			return domain.Session{}, storage.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(snapshot), &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	return session, nil
}

var _ storage.ResumeStore = (*Store)(nil)
