package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		// WAL keeps journal writes from blocking API reads.
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		embedded INTEGER NOT NULL,
		host_app TEXT,
		user_agent TEXT NOT NULL,
		platform TEXT NOT NULL,
		loopback INTEGER NOT NULL,
		mode TEXT NOT NULL,
		target_uri TEXT,
		final_state TEXT NOT NULL,
		navigation_error TEXT,
		log_json TEXT NOT NULL,
		opened_at INTEGER NOT NULL,
		closed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_closed ON sessions(closed_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSession inserts or replaces a session record.
func (s *SQLiteStore) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	logJSON, err := json.Marshal(rec.Log)
	if err != nil {
		return fmt.Errorf("encode session log: %w", err)
	}

	query := `
	INSERT INTO sessions (
		id, embedded, host_app, user_agent, platform, loopback, mode,
		target_uri, final_state, navigation_error, log_json, opened_at, closed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		final_state = excluded.final_state,
		navigation_error = excluded.navigation_error,
		log_json = excluded.log_json,
		closed_at = excluded.closed_at`

	return withRetry(ctx, "save session", func() error {
		_, err := s.db.ExecContext(ctx, query,
			rec.ID, rec.Detection.Embedded, nullString(rec.Detection.HostAppName),
			rec.Detection.RawUserAgent, rec.Platform.String(), rec.LoopGuard.IsLoopback,
			rec.Mode.String(), nullString(rec.TargetURI), rec.FinalState.String(),
			nullString(rec.NavigationErr), string(logJSON),
			rec.OpenedAt.UnixMilli(), rec.ClosedAt.UnixMilli(),
		)
		return err
	})
}

// GetSession retrieves a session record by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	query := `
		SELECT id, embedded, host_app, user_agent, platform, loopback, mode,
		       target_uri, final_state, navigation_error, log_json, opened_at, closed_at
		FROM sessions WHERE id = ?`

	var (
		rec                        domain.SessionRecord
		hostApp, targetURI, navErr sql.NullString
		platformName, mode, state  string
		logJSON                    string
		openedAt, closedAt         int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Detection.Embedded, &hostApp, &rec.Detection.RawUserAgent,
		&platformName, &rec.LoopGuard.IsLoopback, &mode,
		&targetURI, &state, &navErr, &logJSON, &openedAt, &closedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	rec.Detection.HostAppName = hostApp.String
	rec.TargetURI = targetURI.String
	rec.NavigationErr = navErr.String
	rec.OpenedAt = time.UnixMilli(openedAt)
	rec.ClosedAt = time.UnixMilli(closedAt)

	if rec.Platform, err = domain.ParsePlatform(platformName); err != nil {
		return nil, fmt.Errorf("decode platform: %w", err)
	}
	if rec.Mode, err = domain.ParseTargetMode(mode); err != nil {
		return nil, fmt.Errorf("decode mode: %w", err)
	}
	if rec.FinalState, err = domain.ParseRedirectState(state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if err := json.Unmarshal([]byte(logJSON), &rec.Log); err != nil {
		return nil, fmt.Errorf("decode session log: %w", err)
	}

	return &rec, nil
}

// CountByState returns closed-session counts keyed by final state.
func (s *SQLiteStore) CountByState(ctx context.Context, since time.Time) (map[string]int64, error) {
	query := `SELECT final_state, COUNT(*) FROM sessions WHERE closed_at >= ? GROUP BY final_state`

	rows, err := s.db.QueryContext(ctx, query, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query session counts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session count rows", "error", closeErr)
		}
	}()

	counts := make(map[string]int64)
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan session count row: %w", err)
		}
		counts[state] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session counts: %w", err)
	}
	return counts, nil
}

// DeleteSessionsBefore removes sessions closed before cutoff.
func (s *SQLiteStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := withRetry(ctx, "delete sessions", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE closed_at < ?`, cutoff.UnixMilli())
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
