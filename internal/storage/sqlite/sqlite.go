// Package sqlite is the embedded session store, built on modernc.org/sqlite.
// Indicator rows are stored as MessagePack blobs so NaN values survive.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/swimstroke/internal/storage"
	"github.com/chrissnell/swimstroke/internal/stroke"
	"github.com/chrissnell/swimstroke/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements storage.Store on a SQLite database file.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and brings its
// schema up to date. Use ":memory:" for a throwaway store.
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	migrator, err := Migrator(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := migrator.Up(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	logger.Infof("session store ready at %s", path)
	return &Store{db: db, logger: logger}, nil
}

// Migrator returns a migrator for the session schema embedded in this
// package.
func Migrator(db *sql.DB, logger *zap.SugaredLogger) (*migrate.Migrator, error) {
	m, err := migrate.New(db, migrations, "migrations", migrate.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load session schema migrations: %w", err)
	}
	return m, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// SaveSession inserts s and its indicator rows in one transaction.
func (s *Store) SaveSession(ctx context.Context, sess *storage.Session) error {
	params, err := marshal(sess.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	diag, err := marshal(sess.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}
	failures, err := marshal(sess.Failures)
	if err != nil {
		return fmt.Errorf("failed to encode failures: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, name, created_at, sample_count, params, diagnostics, failures, failure_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID.String(), sess.Name, sess.CreatedAt.UnixMilli(), sess.SampleCount,
		params, diag, failures, len(sess.Failures))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stroke_rows (session_id, stroke, start_time, indicators)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range sess.Rows {
		blob, err := marshal(row.Map())
		if err != nil {
			return fmt.Errorf("failed to encode stroke %d: %w", row.Stroke, err)
		}
		if _, err := stmt.ExecContext(ctx, sess.ID.String(), row.Stroke, row.StartTime, blob); err != nil {
			return fmt.Errorf("failed to insert stroke %d: %w", row.Stroke, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	s.logger.Debugf("saved session %s with %d strokes", sess.ID, len(sess.Rows))
	return nil
}

// GetSession loads a session and its rows ordered by stroke.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*storage.Session, error) {
	sess := &storage.Session{ID: id}

	var (
		createdAt                int64
		params, diag, failureBuf []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, created_at, sample_count, params, diagnostics, failures
		FROM sessions WHERE id = ?`, id.String()).
		Scan(&sess.Name, &createdAt, &sess.SampleCount, &params, &diag, &failureBuf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(createdAt).UTC()

	if err := unmarshal(params, &sess.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	if err := unmarshal(diag, &sess.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
	}
	if len(failureBuf) > 0 {
		if err := unmarshal(failureBuf, &sess.Failures); err != nil {
			return nil, fmt.Errorf("failed to decode failures: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT stroke, start_time, indicators
		FROM stroke_rows WHERE session_id = ? ORDER BY stroke`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query stroke rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			strokeIdx int
			startTime float64
			blob      []byte
		)
		if err := rows.Scan(&strokeIdx, &startTime, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan stroke row: %w", err)
		}
		var m map[string]float64
		if err := unmarshal(blob, &m); err != nil {
			return nil, fmt.Errorf("failed to decode stroke %d: %w", strokeIdx, err)
		}
		sess.Rows = append(sess.Rows, stroke.RowFromMap(strokeIdx, startTime, m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}

	return sess, nil
}

// ListSessions returns all session summaries, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]storage.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at, s.sample_count, s.failure_count,
		       (SELECT COUNT(*) FROM stroke_rows r WHERE r.session_id = s.id)
		FROM sessions s
		ORDER BY s.created_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	summaries := []storage.SessionSummary{}
	for rows.Next() {
		var (
			sum       storage.SessionSummary
			id        string
			createdAt int64
		)
		if err := rows.Scan(&id, &sum.Name, &createdAt, &sum.SampleCount, &sum.Failures, &sum.Strokes); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", id, err)
		}
		sum.CreatedAt = time.UnixMilli(createdAt).UTC()
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteSession removes a session and its rows.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stroke_rows WHERE session_id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete stroke rows: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return tx.Commit()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
