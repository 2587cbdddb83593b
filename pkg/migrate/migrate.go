// Package migrate versions the schema of a SQLite database with numbered
// .up.sql/.down.sql files, usually embedded next to the store that owns them.
//
// A run (Up, Down or To) holds the database write lock from the first step
// to the last and commits once, so a failed step leaves the schema exactly
// as it was and a second process cannot interleave its own run.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTable records the applied versions.
const DefaultTable = "schema_migrations"

var (
	// ErrUnknownVersion is returned for a target that no migration defines.
	ErrUnknownVersion = errors.New("unknown schema version")

	// ErrIrreversible is returned when a rollback needs a migration that has
	// no down SQL.
	ErrIrreversible = errors.New("migration has no down SQL")
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Migration is one schema version.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Applied is a version recorded in the migration table.
type Applied struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

// Status describes where a database stands against the known migrations.
type Status struct {
	Current int
	Latest  int
	Applied []Applied
	Pending []Migration
}

// UpToDate reports whether nothing is left to apply.
func (s Status) UpToDate() bool {
	return len(s.Pending) == 0
}

// Migrator applies the migrations found in one directory of an fs.FS.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
	table      string
	logger     *zap.SugaredLogger

	mu sync.Mutex
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithTable overrides the migration table name.
func WithTable(name string) Option {
	return func(m *Migrator) { m.table = name }
}

// WithLogger logs every applied step to logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New loads the migrations in dir and returns a migrator for db. The files
// are read and checked here, so a malformed set fails before any SQL runs.
func New(db *sql.DB, fsys fs.FS, dir string, opts ...Option) (*Migrator, error) {
	m := &Migrator{
		db:     db,
		table:  DefaultTable,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if !tableName.MatchString(m.table) {
		return nil, fmt.Errorf("invalid migration table name %q", m.table)
	}

	migrations, err := load(fsys, dir)
	if err != nil {
		return nil, err
	}
	m.migrations = migrations
	return m, nil
}

// Migrations returns the known migrations in version order.
func (m *Migrator) Migrations() []Migration {
	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	return out
}

// Latest returns the highest known version, or 0 when there are none.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// Version returns the current schema version. A database that has never
// been migrated is at version 0.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	return st.Current, nil
}

// Status reads the migration table without modifying the database.
func (m *Migrator) Status(ctx context.Context) (Status, error) {
	st := Status{Latest: m.Latest()}

	applied, err := m.applied(ctx, m.db)
	if err != nil {
		return st, err
	}
	st.Applied = applied
	if len(applied) > 0 {
		st.Current = applied[len(applied)-1].Version
	}

	for _, mg := range m.migrations {
		if mg.Version > st.Current {
			st.Pending = append(st.Pending, mg)
		}
	}
	return st, nil
}

// Up applies every pending migration and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	return m.migrate(ctx, m.Latest(), false)
}

// Down rolls back to target, which must be below the current version.
func (m *Migrator) Down(ctx context.Context, target int) error {
	_, err := m.migrate(ctx, target, true)
	return err
}

// To moves the schema up or down to target. Reaching the current version is
// a no-op.
func (m *Migrator) To(ctx context.Context, target int) error {
	_, err := m.migrate(ctx, target, false)
	return err
}

func (m *Migrator) migrate(ctx context.Context, target int, downOnly bool) (int, error) {
	if target != 0 && m.find(target) < 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnknownVersion, target)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	steps := 0
	err := m.inWriteLock(ctx, func(conn *sql.Conn) error {
		if err := m.createTable(ctx, conn); err != nil {
			return err
		}
		current, err := m.current(ctx, conn)
		if err != nil {
			return err
		}
		if downOnly && target >= current {
			return fmt.Errorf("target version %d must be below the current version %d", target, current)
		}

		if target >= current {
			for _, mg := range m.migrations {
				if mg.Version <= current || mg.Version > target {
					continue
				}
				if err := m.step(ctx, conn, mg, true); err != nil {
					return err
				}
				steps++
			}
			return nil
		}

		for i := len(m.migrations) - 1; i >= 0; i-- {
			mg := m.migrations[i]
			if mg.Version > current || mg.Version <= target {
				continue
			}
			if err := m.step(ctx, conn, mg, false); err != nil {
				return err
			}
			steps++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if steps > 0 {
		m.logger.Infow("schema migrated", "target", target, "steps", steps)
	}
	return steps, nil
}

// inWriteLock runs fn on a dedicated connection inside BEGIN IMMEDIATE,
// which takes the SQLite write lock up front instead of at the first write.
func (m *Migrator) inWriteLock(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get a connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to lock database for migration: %w", err)
	}
	if err := fn(conn); err != nil {
		if _, rbErr := conn.ExecContext(context.Background(), "ROLLBACK"); rbErr != nil {
			m.logger.Errorw("rollback failed", "error", rbErr)
		}
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func (m *Migrator) step(ctx context.Context, conn *sql.Conn, mg Migration, up bool) error {
	direction := "up"
	query := mg.Up
	if !up {
		direction = "down"
		query = mg.Down
		if query == "" {
			return fmt.Errorf("migration %d (%s): %w", mg.Version, mg.Name, ErrIrreversible)
		}
	}

	if _, err := conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migration %d (%s) %s: %w", mg.Version, mg.Name, direction, err)
	}

	var err error
	if up {
		_, err = conn.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?)", m.table),
			mg.Version, mg.Name, time.Now().UnixNano())
	} else {
		_, err = conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.table), mg.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", mg.Version, err)
	}

	m.logger.Debugw("applied migration", "version", mg.Version, "name", mg.Name, "direction", direction)
	return nil
}

func (m *Migrator) createTable(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)`, m.table))
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

func (m *Migrator) current(ctx context.Context, conn *sql.Conn) (int, error) {
	var version int
	err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.table)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// applied lists the recorded versions in ascending order. A missing table
// means nothing has been applied.
func (m *Migrator) applied(ctx context.Context, q queryer) ([]Applied, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", m.table).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("failed to look up migration table: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT version, name, applied_at FROM %s ORDER BY version", m.table))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration table: %w", err)
	}
	defer rows.Close()

	var applied []Applied
	for rows.Next() {
		var a Applied
		var at int64
		if err := rows.Scan(&a.Version, &a.Name, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		a.AppliedAt = time.Unix(0, at).UTC()
		applied = append(applied, a)
	}
	return applied, rows.Err()
}

func (m *Migrator) find(version int) int {
	for i, mg := range m.migrations {
		if mg.Version == version {
			return i
		}
	}
	return -1
}
