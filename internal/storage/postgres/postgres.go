// Package postgres is the session store for a shared PostgreSQL server,
// built on gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/swimstroke/internal/storage"
)

// Store implements storage.Store with gorm
type Store struct {
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

var _ storage.Store = (*Store)(nil)

// New connects to PostgreSQL and migrates the session tables.
func New(connectionString string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.Desugar()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,
		},
	)

	log.Info("connecting to PostgreSQL...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a PostgreSQL connection:", err)
		return nil, err
	}
	log.Info("PostgreSQL connection successful")

	return NewWithDB(db, log)
}

// NewWithDB wraps an open gorm connection and migrates the session tables.
func NewWithDB(db *gorm.DB, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := db.AutoMigrate(&SessionModel{}, &StrokeRowModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session tables: %w", err)
	}
	return &Store{DB: db, logger: log}, nil
}

// SaveSession inserts the session and its rows in one transaction.
func (s *Store) SaveSession(ctx context.Context, sess *storage.Session) error {
	m, err := toModel(sess)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := m.Rows
		m.Rows = nil
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return fmt.Errorf("failed to insert stroke rows: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debugf("saved session %s with %d strokes", sess.ID, len(sess.Rows))
	return nil
}

// GetSession loads a session with its rows ordered by stroke.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*storage.Session, error) {
	var m SessionModel
	err := s.DB.WithContext(ctx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB { return db.Order("stroke") }).
		Where("id = ?", id.String()).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying database for session: %w", err)
	}
	return fromModel(&m)
}

type summaryRow struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	SampleCount  int
	FailureCount int
	Strokes      int
}

// ListSessions returns all session summaries, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]storage.SessionSummary, error) {
	var rows []summaryRow
	err := s.DB.WithContext(ctx).
		Model(&SessionModel{}).
		Select("sessions.id, sessions.name, sessions.created_at, sessions.sample_count, sessions.failure_count, " +
			"(SELECT COUNT(*) FROM stroke_rows r WHERE r.session_id = sessions.id) AS strokes").
		Order("sessions.created_at DESC, sessions.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}

	summaries := make([]storage.SessionSummary, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", r.ID, err)
		}
		summaries = append(summaries, storage.SessionSummary{
			ID:          id,
			Name:        r.Name,
			CreatedAt:   r.CreatedAt.UTC(),
			SampleCount: r.SampleCount,
			Strokes:     r.Strokes,
			Failures:    r.FailureCount,
		})
	}
	return summaries, nil
}

// DeleteSession removes a session; its rows go with it.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id.String()).Delete(&StrokeRowModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete stroke rows: %w", err)
		}
		res := tx.Where("id = ?", id.String()).Delete(&SessionModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
