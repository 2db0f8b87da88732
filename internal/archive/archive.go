// Package archive keeps an audit trail of superseded itinerary components
// in a local SQLite database. Session state already retains superseded
// records for addressability; the archive additionally survives session
// expiry.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tripflow/tripflow/types"
)

// Record is one archived component revision.
type Record struct {
	ID           uint   `gorm:"primaryKey"`
	SessionID    string `gorm:"index;size:64"`
	ComponentID  string `gorm:"index;size:128"`
	Kind         string `gorm:"size:32"`
	Name         string
	Day          int
	Slot         string `gorm:"size:16"`
	Payload      string // full component JSON at supersede time
	SupersededAt time.Time
}

// TableName pins the table name independent of gorm's pluralization.
func (Record) TableName() string { return "superseded_components" }

// Store is the SQLite-backed audit store.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (or creates) the archive database and migrates the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}

	logger = logger.With(zap.String("component", "archive"))
	logger.Info("archive store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// RecordSuperseded stores a component revision at the moment it was
// superseded.
func (s *Store) RecordSuperseded(ctx context.Context, sessionID string, c types.Component) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to encode component for archive").WithCause(err)
	}
	rec := Record{
		SessionID:    sessionID,
		ComponentID:  c.ID,
		Kind:         string(c.Kind),
		Name:         c.Name,
		Day:          c.Day,
		Slot:         string(c.Slot),
		Payload:      string(payload),
		SupersededAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to archive component: %w", err)
	}
	s.logger.Debug("component archived",
		zap.String("session_id", sessionID),
		zap.String("component_id", c.ID),
	)
	return nil
}

// BySession returns the archived revisions for a session, oldest first.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("superseded_at asc, id asc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	return recs, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
