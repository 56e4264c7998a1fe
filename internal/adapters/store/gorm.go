package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

// scoreEventRow is the persisted shape of one scoring event. Rows are
// append-only and never updated in place.
type scoreEventRow struct {
	EventID       string    `gorm:"column:event_id;primaryKey"`
	UserID        string    `gorm:"column:user_id;index;not null"`
	ActionKind    string    `gorm:"column:action_kind;not null"`
	PointsAwarded int64     `gorm:"column:points_awarded;not null"`
	OccurredAt    time.Time `gorm:"column:occurred_at;not null"`
}

// TableName implements the GORM tabler interface.
func (scoreEventRow) TableName() string { return "score_events" }

// processedEventRow is the idempotency ledger, one row per accepted id.
type processedEventRow struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	UserID      string    `gorm:"column:user_id;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;not null"`
}

// TableName implements the GORM tabler interface.
func (processedEventRow) TableName() string { return "processed_events" }

// GormStore implements Store over PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database, migrates the event tables, and returns
// a ready store. TranslateError is required so unique-key conflicts surface
// as gorm.ErrDuplicatedKey.
func NewGormStore(ctx context.Context, dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&scoreEventRow{}, &processedEventRow{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &GormStore{db: db}, nil
}

// DB exposes the underlying handle so collaborators sharing the database
// (e.g. the identity resolver) can reuse the connection pool.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// RecordEvent appends event and claims its id in one transaction.
func (s *GormStore) RecordEvent(ctx context.Context, event model.ScoreEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreTxLatency(float64(time.Since(start).Milliseconds()))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := processedEventRow{
			EventID:     event.EventID,
			UserID:      event.UserID,
			ProcessedAt: time.Now().UTC(),
		}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		row := scoreEventRow{
			EventID:       event.EventID,
			UserID:        event.UserID,
			ActionKind:    event.ActionKind,
			PointsAwarded: event.PointsAwarded,
			OccurredAt:    event.OccurredAt,
		}
		return tx.Create(&row).Error
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("record event %s: %w", event.EventID, ErrDuplicateEvent)
	}
	metrics.RecordErrorByComponent("store", "tx_failed")
	return fmt.Errorf("record event %s: %w: %s", event.EventID, ErrUnavailable, err)
}

// AlreadyProcessed reports whether an event id has been claimed.
func (s *GormStore) AlreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&processedEventRow{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		metrics.RecordErrorByComponent("store", "query_failed")
		return false, fmt.Errorf("lookup event %s: %w: %s", eventID, ErrUnavailable, err)
	}
	return count > 0, nil
}

// SumForUser returns the user's cumulative score and last event time.
func (s *GormStore) SumForUser(ctx context.Context, userID string) (model.UserScore, error) {
	var out struct {
		Score       int64
		LastEventAt sql.NullTime
	}
	err := s.db.WithContext(ctx).
		Model(&scoreEventRow{}).
		Select("COALESCE(SUM(points_awarded), 0) AS score, MAX(occurred_at) AS last_event_at").
		Where("user_id = ?", userID).
		Scan(&out).Error
	if err != nil {
		metrics.RecordErrorByComponent("store", "query_failed")
		return model.UserScore{}, fmt.Errorf("sum for user %s: %w: %s", userID, ErrUnavailable, err)
	}

	return model.UserScore{
		UserID:      userID,
		Score:       out.Score,
		LastEventAt: out.LastEventAt.Time,
	}, nil
}

// SumsByUser aggregates every user's cumulative score, best first.
func (s *GormStore) SumsByUser(ctx context.Context) ([]model.UserScore, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregationLatency(float64(time.Since(start).Milliseconds()))
	}()

	var rows []struct {
		UserID      string
		Score       int64
		LastEventAt time.Time
	}
	err := s.db.WithContext(ctx).
		Model(&scoreEventRow{}).
		Select("user_id, SUM(points_awarded) AS score, MAX(occurred_at) AS last_event_at").
		Group("user_id").
		Order("score DESC, last_event_at ASC, user_id ASC").
		Scan(&rows).Error
	if err != nil {
		metrics.RecordErrorByComponent("store", "query_failed")
		return nil, fmt.Errorf("sums by user: %w: %s", ErrUnavailable, err)
	}

	sums := make([]model.UserScore, len(rows))
	for i, r := range rows {
		sums[i] = model.UserScore{UserID: r.UserID, Score: r.Score, LastEventAt: r.LastEventAt}
	}
	metrics.UpdateTrackedUsers(len(sums))
	return sums, nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return sqlDB.Close()
}
