// Package store persists the full session aggregate after every accepted
// mutation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

// SessionRecord is one row per live session. Payload holds the serialized
// engine.Session; the other columns exist for operators querying the table.
type SessionRecord struct {
	ID           string         `gorm:"primaryKey;size:16"`
	Status       string         `gorm:"not null"`
	Phase        string         `gorm:"not null"`
	Version      int            `gorm:"not null"`
	Participants int            `gorm:"not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt    time.Time
}

func (SessionRecord) TableName() string { return "session_records" }

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

type GormRecorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewGormRecorder(db *gorm.DB, log *zap.Logger) (*GormRecorder, error) {
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate session_records: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GormRecorder{db: db, log: log.Named("store")}, nil
}

// Save upserts s. A write carrying an older version than the stored row is a
// no-op.
func (r *GormRecorder) Save(ctx context.Context, s engine.Session, version int) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	rec := SessionRecord{
		ID:           s.ID,
		Status:       string(s.Status),
		Phase:        string(s.Phase),
		Version:      version,
		Participants: len(s.Participants),
		Payload:      datatypes.JSON(payload),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "phase", "version", "participants", "payload", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "session_records.version < excluded.version"},
		}},
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	r.log.Debug("session saved", zap.String("room_id", s.ID), zap.Int("version", version))
	return nil
}

func (r *GormRecorder) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&SessionRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
