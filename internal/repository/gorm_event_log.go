package repository

import (
	"time"

	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
)

// GormEventLog implements EventLog using GORM.
type GormEventLog struct {
	db *gorm.DB
}

// NewGormEventLog creates a new GORM-based event log.
func NewGormEventLog(db *gorm.DB) *GormEventLog {
	return &GormEventLog{db: db}
}

// Append durably writes one event record.
func (r *GormEventLog) Append(ctx context.Context, event *domain.EventRecord) error {
	l := log.Ctx(ctx)

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	model := domain.EventToModel(event)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldClassSessionID, event.ClassSessionID).
			Str(log.FieldCorrelationID, event.CorrelationID).
			Msg("failed to append event to db")
		return result.Error
	}

	event.CreatedAt = model.CreatedAt
	l.Debug().
		Str("event_id", event.ID).
		Str(log.FieldClassSessionID, event.ClassSessionID).
		Msg("event appended to db")
	return nil
}

// CountBySessionAndType counts recorded events of one type for a session.
func (r *GormEventLog) CountBySessionAndType(ctx context.Context, classSessionID, eventType string) (int64, error) {
	l := log.Ctx(ctx)

	var count int64
	result := r.db.WithContext(ctx).Model(&domain.EventModel{}).
		Where("class_session_id = ? AND event_type = ?", classSessionID, eventType).
		Count(&count)
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldClassSessionID, classSessionID).
			Msg("failed to count events")
	}
	return count, result.Error
}

// ListBySession returns all events recorded for a session, oldest first.
func (r *GormEventLog) ListBySession(ctx context.Context, classSessionID string) ([]domain.EventRecord, error) {
	l := log.Ctx(ctx)

	var models []domain.EventModel
	result := r.db.WithContext(ctx).
		Where("class_session_id = ?", classSessionID).
		Order("created_at ASC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldClassSessionID, classSessionID).
			Msg("failed to list events from db")
		return nil, result.Error
	}

	events := make([]domain.EventRecord, len(models))
	for i, model := range models {
		events[i] = *model.ToDomain()
	}
	return events, nil
}

var _ EventLog = (*GormEventLog)(nil)
