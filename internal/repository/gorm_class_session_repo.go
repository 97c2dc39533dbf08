package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
)

// GormClassSessionRepository implements ClassSessionRepository using GORM.
type GormClassSessionRepository struct {
	db *gorm.DB
}

// NewGormClassSessionRepository creates a new GORM-based class session repository.
func NewGormClassSessionRepository(db *gorm.DB) *GormClassSessionRepository {
	return &GormClassSessionRepository{db: db}
}

// Create persists a new class session.
func (r *GormClassSessionRepository) Create(ctx context.Context, session *domain.ClassSession) error {
	l := log.Ctx(ctx)

	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	model := domain.ClassSessionToModel(session)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create class session in db")
		return result.Error
	}

	session.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldClassSessionID, session.ID).Msg("class session created in db")
	return nil
}

// GetByID retrieves a class session by ID.
func (r *GormClassSessionRepository) GetByID(ctx context.Context, id string) (*domain.ClassSession, error) {
	l := log.Ctx(ctx)

	var model domain.ClassSessionModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldClassSessionID, id).Msg("failed to get class session by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

var _ ClassSessionRepository = (*GormClassSessionRepository)(nil)
