package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

// MemoryClassSessionRepository is an in-memory ClassSessionRepository.
type MemoryClassSessionRepository struct {
	sessions map[string]domain.ClassSession
	mu       sync.RWMutex
}

// NewMemoryClassSessionRepository creates a new in-memory class session repository.
func NewMemoryClassSessionRepository() *MemoryClassSessionRepository {
	return &MemoryClassSessionRepository{
		sessions: make(map[string]domain.ClassSession),
	}
}

// Create persists a new class session.
func (r *MemoryClassSessionRepository) Create(ctx context.Context, session *domain.ClassSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	r.sessions[session.ID] = *session
	return nil
}

// GetByID retrieves a class session, or ErrSessionNotFound.
func (r *MemoryClassSessionRepository) GetByID(ctx context.Context, id string) (*domain.ClassSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := session
	return &out, nil
}

var _ ClassSessionRepository = (*MemoryClassSessionRepository)(nil)
