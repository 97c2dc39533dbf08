package repository

import (
	"context"
	"errors"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

var ErrSessionNotFound = errors.New("class session not found")

// EventLog is the append-only durable store of recorded events; the single
// source of truth for what happened. Queryable by class session id.
type EventLog interface {
	// Append durably writes one event record. Never updates or deletes.
	Append(ctx context.Context, event *domain.EventRecord) error

	// CountBySessionAndType counts recorded events of one type for a session.
	CountBySessionAndType(ctx context.Context, classSessionID, eventType string) (int64, error)

	// ListBySession returns all events recorded for a session, oldest first.
	ListBySession(ctx context.Context, classSessionID string) ([]domain.EventRecord, error)
}

// ClassSessionRepository stores class sessions minted by the REST layer.
type ClassSessionRepository interface {
	// Create persists a new class session.
	Create(ctx context.Context, session *domain.ClassSession) error

	// GetByID retrieves a class session, or ErrSessionNotFound.
	GetByID(ctx context.Context, id string) (*domain.ClassSession, error)
}
