package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

// MemoryEventLog is an in-memory implementation of EventLog.
// Suitable for single-instance deployments and tests.
type MemoryEventLog struct {
	events map[string][]domain.EventRecord // classSessionID -> records
	mu     sync.RWMutex
}

// NewMemoryEventLog creates a new in-memory event log.
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{
		events: make(map[string][]domain.EventRecord),
	}
}

// Append stores one event record.
func (r *MemoryEventLog) Append(ctx context.Context, event *domain.EventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.events[event.ClassSessionID] = append(r.events[event.ClassSessionID], *event)
	return nil
}

// CountBySessionAndType counts recorded events of one type for a session.
func (r *MemoryEventLog) CountBySessionAndType(ctx context.Context, classSessionID, eventType string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, e := range r.events[classSessionID] {
		if e.EventType == eventType {
			count++
		}
	}
	return count, nil
}

// ListBySession returns all events recorded for a session, oldest first.
func (r *MemoryEventLog) ListBySession(ctx context.Context, classSessionID string) ([]domain.EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.events[classSessionID]
	out := make([]domain.EventRecord, len(records))
	copy(out, records)
	return out, nil
}

var _ EventLog = (*MemoryEventLog)(nil)
