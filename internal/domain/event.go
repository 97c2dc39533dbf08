package domain

import "time"

// EventRecord is an immutable fact recorded in the durable event log.
// Created exactly once per accepted event message; never updated or deleted.
type EventRecord struct {
	ID             string
	ClassSessionID string
	Subject        string
	Role           Role
	ClassID        string
	EventType      string
	CorrelationID  string
	CreatedAt      time.Time
}

// EventModel is the GORM model for the events table.
type EventModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	ClassSessionID string    `gorm:"type:varchar(36);index;not null"`
	Subject        string    `gorm:"type:varchar(64);not null"`
	Role           string    `gorm:"type:varchar(20);not null"`
	ClassID        string    `gorm:"type:varchar(64);not null"`
	EventType      string    `gorm:"type:varchar(32);index;not null"`
	CorrelationID  string    `gorm:"type:varchar(64);not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for EventModel.
func (EventModel) TableName() string {
	return "events"
}

// ToDomain converts EventModel to a domain EventRecord.
func (m *EventModel) ToDomain() *EventRecord {
	return &EventRecord{
		ID:             m.ID,
		ClassSessionID: m.ClassSessionID,
		Subject:        m.Subject,
		Role:           Role(m.Role),
		ClassID:        m.ClassID,
		EventType:      m.EventType,
		CorrelationID:  m.CorrelationID,
		CreatedAt:      m.CreatedAt,
	}
}

// EventToModel converts a domain EventRecord to its GORM model.
func EventToModel(e *EventRecord) *EventModel {
	return &EventModel{
		ID:             e.ID,
		ClassSessionID: e.ClassSessionID,
		Subject:        e.Subject,
		Role:           string(e.Role),
		ClassID:        e.ClassID,
		EventType:      e.EventType,
		CorrelationID:  e.CorrelationID,
		CreatedAt:      e.CreatedAt,
	}
}
