package domain

import "time"

// ClassSession is a scoped classroom activity instance. Created by the REST
// layer before any WebSocket activity; read-only for the protocol engine.
type ClassSession struct {
	ID        string
	ClassID   string
	CreatedAt time.Time
}

// ClassSessionModel is the GORM model for the class_sessions table.
type ClassSessionModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	ClassID   string    `gorm:"type:varchar(64);index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ClassSessionModel.
func (ClassSessionModel) TableName() string {
	return "class_sessions"
}

// ToDomain converts ClassSessionModel to a domain ClassSession.
func (m *ClassSessionModel) ToDomain() *ClassSession {
	return &ClassSession{
		ID:        m.ID,
		ClassID:   m.ClassID,
		CreatedAt: m.CreatedAt,
	}
}

// ClassSessionToModel converts a domain ClassSession to its GORM model.
func ClassSessionToModel(s *ClassSession) *ClassSessionModel {
	return &ClassSessionModel{
		ID:        s.ID,
		ClassID:   s.ClassID,
		CreatedAt: s.CreatedAt,
	}
}
