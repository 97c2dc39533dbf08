package domain

import "time"

// ProtocolVersion tags every message on the wire.
const ProtocolVersion = "1.0.0"

// WebSocket message types from client.
const (
	MsgTypeAuth  = "auth"
	MsgTypeJoin  = "join_class_session"
	MsgTypeEvent = "event"
)

// WebSocket message types to client.
const (
	MsgTypeAck       = "ack"
	MsgTypeAggregate = "class_session_aggregate"
)

// EventTypeClassEnter is the only event type currently accepted.
const EventTypeClassEnter = "class_enter"

// Error codes carried in negative acks.
const (
	ErrCodeInvalidCredential      = "invalid_credential"
	ErrCodeMissingClaim           = "missing_claim"
	ErrCodeInvalidRole            = "invalid_role"
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeNotJoined              = "not_joined"
	ErrCodeSessionNotFound        = "session_not_found"
	ErrCodeUnknownMessageType     = "unknown_message_type"
	ErrCodeUnknownEventType       = "unknown_event_type"
	ErrCodeDurableWriteFailure    = "durable_write_failure"
	ErrCodeCounterMutationFailure = "counter_mutation_failure"
	ErrCodeBadRequest             = "bad_request"
	ErrCodeInternalError          = "internal_error"
)

// BaseMessage is the envelope shared by all inbound WebSocket messages.
type BaseMessage struct {
	MsgType       string `json:"msg_type"`
	Version       string `json:"version,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Client -> Server messages

type AuthMessage struct {
	BaseMessage
	Token string `json:"token"`
}

type JoinMessage struct {
	BaseMessage
	ClassSessionID string `json:"class_session_id"`
}

type EventMessage struct {
	BaseMessage
	EventType      string `json:"event_type"`
	ClassSessionID string `json:"class_session_id"`
}

// Server -> Client messages

// AckMessage acknowledges one inbound message, positively or negatively.
type AckMessage struct {
	MsgType       string `json:"msg_type"`
	AckType       string `json:"ack_type"`
	OK            bool   `json:"ok"`
	Error         string `json:"error,omitempty"`
	Version       string `json:"version"`
	CorrelationID string `json:"correlation_id"`
}

// NewAck builds a positive acknowledgment.
func NewAck(ackType, correlationID string) *AckMessage {
	return &AckMessage{
		MsgType:       MsgTypeAck,
		AckType:       ackType,
		OK:            true,
		Version:       ProtocolVersion,
		CorrelationID: correlationID,
	}
}

// NewNack builds a negative acknowledgment carrying an error code.
func NewNack(ackType, correlationID, code string) *AckMessage {
	return &AckMessage{
		MsgType:       MsgTypeAck,
		AckType:       ackType,
		OK:            false,
		Error:         code,
		Version:       ProtocolVersion,
		CorrelationID: correlationID,
	}
}

// AggregateMessage is the derived counter snapshot pushed to a session's
// membership set. Non-authoritative; computed on demand from the counter store.
type AggregateMessage struct {
	MsgType         string `json:"msg_type"`
	ClassSessionID  string `json:"class_session_id"`
	JoinedCount     int64  `json:"joined_count"`
	EnterEventCount int64  `json:"enter_event_count"`
	ServerTimestamp int64  `json:"server_timestamp"`
	Version         string `json:"version"`
	CorrelationID   string `json:"correlation_id"`
}

// NewAggregate builds an aggregate snapshot message from counter values.
func NewAggregate(classSessionID, correlationID string, counts Counts) *AggregateMessage {
	return &AggregateMessage{
		MsgType:         MsgTypeAggregate,
		ClassSessionID:  classSessionID,
		JoinedCount:     counts.Joined,
		EnterEventCount: counts.EnterEvents,
		ServerTimestamp: time.Now().UTC().UnixMilli(),
		Version:         ProtocolVersion,
		CorrelationID:   correlationID,
	}
}

// Counts is the pair of per-session counters held by the counter store.
type Counts struct {
	Joined      int64
	EnterEvents int64
}
