package log

const (
	// Request
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldLatency  = "latency_ms"
	FieldClientIP = "client_ip"

	// Actor
	FieldUserID = "user_id"
	FieldRole   = "role"

	// Gateway
	FieldService        = "service"
	FieldClientID       = "client_id"
	FieldClassSessionID = "class_session_id"
	FieldCorrelationID  = "correlation_id"
	FieldEventType      = "event_type"
)
