package middleware

// Context keys shared between middleware and handlers.
const (
	ContextKeyRequestID = "request_id"
	ContextKeySessionID = "session_id"
)
