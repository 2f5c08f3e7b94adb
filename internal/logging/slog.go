package logging

import (
	"fmt"
	"log/slog"
)

// Attribute keys shared by the server, the tools and the credential manager.
const (
	KeyOperation  = "operation"
	KeyCalendarID = "calendar_id"
	KeyEventID    = "event_id"
	KeyRequestID  = "request_id"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyTool       = "tool"
)

// Status values. They match the instrumentation status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithRequestID returns logger unchanged when requestID is empty.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(RequestID(requestID))
}

func CalendarID(id string) slog.Attr { return slog.String(KeyCalendarID, id) }

func EventID(id string) slog.Attr { return slog.String(KeyEventID, id) }

func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }

func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }

// Err renders err under the error key. A nil error yields an empty group,
// which handlers drop, so Err(maybeNil) can be passed unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken describes a token by its length only.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
