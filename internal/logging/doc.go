// Package logging builds the process logger from configuration and holds
// the attribute helpers used across the service.
//
//	logger := logging.WithOperation(slog.Default(), "create")
//	logger.Info("event created",
//	    logging.EventID(event.Id),
//	    logging.Status(logging.StatusSuccess))
//
// Access and refresh tokens are never logged directly; use SanitizeToken.
// Attendee addresses are reduced to their domains by the audit logger in
// package instrumentation unless PII logging is enabled.
package logging
