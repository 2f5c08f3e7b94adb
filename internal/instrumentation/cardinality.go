package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// Email addresses and raw URL paths must never become label values;
// reduce them with these helpers first.

// ExtractUserDomain extracts the domain part from an email address.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// RouteLabel turns a ServeMux pattern such as
// "DELETE /delete_appointment/{event_id}" into the path label
// "/delete_appointment/{event_id}". Requests that matched no pattern
// are labelled "unmatched" so arbitrary paths do not create series.
func RouteLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	// host-qualified patterns ("example.com/path") keep only the path
	if i := strings.IndexByte(pattern, '/'); i > 0 {
		pattern = pattern[i:]
	}
	return pattern
}

// Calendar operation types used for metrics, spans, and audit records.
const (
	OperationList   = "list"
	OperationCreate = "create"
	OperationDelete = "delete"
	OperationExport = "export"
)
