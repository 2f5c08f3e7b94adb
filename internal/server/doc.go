// Package server exposes the appointment operations over HTTP.
//
// # Key Components
//
// ServerContext holds the credential source, the target calendar and the
// instrumentation, and implements the three operations (create, list,
// delete) shared by the HTTP handlers and the MCP tools. Each operation
// acquires a credential and builds a fresh Calendar client.
//
// AppointmentServer mounts the routes:
//
//	POST   /create_appointment           201 {"status":"success","eventLink":...}
//	GET    /read_appointments            200 {"status":"success","events":[...]}
//	GET    /read_appointments.ics        200 text/calendar
//	DELETE /delete_appointment/{id}      204
//	GET    /healthz, /readyz, /healthz/detailed
//	       /mcp                          (optional)
//
// Every failure is answered with 500 {"status":"error","message":...}.
//
// Requests pass through, outermost first: panic recovery, request ID,
// CORS, access logging and HTTP metrics.
//
// MetricsServer serves /metrics on a separate listener.
package server
