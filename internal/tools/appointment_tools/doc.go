// Package appointment_tools exposes the appointment operations as MCP
// tools: create_appointment, read_appointments and delete_appointment.
//
// The tools call the same ServerContext operations as the HTTP endpoints
// and return the same JSON envelopes as text content. Failures are
// reported as tool errors rather than protocol errors.
package appointment_tools
