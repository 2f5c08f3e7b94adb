package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	calendarv3 "google.golang.org/api/calendar/v3"

	"github.com/teemow/appointments/internal/calendar"
	"github.com/teemow/appointments/internal/instrumentation"
)

// maxRequestBody limits the size of a create request.
const maxRequestBody = 1 << 20

// Response status values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// CreateResponse is returned by POST /create_appointment.
type CreateResponse struct {
	Status    string `json:"status"`
	EventLink string `json:"eventLink"`
}

// ListResponse is returned by GET /read_appointments. Events are passed
// through in the Calendar API representation.
type ListResponse struct {
	Status string              `json:"status"`
	Events []*calendarv3.Event `json:"events"`
}

// ErrorResponse is returned with status 500 for every failure.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AppointmentHandlers serves the appointment endpoints.
type AppointmentHandlers struct {
	sc *ServerContext
}

// NewAppointmentHandlers creates handlers backed by sc.
func NewAppointmentHandlers(sc *ServerContext) *AppointmentHandlers {
	return &AppointmentHandlers{sc: sc}
}

// Register adds the appointment routes to mux.
func (h *AppointmentHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /create_appointment", h.Create)
	mux.HandleFunc("GET /read_appointments", h.List)
	mux.HandleFunc("GET /read_appointments.ics", h.ListICS)
	mux.HandleFunc("DELETE /delete_appointment/{event_id}", h.Delete)
}

// Create handles POST /create_appointment.
func (h *AppointmentHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req calendar.AppointmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	created, err := h.sc.CreateAppointment(r.Context(), instrumentation.SurfaceHTTP, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateResponse{Status: statusSuccess, EventLink: created.HtmlLink})
}

// List handles GET /read_appointments.
func (h *AppointmentHandlers) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.sc.ListAppointments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Status: statusSuccess, Events: events})
}

// ListICS handles GET /read_appointments.ics.
func (h *AppointmentHandlers) ListICS(w http.ResponseWriter, r *http.Request) {
	events, err := h.sc.ListAppointments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	// encode first so an encoding failure can still produce the error envelope
	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, events, h.sc.Now()); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", calendar.ICSContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Delete handles DELETE /delete_appointment/{event_id}. Success is 204
// without a body.
func (h *AppointmentHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sc.DeleteAppointment(r.Context(), instrumentation.SurfaceHTTP, r.PathValue("event_id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: statusError, Message: err.Error()})
}
