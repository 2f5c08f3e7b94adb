package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	calendarv3 "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/appointments/internal/google"
	"github.com/teemow/appointments/internal/instrumentation"
)

var testNow = time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)

// fakeCalendar is a minimal Calendar v3 events API.
type fakeCalendar struct {
	mu       sync.Mutex
	inserted []*calendarv3.Event
	deleted  []string
	query    url.Values
	items    []*calendarv3.Event
	known    map[string]bool
	authz    string
}

func newFakeCalendar(t *testing.T) (*fakeCalendar, *httptest.Server) {
	t.Helper()
	f := &fakeCalendar{known: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var ev calendarv3.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.authz = r.Header.Get("Authorization")
		ev.Id = "evt-created"
		ev.HtmlLink = "https://calendar.example/event?eid=evt-created"
		f.inserted = append(f.inserted, &ev)
		f.mu.Unlock()
		respondJSON(w, http.StatusOK, &ev)
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authz = r.Header.Get("Authorization")
		f.query = r.URL.Query()
		items := f.items
		f.mu.Unlock()
		respondJSON(w, http.StatusOK, &calendarv3.Events{Items: items})
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.known[id] {
			respondJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": 404, "message": "Not Found"},
			})
			return
		}
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func validCredential() google.StaticSource {
	return google.StaticSource{Credential: &google.Credential{
		AccessToken: "access-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}}
}

// statusSource reports a fixed credential status.
type statusSource struct {
	google.StaticSource
	status google.Status
}

func (s statusSource) Status(context.Context) google.Status {
	return s.status
}

type testContextOption func(*ContextConfig)

func withCredentials(src google.CredentialSource) testContextOption {
	return func(c *ContextConfig) { c.Credentials = src }
}

func withMetrics(m *instrumentation.Metrics) testContextOption {
	return func(c *ContextConfig) { c.Metrics = m }
}

func withLogger(l *slog.Logger) testContextOption {
	return func(c *ContextConfig) { c.Logger = l }
}

func withAudit(a *instrumentation.AuditLogger) testContextOption {
	return func(c *ContextConfig) { c.Audit = a }
}

func newTestServerContext(t *testing.T, api *httptest.Server, opts ...testContextOption) *ServerContext {
	t.Helper()
	cfg := ContextConfig{
		Credentials: validCredential(),
		CalendarOptions: []option.ClientOption{
			option.WithEndpoint(api.URL + "/"),
		},
		Logger: slog.New(slog.DiscardHandler),
		Now:    func() time.Time { return testNow },
	}
	for _, o := range opts {
		o(&cfg)
	}
	sc, err := NewServerContext(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func newTestHandler(t *testing.T, sc *ServerContext) http.Handler {
	t.Helper()
	srv, err := NewAppointmentServer(sc, Config{Version: "test"})
	require.NoError(t, err)
	return srv.Handler()
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
