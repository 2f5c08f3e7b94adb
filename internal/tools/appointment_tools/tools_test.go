package appointment_tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendarv3 "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/appointments/internal/google"
	"github.com/teemow/appointments/internal/server"
)

type fakeAPI struct {
	mu       sync.Mutex
	inserted []*calendarv3.Event
	deleted  []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var ev calendarv3.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		ev.Id = "evt-1"
		ev.HtmlLink = "https://calendar.example/evt-1"
		f.mu.Lock()
		f.inserted = append(f.inserted, &ev)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&ev)
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&calendarv3.Events{Items: []*calendarv3.Event{{Id: "upcoming", Summary: "Standup"}}})
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "evt-1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGone)
			_, _ = w.Write([]byte(`{"error":{"code":410,"message":"Resource has been deleted"}}`))
			return
		}
		f.mu.Lock()
		f.deleted = append(f.deleted, r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func newServerContext(t *testing.T, api *httptest.Server, creds google.CredentialSource) *server.ServerContext {
	t.Helper()
	if creds == nil {
		creds = google.StaticSource{Credential: &google.Credential{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}}
	}
	sc, err := server.NewServerContext(context.Background(), server.ContextConfig{
		Credentials:     creds,
		CalendarOptions: []option.ClientOption{option.WithEndpoint(api.URL + "/")},
		Logger:          slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestRequestFromArgs(t *testing.T) {
	req := requestFromArgs(map[string]any{
		"summary":             "Dentist",
		"start":               "2030-01-02T10:00:00+01:00",
		"end":                 "2030-01-02T11:00:00+01:00",
		"timeZone":            "Europe/Berlin",
		"attendees":           "a@example.com, b@example.com",
		"recurrence":          "RRULE:FREQ=WEEKLY;COUNT=4",
		"useDefaultReminders": true,
	})

	ev, err := req.ToEvent()
	require.NoError(t, err)
	assert.Equal(t, "Dentist", ev.Summary)
	assert.Equal(t, "Europe/Berlin", ev.Start.TimeZone)
	assert.Equal(t, "Europe/Berlin", ev.End.TimeZone, "end time zone defaults to timeZone")
	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, "b@example.com", ev.Attendees[1].Email)
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY;COUNT=4"}, ev.Recurrence)
	assert.True(t, ev.Reminders.UseDefault)
}

func TestRequestFromArgs_Defaults(t *testing.T) {
	req := requestFromArgs(map[string]any{
		"start":       "2030-01-02T10:00:00Z",
		"end":         "2030-01-02T11:00:00-05:00",
		"timeZone":    "UTC",
		"endTimeZone": "America/New_York",
	})

	ev, err := req.ToEvent()
	require.NoError(t, err)
	assert.Equal(t, "No Title", ev.Summary)
	assert.Equal(t, "America/New_York", ev.End.TimeZone)
	assert.False(t, ev.Reminders.UseDefault)
	assert.Len(t, ev.Reminders.Overrides, 2)
}

func TestHandleCreateAppointment(t *testing.T) {
	api, apiSrv := newFakeAPI(t)
	sc := newServerContext(t, apiSrv, nil)

	result, err := handleCreateAppointment(context.Background(), callRequest(map[string]any{
		"summary":  "Dentist",
		"start":    "2030-01-02T10:00:00Z",
		"end":      "2030-01-02T11:00:00Z",
		"timeZone": "UTC",
	}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"status":"success","eventLink":"https://calendar.example/evt-1"}`, resultText(t, result))
	require.Len(t, api.inserted, 1)
}

func TestHandleCreateAppointment_MissingStart(t *testing.T) {
	api, apiSrv := newFakeAPI(t)
	sc := newServerContext(t, apiSrv, nil)

	result, err := handleCreateAppointment(context.Background(), callRequest(map[string]any{
		"end":      "2030-01-02T11:00:00Z",
		"timeZone": "UTC",
	}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing required field: start")
	assert.Empty(t, api.inserted)
}

func TestHandleReadAppointments(t *testing.T) {
	_, apiSrv := newFakeAPI(t)
	sc := newServerContext(t, apiSrv, nil)

	result, err := handleReadAppointments(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp server.ListResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Standup", resp.Events[0].Summary)
}

func TestHandleReadAppointments_CredentialError(t *testing.T) {
	_, apiSrv := newFakeAPI(t)
	sc := newServerContext(t, apiSrv, google.StaticSource{Err: errors.New("no token")})

	result, err := handleReadAppointments(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no token")
}

func TestHandleDeleteAppointment(t *testing.T) {
	api, apiSrv := newFakeAPI(t)
	sc := newServerContext(t, apiSrv, nil)

	tests := []struct {
		name     string
		args     map[string]any
		wantErr  bool
		contains string
	}{
		{name: "deleted", args: map[string]any{"event_id": "evt-1"}, contains: "Event deleted"},
		{name: "missing id", args: map[string]any{}, wantErr: true, contains: "event_id is required"},
		{name: "already gone", args: map[string]any{"event_id": "old"}, wantErr: true, contains: "410"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleDeleteAppointment(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, result.IsError)
			assert.Contains(t, resultText(t, result), tt.contains)
		})
	}
	assert.Equal(t, []string{"evt-1"}, api.deleted)
}

func TestRegisterAppointmentTools(t *testing.T) {
	_, apiSrv := newFakeAPI(t)
	sc := newServerContext(t, apiSrv, nil)

	s := mcpserver.NewMCPServer("appointments-test", "0.0.0", mcpserver.WithToolCapabilities(true))
	RegisterAppointmentTools(s, sc)

	ctx := context.Background()
	listed := s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(listed)
	require.NoError(t, err)
	for _, name := range []string{CreateAppointmentTool, ReadAppointmentsTool, DeleteAppointmentTool} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}

	called := s.HandleMessage(ctx, json.RawMessage(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"read_appointments","arguments":{}}}`))
	data, err = json.Marshal(called)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Standup")
}
