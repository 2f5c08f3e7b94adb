package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureJSON logs one record through fn and returns it decoded.
func captureJSON(t *testing.T, fn func(*slog.Logger)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	fn(slog.New(slog.NewJSONHandler(&buf, nil)))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "output: %s", buf.String())
	return record
}

func TestLoggerHelpers(t *testing.T) {
	record := captureJSON(t, func(l *slog.Logger) {
		l = WithOperation(l, "create")
		l = WithTool(l, "create_appointment")
		l = WithRequestID(l, "req-42")
		l.Info("done", CalendarID("primary"), EventID("evt-1"), Status(StatusSuccess))
	})

	assert.Equal(t, "create", record[KeyOperation])
	assert.Equal(t, "create_appointment", record[KeyTool])
	assert.Equal(t, "req-42", record[KeyRequestID])
	assert.Equal(t, "primary", record[KeyCalendarID])
	assert.Equal(t, "evt-1", record[KeyEventID])
	assert.Equal(t, "success", record[KeyStatus])
}

func TestWithRequestID_Empty(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	assert.Same(t, logger, WithRequestID(logger, ""))
}

func TestErr(t *testing.T) {
	record := captureJSON(t, func(l *slog.Logger) {
		l.Error("failed", Err(errors.New("calendar unavailable")))
	})
	assert.Equal(t, "calendar unavailable", record[KeyError])

	record = captureJSON(t, func(l *slog.Logger) {
		l.Info("fine", Err(nil))
	})
	_, present := record[KeyError]
	assert.False(t, present, "nil error must not produce an attribute")
	_, present = record[""]
	assert.False(t, present)
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	assert.Equal(t, "[token:6 chars]", SanitizeToken("ya29.x"))
	assert.NotContains(t, SanitizeToken("1//refresh-secret"), "secret")
}
