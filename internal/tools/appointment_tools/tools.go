package appointment_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	calendarv3 "google.golang.org/api/calendar/v3"

	"github.com/teemow/appointments/internal/calendar"
	"github.com/teemow/appointments/internal/instrumentation"
	"github.com/teemow/appointments/internal/server"
	"github.com/teemow/appointments/internal/tools/common"
)

// Tool names.
const (
	CreateAppointmentTool = "create_appointment"
	ReadAppointmentsTool  = "read_appointments"
	DeleteAppointmentTool = "delete_appointment"
)

// DeleteResponse is the result of delete_appointment.
type DeleteResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RegisterAppointmentTools registers the three appointment tools with s.
func RegisterAppointmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createTool := mcp.NewTool(CreateAppointmentTool,
		mcp.WithDescription("Create an appointment in the configured Google Calendar and return its link"),
		mcp.WithString("summary",
			mcp.Description("Appointment title (default: 'No Title')"),
		),
		mcp.WithString("description",
			mcp.Description("Appointment description"),
		),
		mcp.WithString("location",
			mcp.Description("Appointment location"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time (RFC3339, e.g. '2025-01-15T14:00:00+01:00')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time (RFC3339, e.g. '2025-01-15T15:00:00+01:00')"),
		),
		mcp.WithString("timeZone",
			mcp.Required(),
			mcp.Description("IANA time zone of start and end (e.g. 'Europe/Berlin')"),
		),
		mcp.WithString("endTimeZone",
			mcp.Description("Time zone of the end time when it differs from timeZone"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithString("recurrence",
			mcp.Description("Recurrence lines separated by newlines (e.g. 'RRULE:FREQ=WEEKLY;COUNT=4')"),
		),
		mcp.WithBoolean("useDefaultReminders",
			mcp.Description("Use the calendar's default reminders instead of an email one day and a popup ten minutes before"),
		),
	)
	s.AddTool(createTool, common.InstrumentedToolHandler(CreateAppointmentTool, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateAppointment(ctx, request, sc)
		}))

	readTool := mcp.NewTool(ReadAppointmentsTool,
		mcp.WithDescription("List the next upcoming appointments of the configured Google Calendar, ordered by start time"),
	)
	s.AddTool(readTool, common.InstrumentedToolHandler(ReadAppointmentsTool, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReadAppointments(ctx, request, sc)
		}))

	deleteTool := mcp.NewTool(DeleteAppointmentTool,
		mcp.WithDescription("Delete an appointment from the configured Google Calendar"),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("ID of the event to delete"),
		),
	)
	s.AddTool(deleteTool, common.InstrumentedToolHandler(DeleteAppointmentTool, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteAppointment(ctx, request, sc)
		}))
}

// requestFromArgs maps tool arguments onto the same request the HTTP
// endpoint accepts, so defaults and validation are shared.
func requestFromArgs(args map[string]any) *calendar.AppointmentRequest {
	req := &calendar.AppointmentRequest{}

	if v, ok := args["summary"].(string); ok {
		req.Summary = &v
	}
	req.Description, _ = common.StringArg(args, "description")
	req.Location, _ = common.StringArg(args, "location")

	tz, _ := common.StringArg(args, "timeZone")
	endTZ, ok := common.StringArg(args, "endTimeZone")
	if !ok {
		endTZ = tz
	}
	if start, ok := common.StringArg(args, "start"); ok {
		req.Start = calendar.NewEventTime(start, tz)
	}
	if end, ok := common.StringArg(args, "end"); ok {
		req.End = calendar.NewEventTime(end, endTZ)
	}

	for _, email := range common.ListArg(args, "attendees", ",") {
		req.Attendees = append(req.Attendees, &calendarv3.EventAttendee{Email: email})
	}
	req.Recurrence = common.ListArg(args, "recurrence", "\n")

	if useDefault, ok := common.BoolArg(args, "useDefaultReminders"); ok && useDefault {
		req.Reminders = &calendarv3.EventReminders{UseDefault: true}
	}
	return req
}

func handleCreateAppointment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	created, err := sc.CreateAppointment(ctx, instrumentation.SurfaceMCP, requestFromArgs(request.GetArguments()))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create appointment: %v", err)), nil
	}
	return jsonResult(server.CreateResponse{Status: "success", EventLink: created.HtmlLink})
}

func handleReadAppointments(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	events, err := sc.ListAppointments(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read appointments: %v", err)), nil
	}
	return jsonResult(server.ListResponse{Status: "success", Events: events})
}

func handleDeleteAppointment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	eventID, err := common.RequiredStringArg(request.GetArguments(), "event_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sc.DeleteAppointment(ctx, instrumentation.SurfaceMCP, eventID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete appointment: %v", err)), nil
	}
	return jsonResult(DeleteResponse{Status: "success", Message: "Event deleted"})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
