package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/appointments/internal/google"
	"github.com/teemow/appointments/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate API and MCP tool documentation",
		Long: `Generate markdown documentation for the HTTP endpoints and the MCP tools.
The tool section is produced from the registered tool definitions, so it
always matches what "serve --mcp" exposes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// Tools are only listed, never called, so no real credential is needed.
	sc, err := server.NewServerContext(context.Background(), server.ContextConfig{
		Credentials: google.StaticSource{Err: google.ErrAuthorizationRequired},
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()

	serverTools := newMCPServer(sc).ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	markdown := generateDocsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}
	fmt.Print(markdown)
	return nil
}

type endpointDoc struct {
	method, path, description string
}

var endpointDocs = []endpointDoc{
	{"POST", "/create_appointment", "Create an event. Responds 201 with `{\"status\":\"success\",\"eventLink\":...}`."},
	{"GET", "/read_appointments", "The next upcoming events, ordered by start time. Responds 200 with `{\"status\":\"success\",\"events\":[...]}`."},
	{"GET", "/read_appointments.ics", "The same events as an iCalendar document."},
	{"DELETE", "/delete_appointment/{event_id}", "Delete an event. Responds 204 with an empty body."},
	{"GET", "/healthz", "Liveness probe."},
	{"GET", "/readyz", "Readiness probe. Fails while no usable credential is available."},
	{"GET", "/healthz/detailed", "Version, uptime, calendar and credential state."},
	{"POST", "/mcp", "MCP streamable HTTP endpoint, enabled with `--mcp`."},
}

func generateDocsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# appointments API Reference\n\n")
	sb.WriteString("**Note:** The MCP tool section is generated from the tool definitions.\n\n")

	sb.WriteString("## HTTP Endpoints\n\n")
	sb.WriteString("| Method | Path | Description |\n")
	sb.WriteString("|---|---|---|\n")
	for _, e := range endpointDocs {
		fmt.Fprintf(&sb, "| %s | `%s` | %s |\n", e.method, e.path, e.description)
	}
	sb.WriteString("\nErrors respond 500 with `{\"status\":\"error\",\"message\":...}`.\n\n")

	sb.WriteString("## MCP Tools\n\n")
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	for _, tool := range tools {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
			if !ok {
				continue
			}

			requiredStr := "optional"
			if slices.Contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr)
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
