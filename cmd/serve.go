package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/appointments/internal/config"
	"github.com/teemow/appointments/internal/google"
	"github.com/teemow/appointments/internal/instrumentation"
	"github.com/teemow/appointments/internal/logging"
	"github.com/teemow/appointments/internal/server"
	"github.com/teemow/appointments/internal/tools/appointment_tools"
)

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the appointments HTTP server",
		Long: `Start the HTTP server that proxies appointment requests to Google Calendar.

Endpoints:
  POST   /create_appointment             Create an event, returns its link
  GET    /read_appointments              The next upcoming events
  GET    /read_appointments.ics          The same events as iCalendar
  DELETE /delete_appointment/{event_id}  Delete an event
  GET    /healthz, /readyz, /healthz/detailed
  POST   /mcp                            MCP tools (with --mcp)

Credentials:
  The server never prompts for consent unless --interactive-auth is set.
  Store a credential with "appointments auth" first, or provide a refresh
  token via GOOGLE_REFRESH_TOKEN.

Metrics:
  Prometheus metrics are served on a dedicated port (--metrics-addr,
  default :9090) unless --metrics-enabled=false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load(cmd.Flags())
			if err != nil {
				return err
			}
			opts.apply(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(os.Stderr, cfg.Log)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg, opts.interactiveAuth, logger)
		},
	}

	opts.bind(cmd.Flags())

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, interactiveAuth bool, logger *slog.Logger) error {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	var authorizer google.Authorizer = google.NonInteractiveAuthorizer{}
	if interactiveAuth {
		authorizer = &google.LocalServerAuthorizer{Logger: logger}
	}
	manager, store, err := newCredentialManager(cfg, authorizer, logger, metrics)
	if err != nil {
		return err
	}
	if st := manager.Status(ctx); !st.Ready() {
		logger.Warn("no usable Google credential; requests will fail until one is stored",
			slog.String("token_file", store.Path()),
			slog.Bool("interactive_auth", interactiveAuth))
	}

	sc, err := server.NewServerContext(ctx, server.ContextConfig{
		Credentials: manager,
		CalendarID:  cfg.Calendar.ID,
		MaxResults:  cfg.Calendar.MaxResults,
		Metrics:     metrics,
		Audit:       instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}

	var mcpSrv *mcpserver.MCPServer
	if cfg.Server.MCP {
		mcpSrv = newMCPServer(sc)
	}

	appServer, err := server.NewAppointmentServer(sc, server.Config{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
		MCPServer:   mcpSrv,
		Version:     version,
		Logger:      logger,
	})
	if err != nil {
		_ = sc.Shutdown()
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 2)

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() && provider.Config().MetricsExporter == instrumentation.ExporterPrometheus {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			_ = sc.Shutdown()
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		if err := appServer.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info("appointments server started",
		slog.String("addr", cfg.Server.Addr),
		slog.String(logging.KeyCalendarID, cfg.Calendar.ID),
		slog.Bool("mcp", mcpSrv != nil),
		slog.Bool("metrics", metricsServer != nil))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed", logging.Err(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if metricsServer != nil {
		shutdownErr = errors.Join(shutdownErr, metricsServer.Shutdown(shutdownCtx))
	}
	shutdownErr = errors.Join(shutdownErr, appServer.Shutdown(shutdownCtx))
	if shutdownErr != nil {
		logger.Warn("shutdown incomplete", logging.Err(shutdownErr))
	}

	return runErr
}

// newMCPServer builds the MCP server exposing the appointment tools.
func newMCPServer(sc *server.ServerContext) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("appointments", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	appointment_tools.RegisterAppointmentTools(s, sc)
	return s
}
