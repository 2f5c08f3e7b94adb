package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/teemow/appointments/internal/config"
	"github.com/teemow/appointments/internal/google"
	"github.com/teemow/appointments/internal/instrumentation"
	"github.com/teemow/appointments/internal/logging"
)

// rootOptions are the persistent flags every subcommand understands.
type rootOptions struct {
	configFile string
	envFile    string

	googleClientID        string
	googleClientSecret    string
	googleCredentialsFile string
	tokenFile             string

	debug     bool
	logFormat string
}

func (o *rootOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.configFile, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&o.envFile, "env-file", ".env", "Path to a .env file loaded into the environment if it exists")
	fs.StringVar(&o.googleClientID, "google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	fs.StringVar(&o.googleClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	fs.StringVar(&o.googleCredentialsFile, "google-credentials-file", "", "Google client secret JSON file. Can also use GOOGLE_CREDENTIALS_FILE env var.")
	fs.StringVar(&o.tokenFile, "token-file", "", "Where the Google credential is stored. Can also use TOKEN_FILE env var.")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging. Can also use LOG_LEVEL=debug.")
	fs.StringVar(&o.logFormat, "log-format", "", "Log format: text or json. Can also use LOG_FORMAT env var.")
}

// apply copies explicitly set flags over cfg.
func (o *rootOptions) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("google-client-id") {
		cfg.Google.ClientID = o.googleClientID
	}
	if fs.Changed("google-client-secret") {
		cfg.Google.ClientSecret = o.googleClientSecret
	}
	if fs.Changed("google-credentials-file") {
		cfg.Google.CredentialsFile = o.googleCredentialsFile
	}
	if fs.Changed("token-file") {
		cfg.Credentials.TokenFile = o.tokenFile
	}
	if fs.Changed("debug") && o.debug {
		cfg.Log.Level = "debug"
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
}

// load builds the configuration: defaults, YAML file, .env, environment
// and then the flags in fs that were set explicitly.
func (o *rootOptions) load(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(o.configFile, o.envFile)
	if err != nil {
		return config.Config{}, err
	}
	o.apply(fs, &cfg)
	return cfg, nil
}

// serveOptions are the flags of the serve command.
type serveOptions struct {
	httpAddr        string
	corsOrigins     []string
	mcp             bool
	calendarID      string
	maxResults      int64
	metricsEnabled  bool
	metricsAddr     string
	interactiveAuth bool
}

func (o *serveOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.httpAddr, "http-addr", config.DefaultAddr, "HTTP listen address. Can also use HTTP_ADDR or PORT env vars.")
	fs.StringSliceVar(&o.corsOrigins, "cors-origins", nil, "Allowed CORS origins (comma-separated, * for any). Can also use CORS_ALLOWED_ORIGINS env var.")
	fs.BoolVar(&o.mcp, "mcp", false, "Expose the appointment operations as MCP tools at /mcp. Can also use MCP_ENABLED env var.")
	fs.StringVar(&o.calendarID, "calendar-id", config.DefaultCalendarID, "Google Calendar ID. Can also use CALENDAR_ID env var.")
	fs.Int64Var(&o.maxResults, "max-results", config.DefaultMaxResults, "Number of upcoming events returned by a read. Can also use CALENDAR_MAX_RESULTS env var.")
	fs.BoolVar(&o.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	fs.StringVar(&o.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	fs.BoolVar(&o.interactiveAuth, "interactive-auth", false, "Run the browser consent flow when no credential is available instead of failing")
}

func (o *serveOptions) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("http-addr") {
		cfg.Server.Addr = o.httpAddr
	}
	if fs.Changed("cors-origins") {
		cfg.Server.CORSOrigins = config.SplitList(strings.Join(o.corsOrigins, ","))
	}
	if fs.Changed("mcp") {
		cfg.Server.MCP = o.mcp
	}
	if fs.Changed("calendar-id") {
		cfg.Calendar.ID = o.calendarID
	}
	if fs.Changed("max-results") {
		cfg.Calendar.MaxResults = o.maxResults
	}
	if fs.Changed("metrics-enabled") {
		cfg.Metrics.Enabled = o.metricsEnabled
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, cfg.Format)
}

// newCredentialManager wires the OAuth client configuration, the token
// file and the authorizer used when nothing is stored.
func newCredentialManager(cfg config.Config, authorizer google.Authorizer, logger *slog.Logger, metrics *instrumentation.Metrics) (*google.Manager, *google.FileTokenStore, error) {
	oauthConf, err := google.NewOAuthConfig(cfg.Google)
	if err != nil {
		return nil, nil, err
	}
	key, err := cfg.Credentials.Key()
	if err != nil {
		return nil, nil, err
	}
	store, err := google.NewFileTokenStore(cfg.Credentials.TokenFile, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open token store: %w", err)
	}
	manager, err := google.NewManager(google.ManagerConfig{
		OAuth:        oauthConf,
		Store:        store,
		Authorizer:   authorizer,
		RefreshToken: cfg.Google.RefreshToken,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	return manager, store, nil
}
