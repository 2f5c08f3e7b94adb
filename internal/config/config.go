// Package config loads the appointments service configuration.
//
// Settings are layered, lowest precedence first: built-in defaults, an
// optional YAML file, a .env file (loaded into the process environment),
// environment variables. Command line flags are applied on top by the cmd
// package.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAddr matches the port the service has always listened on.
	DefaultAddr = ":5000"

	// DefaultCalendarID is the authenticated user's primary calendar.
	DefaultCalendarID = "primary"

	// DefaultMaxResults is how many upcoming events a read returns.
	DefaultMaxResults = 10

	// DefaultMetricsAddr is the listen address of the dedicated metrics server.
	DefaultMetricsAddr = ":9090"

	// CalendarScope grants read/write access to the user's calendars.
	CalendarScope = "https://www.googleapis.com/auth/calendar"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Calendar    CalendarConfig    `yaml:"calendar"`
	Google      GoogleConfig      `yaml:"google"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	MCP         bool     `yaml:"mcp"`
}

// CalendarConfig selects the calendar requests are proxied to.
type CalendarConfig struct {
	ID         string `yaml:"id"`
	MaxResults int64  `yaml:"max_results"`
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID        string   `yaml:"client_id"`
	ClientSecret    string   `yaml:"client_secret"`
	CredentialsFile string   `yaml:"credentials_file"`
	AuthURL         string   `yaml:"auth_url"`
	TokenURL        string   `yaml:"token_url"`
	RefreshToken    string   `yaml:"refresh_token"`
	Scopes          []string `yaml:"scopes"`
}

// CredentialsConfig configures where the OAuth credential is persisted.
type CredentialsConfig struct {
	TokenFile string `yaml:"token_file"`

	// EncryptionKey is a base64 encoded 32-byte AES key. Empty disables
	// encryption at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the dedicated metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        DefaultAddr,
			CORSOrigins: []string{"*"},
		},
		Calendar: CalendarConfig{
			ID:         DefaultCalendarID,
			MaxResults: DefaultMaxResults,
		},
		Google: GoogleConfig{
			Scopes: []string{CalendarScope},
		},
		Credentials: CredentialsConfig{
			TokenFile: DefaultTokenFile(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    DefaultMetricsAddr,
		},
	}
}

// DefaultTokenFile returns $XDG_CACHE_HOME/appointments/google.token,
// falling back to the working directory when no cache dir is known.
func DefaultTokenFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "google.token"
	}
	return filepath.Join(dir, "appointments", "google.token")
}

// Load builds a Config from defaults, the YAML file at path (optional),
// the .env file at dotenvPath (optional, ignored when missing) and the
// process environment.
func Load(path, dotenvPath string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := LoadDotEnv(dotenvPath); err != nil {
		return Config{}, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// mergeFile overlays the YAML document at path onto c. Keys absent from
// the file keep their current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment.
// Variables that are already set win over the file. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides c with any of the recognised environment variables
// that lookup reports as set and non-empty.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get("PORT"); ok {
		c.Server.Addr = ":" + v
	}
	if v, ok := get("HTTP_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := get("CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSOrigins = SplitList(v)
	}
	if v, ok := get("MCP_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MCP_ENABLED %q: %w", v, err)
		}
		c.Server.MCP = b
	}

	if v, ok := get("CALENDAR_ID"); ok {
		c.Calendar.ID = v
	}
	if v, ok := get("CALENDAR_MAX_RESULTS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CALENDAR_MAX_RESULTS %q: %w", v, err)
		}
		c.Calendar.MaxResults = n
	}

	if v, ok := get("GOOGLE_CLIENT_ID"); ok {
		c.Google.ClientID = v
	}
	if v, ok := get("GOOGLE_CLIENT_SECRET"); ok {
		c.Google.ClientSecret = v
	}
	if v, ok := get("GOOGLE_CREDENTIALS_FILE"); ok {
		c.Google.CredentialsFile = v
	}
	if v, ok := get("GOOGLE_AUTH_URL"); ok {
		c.Google.AuthURL = v
	}
	if v, ok := get("GOOGLE_TOKEN_URL"); ok {
		c.Google.TokenURL = v
	}
	if v, ok := get("GOOGLE_REFRESH_TOKEN"); ok {
		c.Google.RefreshToken = v
	}

	if v, ok := get("TOKEN_FILE"); ok {
		c.Credentials.TokenFile = v
	}
	if v, ok := get("CREDENTIAL_ENCRYPTION_KEY"); ok {
		c.Credentials.EncryptionKey = v
	}

	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Log.Format = v
	}

	if v, ok := get("METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		c.Metrics.Enabled = b
	}
	if v, ok := get("METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}

	return nil
}

// Validate reports configuration errors that would only surface at
// request time otherwise.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address must not be empty")
	}
	if c.Calendar.ID == "" {
		return errors.New("calendar id must not be empty")
	}
	if c.Calendar.MaxResults <= 0 || c.Calendar.MaxResults > 2500 {
		return fmt.Errorf("calendar max results must be between 1 and 2500, got %d", c.Calendar.MaxResults)
	}
	if c.Credentials.TokenFile == "" {
		return errors.New("token file must not be empty")
	}
	if c.Google.CredentialsFile == "" && (c.Google.ClientID == "" || c.Google.ClientSecret == "") {
		return errors.New("google client id and secret are required (set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or GOOGLE_CREDENTIALS_FILE)")
	}
	if _, err := c.Credentials.Key(); err != nil {
		return err
	}
	return nil
}

// Key decodes EncryptionKey. It returns nil when no key is configured.
func (c CredentialsConfig) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key (must be base64 encoded): %w", err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes (got %d bytes)", len(decoded))
	}
	return decoded, nil
}

// SplitList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
