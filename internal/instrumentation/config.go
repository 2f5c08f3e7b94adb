package instrumentation

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Config selects exporters and labelling for metrics and traces.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname, which is the pod name
	// in Kubernetes.
	ServiceInstanceID string
	K8sNamespace      string
	K8sPodName        string

	// Enabled=false turns every recorder into a no-op.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without scheme, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector. Local use only.
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of root spans kept, 0.0 to 1.0.
	TraceSamplingRate float64

	// DetailedLabels adds the calendar ID to calendar API metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the appointment change log.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs attendee addresses instead of their domains.
	IncludePII bool
}

// envReader reads typed settings from the process environment. Unset,
// empty or unparsable values fall back to the given default.
type envReader func(key string) string

func (env envReader) str(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func (env envReader) boolean(key string, def bool) bool {
	if b, err := strconv.ParseBool(env(key)); err == nil {
		return b
	}
	return def
}

func (env envReader) float(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(env(key), 64); err == nil {
		return f
	}
	return def
}

// DefaultConfig reads the configuration from the standard OTEL_* variables
// and a few service specific ones.
func DefaultConfig() Config {
	env := envReader(os.Getenv)

	return Config{
		ServiceName:       env.str("OTEL_SERVICE_NAME", DefaultServiceName),
		ServiceVersion:    "unknown",
		ServiceInstanceID: env.str("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:      env.str("K8S_NAMESPACE", env.str("POD_NAMESPACE", "")),
		K8sPodName:        env.str("K8S_POD_NAME", env.str("HOSTNAME", "")),
		Enabled:           env.boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   env.str("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   env.str("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: env.float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    env.boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.boolean("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate rejects unknown exporters, an out of range sampling rate and
// OTLP without an endpoint. Empty exporter names are accepted.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	if c.MetricsExporter != "" && !slices.Contains([]string{ExporterPrometheus, ExporterOTLP, ExporterStdout}, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	if c.TracingExporter != "" && !slices.Contains([]string{ExporterOTLP, ExporterStdout, ExporterNone}, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" {
		if c.TracingExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
		if c.MetricsExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	}
	return nil
}

// DefaultServiceName is the service name reported when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "appointments"

// Label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	// How Acquire obtained a credential.
	CredentialSourceCache     = "cache"
	CredentialSourceRefresh   = "refresh"
	CredentialSourceSeed      = "seed"
	CredentialSourceAuthorize = "authorize"

	SurfaceHTTP = "http"
	SurfaceMCP  = "mcp"
)

// Exporter names.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval of the otlp and stdout
// metric exporters.
const DefaultMetricInterval = 10 * time.Second
