// Package surveyconfig loads the engine's runtime configuration: storage
// connection settings, tracing/metrics export targets, and defaults for
// the CLI. A YAML file read through viper, overridable by
// SURVEYFLOW_-prefixed environment variables.
package surveyconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the engine's full runtime configuration.
type Config struct {
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// StorageConfig configures internal/storage/sqlstore's connection.
type StorageConfig struct {
	// Path is the embedded Dolt database directory. Ignored when
	// ServerMode is true.
	Path string

	// ServerMode connects to a running dolt sql-server instead of opening
	// an embedded database (see internal/storage/sqlstore.Config).
	ServerMode bool

	// Server* configure the go-sql-driver/mysql connection used when
	// ServerMode is true, mirroring internal/storage/sqlstore.Config's
	// fields one-for-one so callers can copy this struct across directly.
	ServerHost     string
	ServerPort     int
	ServerUser     string
	ServerPassword string
	ServerTLS      bool

	// Database is the schema/database name to USE.
	Database string

	// RetryMaxElapsed bounds how long server-mode transient errors are
	// retried before giving up (internal/storage/sqlstore's backoff).
	RetryMaxElapsed time.Duration
}

// TelemetryConfig configures internal/telemetry's tracer/meter providers.
type TelemetryConfig struct {
	ServiceName    string
	OTLPEndpoint   string
	ExportInterval time.Duration
	// Stdout, when true, writes spans/metrics to stdout instead of (or in
	// addition to) OTLP, useful for `surveyctl` running without a collector.
	Stdout bool
}

func defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault("storage.path", ".surveyflow/dolt")
	v.SetDefault("storage.server_mode", false)
	v.SetDefault("storage.database", "surveyflow")
	v.SetDefault("storage.server_host", "127.0.0.1")
	v.SetDefault("storage.server_port", 3307)
	v.SetDefault("storage.server_user", "root")
	v.SetDefault("storage.retry_max_elapsed", "30s")
	v.SetDefault("telemetry.service_name", "surveyflow-engine")
	v.SetDefault("telemetry.export_interval", "15s")
	v.SetDefault("telemetry.stdout", true)
	return v
}

// Load reads configPath (a YAML file; absence is not an error, defaults
// apply) and overlays SURVEYFLOW_-prefixed environment variables via
// viper.AutomaticEnv.
func Load(configPath string) (*Config, error) {
	v := defaults()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("surveyconfig: read %s: %w", configPath, err)
			}
		}
	}
	v.SetEnvPrefix("SURVEYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	retryMaxElapsed, err := time.ParseDuration(v.GetString("storage.retry_max_elapsed"))
	if err != nil {
		return nil, fmt.Errorf("surveyconfig: storage.retry_max_elapsed: %w", err)
	}
	exportInterval, err := time.ParseDuration(v.GetString("telemetry.export_interval"))
	if err != nil {
		return nil, fmt.Errorf("surveyconfig: telemetry.export_interval: %w", err)
	}

	return &Config{
		Storage: StorageConfig{
			Path:            v.GetString("storage.path"),
			ServerMode:      v.GetBool("storage.server_mode"),
			ServerHost:      v.GetString("storage.server_host"),
			ServerPort:      v.GetInt("storage.server_port"),
			ServerUser:      v.GetString("storage.server_user"),
			ServerPassword:  v.GetString("storage.server_password"),
			ServerTLS:       v.GetBool("storage.server_tls"),
			Database:        v.GetString("storage.database"),
			RetryMaxElapsed: retryMaxElapsed,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    v.GetString("telemetry.service_name"),
			OTLPEndpoint:   v.GetString("telemetry.otlp_endpoint"),
			ExportInterval: exportInterval,
			Stdout:         v.GetBool("telemetry.stdout"),
		},
	}, nil
}
