// Package config holds the Viper-backed process configuration, grounded on
// the teacher's internal/config/config.go: a plain struct Unmarshal target,
// no validation beyond what Load's defaults provide.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration for cmd/server and cmd/cli.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	CORS       CORSConfig
	JWT        JWTConfig
	Monitoring MonitoringConfig
}

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig is the Postgres connection the rule-store loader reads
// from.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Timezone string
}

// RateLimitConfig tunes the bucket/active-connection sweepers and the
// control-plane refresh cadence (not the per-rule rate-limit policy, which
// lives in the rule store).
type RateLimitConfig struct {
	CleanupInterval time.Duration
	BucketTTL       time.Duration
	ConcurrencyTTL  time.Duration
	ReloadInterval  time.Duration
}

// LogConfig mirrors the teacher's logrus + lumberjack rotation knobs.
type LogConfig struct {
	Level      string
	Format     string // json, text
	Output     string // stdout, file, both
	FilePath   string
	MaxSize    int // MB
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// CORSConfig carries a permitted-origins list. The server does not read it
// in this version; no CORS handling is installed.
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds the secret an operator can use to front the admin/reload
// API with an authenticating reverse proxy. Carried for forward
// compatibility; the admin routes themselves do not check it in this
// version (see DESIGN.md).
type JWTConfig struct {
	AdminSecret string
}

// MonitoringConfig carries OpenTelemetry tracing settings.
type MonitoringConfig struct {
	Tracing TracingConfig
}

// TracingConfig is the OTLP gRPC exporter configuration, grounded on the
// teacher's internal/observability/otel.go.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// Load unmarshals whatever Viper has already read (config file, env,
// flags) into a Config, applying defaults for anything unset.
func Load() *Config {
	setDefaults()
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.timezone", "UTC")
	viper.SetDefault("ratelimit.cleanupinterval", 30*time.Second)
	viper.SetDefault("ratelimit.bucketttl", 2*time.Minute)
	viper.SetDefault("ratelimit.concurrencyttl", 5*time.Minute)
	viper.SetDefault("ratelimit.reloadinterval", time.Minute)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("monitoring.tracing.enabled", false)
	viper.SetDefault("monitoring.tracing.servicename", "accessguard")
	viper.SetDefault("monitoring.tracing.sampleratio", 0.1)
}
