// Package config loads the settings of the gqlbridge command from the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "GQLBRIDGE_"

// Config holds the settings of a serving bridge. Command-line flags override
// the loaded values.
type Config struct {
	Addr           string        `env:"ADDR" envDefault:":8080"`
	SchemaFile     string        `env:"SCHEMA"`
	DataFile       string        `env:"DATA"`
	Path           string        `env:"PATH" envDefault:"/graphql"`
	RoutePrefix    string        `env:"ROUTE_PREFIX"`
	GraphiQLPath   string        `env:"GRAPHIQL_PATH" envDefault:"/graphiql"`
	GraphiQL       bool          `env:"GRAPHIQL" envDefault:"true"`
	Introspection  bool          `env:"INTROSPECTION" envDefault:"true"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY"`
	Pretty         bool          `env:"PRETTY"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:","`

	Log     LogConfig
	Metrics MetricsConfig
	Tracing TracingConfig
}

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT"`
}

type MetricsConfig struct {
	Enabled bool   `env:"METRICS" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

type TracingConfig struct {
	// OTLPEndpoint is the host:port of an OTLP gRPC collector. Empty
	// disables tracing.
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"gqlbridge"`
}

// Load reads the given dotenv files (".env" when none are named) into the
// process environment, then parses the GQLBRIDGE_ variables. Missing dotenv
// files are ignored; variables already set are never overridden.
func Load(dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse(env.Options{})
}

// Parse reads the configuration from the environment described by opts.
// The prefix is always Prefix.
func Parse(opts env.Options) (*Config, error) {
	opts.Prefix = Prefix
	cfg := &Config{}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
