// Command gqlbridge serves a GraphQL schema backed by a static JSON fixture
// and checks schema files.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hanpama/gqlbridge"
	"github.com/hanpama/gqlbridge/internal/config"
	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/logging"
	"github.com/hanpama/gqlbridge/internal/metrics"
	"github.com/hanpama/gqlbridge/internal/otel"
	"github.com/hanpama/gqlbridge/internal/sdlfile"
	"github.com/hanpama/gqlbridge/schema"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gqlbridge",
		Usage: "GraphQL over HTTP for a schema and its resolvers",
		Commands: []*cli.Command{
			serveCommand(),
			checkCommand(),
		},
	}
}

var schemaFlag = &cli.StringFlag{
	Name:    "schema",
	Aliases: []string{"s"},
	Usage:   "GraphQL SDL file, or a directory of .graphql files (`PATH`)",
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the schema over HTTP, resolving root fields from a JSON fixture",
		Flags: []cli.Flag{
			schemaFlag,
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "JSON `FILE` used as the root value"},
			&cli.StringFlag{Name: "env-file", Usage: "dotenv `FILE` read before the environment", Value: ".env"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "path", Usage: "GraphQL endpoint route"},
			&cli.StringFlag{Name: "route-prefix", Usage: "prefix for the endpoint and GraphiQL routes"},
			&cli.StringFlag{Name: "graphiql-path", Usage: "GraphiQL route"},
			&cli.BoolFlag{Name: "graphiql", Usage: "serve the GraphiQL page"},
			&cli.BoolFlag{Name: "introspection", Usage: "allow __schema and __type"},
			&cli.DurationFlag{Name: "timeout", Usage: "default per-request timeout"},
			&cli.Int64Flag{Name: "max-body-bytes", Usage: "largest accepted POST body"},
			&cli.IntFlag{Name: "max-concurrency", Usage: "resolvers running at once per depth (0 = no cap)"},
			&cli.BoolFlag{Name: "pretty", Usage: "indent JSON responses"},
			&cli.StringSliceFlag{Name: "cors-origin", Usage: "allowed CORS origin, repeatable"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "metrics", Usage: "expose Prometheus metrics"},
			&cli.StringFlag{Name: "otel-endpoint", Usage: "OTLP gRPC collector host:port"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return serve(c.Context, cfg)
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Assemble a schema and print its normalized SDL",
		Flags: []cli.Flag{schemaFlag},
		Action: func(c *cli.Context) error {
			sch, err := loadSchema(c.String("schema"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.App.Writer, schema.Render(sch))
			return err
		},
	}
}

// loadConfig reads the environment configuration and applies the flags that
// were set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}
	setString("schema", &cfg.SchemaFile)
	setString("data", &cfg.DataFile)
	setString("addr", &cfg.Addr)
	setString("path", &cfg.Path)
	setString("route-prefix", &cfg.RoutePrefix)
	setString("graphiql-path", &cfg.GraphiQLPath)
	setString("log-level", &cfg.Log.Level)
	setString("otel-endpoint", &cfg.Tracing.OTLPEndpoint)
	setBool("graphiql", &cfg.GraphiQL)
	setBool("introspection", &cfg.Introspection)
	setBool("pretty", &cfg.Pretty)
	setBool("metrics", &cfg.Metrics.Enabled)
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("max-body-bytes") {
		cfg.MaxBodyBytes = c.Int64("max-body-bytes")
	}
	if c.IsSet("max-concurrency") {
		cfg.MaxConcurrency = c.Int("max-concurrency")
	}
	if c.IsSet("cors-origin") {
		cfg.CORSOrigins = c.StringSlice("cors-origin")
	}
	if cfg.SchemaFile == "" {
		return nil, errors.New("a schema file is required (--schema or GQLBRIDGE_SCHEMA)")
	}
	return cfg, nil
}

func loadSchema(file string) (*schema.Schema, error) {
	if file == "" {
		return nil, errors.New("--schema is required")
	}
	sdl, err := sdlfile.Load(file)
	if err != nil {
		return nil, err
	}
	return schema.Assemble(sdl, nil)
}

func loadRootValue(file string) (any, error) {
	if file == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode data %s: %w", file, err)
	}
	return v, nil
}

// app is a configured bridge with its observers attached.
type app struct {
	handler http.Handler
	log     *zap.Logger
	close   func(context.Context) error
}

func newServer(ctx context.Context, cfg *config.Config) (*app, error) {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	sdl, err := sdlfile.Load(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	root, err := loadRootValue(cfg.DataFile)
	if err != nil {
		return nil, err
	}

	opts := []gqlbridge.Option{
		gqlbridge.WithPath(cfg.Path),
		gqlbridge.WithRoutePrefix(cfg.RoutePrefix),
		gqlbridge.WithGraphiQLPath(cfg.GraphiQLPath),
		gqlbridge.WithIntrospection(cfg.Introspection),
		gqlbridge.WithRootValue(root),
		gqlbridge.WithLogger(log),
		gqlbridge.WithTimeout(cfg.Timeout),
		gqlbridge.WithMaxBodyBytes(cfg.MaxBodyBytes),
		gqlbridge.WithMaxConcurrency(cfg.MaxConcurrency),
	}
	if !cfg.GraphiQL {
		opts = append(opts, gqlbridge.WithoutGraphiQL())
	}
	if cfg.Pretty {
		opts = append(opts, gqlbridge.WithPretty())
	}
	if len(cfg.CORSOrigins) > 0 {
		opts = append(opts, gqlbridge.WithCORS(cfg.CORSOrigins...))
	}
	b, err := gqlbridge.New(sdl, nil, opts...)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	eventbus.Use(bus)
	closers := []func(context.Context) error{}
	unsubscribeLog := logging.Subscribe(bus, log)
	closers = append(closers, func(context.Context) error { unsubscribeLog(); return nil })

	mux := http.NewServeMux()
	b.Register(mux)

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(reg)
		if err != nil {
			return nil, err
		}
		unsubscribe := m.Subscribe(bus)
		closers = append(closers, func(context.Context) error { unsubscribe(); return nil })
		mux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
	}

	shutdownTracing, err := otel.Setup(ctx, bus, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}
	closers = append(closers, shutdownTracing)

	return &app{
		handler: mux,
		log:     log,
		close: func(ctx context.Context) error {
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i](ctx))
			}
			eventbus.Use(nil)
			_ = log.Sync()
			return errors.Join(errs...)
		},
	}, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.Addr, Handler: a.handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("GraphQL server listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = a.close(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return a.close(shutdownCtx)
}
