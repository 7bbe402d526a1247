package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fluxorio/handlebars/pkg/config"
	"github.com/fluxorio/handlebars/pkg/core"
	"github.com/fluxorio/handlebars/pkg/dispatch"
	"github.com/fluxorio/handlebars/pkg/observability/otel"
	obsprom "github.com/fluxorio/handlebars/pkg/observability/prometheus"
	"github.com/fluxorio/handlebars/pkg/reactor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valyala/fasthttp"
)

const version = "0.1.0"

// demos maps a -demo name to its runner.
var demos = map[string]func(ctx context.Context, a *app) error{
	"arithmetic": runArithmetic,
	"greeting":   runGreeting,
}

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .json config file")
	demo := flag.String("demo", "arithmetic", "demo to run: "+strings.Join(demoNames(), ", "))
	wait := flag.Bool("wait", false, "keep serving metrics after the demo until interrupted")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("handlebars version %s\n", version)
		return
	}

	if err := run(*configPath, *demo, *wait); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, demo string, wait bool) error {
	runDemo, ok := demos[demo]
	if !ok {
		return fmt.Errorf("unknown demo %q (want one of %s)", demo, strings.Join(demoNames(), ", "))
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	logger := core.NewLogger(cfg.Logging.LoggerConfig())
	defer core.CloseLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := otel.Initialize(ctx, otel.FromConfig(cfg.Tracing)); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing shutdown: ", err)
		}
	}()

	a := &app{cfg: cfg, logger: logger, out: os.Stdout}
	if cfg.Metrics.Enabled {
		server, err := a.serveMetrics()
		if err != nil {
			return err
		}
		defer server.Shutdown()
	}

	logger.WithFields(map[string]interface{}{"demo": demo}).Info("running demo")
	if err := runDemo(ctx, a); err != nil {
		return err
	}

	if wait && cfg.Metrics.Enabled {
		logger.Info("demo finished, serving metrics until interrupted")
		<-ctx.Done()
	}
	logger.Info("shutting down")
	return nil
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// app carries what every demo needs.
type app struct {
	cfg     config.Config
	logger  core.Logger
	metrics *obsprom.Metrics
	out     io.Writer
}

// serveMetrics registers the dispatch collectors and serves them over
// fasthttp on the configured address.
func (a *app) serveMetrics() (*fasthttp.Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m, err := obsprom.NewMetrics(reg, a.cfg.Metrics.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	a.metrics = m

	server := &fasthttp.Server{
		Handler: otel.HTTPMiddleware(obsprom.FastHTTPHandler(reg, a.cfg.Metrics.Path)),
		Name:    "handlebars",
	}
	go func() {
		if err := server.ListenAndServe(a.cfg.Metrics.Address); err != nil {
			a.logger.Error("metrics server: ", err)
		}
	}()
	a.logger.WithFields(map[string]interface{}{
		"address": a.cfg.Metrics.Address,
		"path":    a.cfg.Metrics.Path,
	}).Info("serving metrics")
	return server, nil
}

// domainOptions labels a demo domain and attaches logging and metrics.
func (a *app) domainOptions(name string) []dispatch.Option {
	opts := []dispatch.Option{
		dispatch.WithName(name),
		dispatch.WithLogger(a.logger),
	}
	if a.metrics != nil {
		opts = append(opts, dispatch.WithObserver(a.metrics.Observer(name)))
	}
	return opts
}

// tracedDrainer drains a domain inside a respond span.
type tracedDrainer struct {
	domain otel.Responder
}

func (t tracedDrainer) Respond(limit int) bool {
	return otel.RespondWithSpan(context.Background(), t.domain, limit)
}

// drive runs setup on a reactor owning d, then stops the reactor, which
// drains whatever setup queued.
func (a *app) drive(ctx context.Context, d otel.Responder, setup func(r *reactor.Reactor) error) error {
	r := reactor.NewReactor(d.Name(), tracedDrainer{domain: d}, reactor.Options{
		MailboxSize:  a.cfg.Dispatch.MailboxSize,
		Interval:     a.cfg.Dispatch.Interval(),
		RespondLimit: a.cfg.Dispatch.RespondLimit,
		Logger:       a.logger,
	})
	if err := r.Start(); err != nil {
		return err
	}

	setupErr := setup(r)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		return fmt.Errorf("reactor %s did not stop: %w", d.Name(), err)
	}
	if setupErr != nil {
		return setupErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Err()
}
