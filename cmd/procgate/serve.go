package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jrepp/procgate/pkg/config"
	"github.com/jrepp/procgate/pkg/observe"
	"github.com/jrepp/procgate/pkg/proxy"
	"github.com/jrepp/procgate/pkg/routing"
	"github.com/jrepp/procgate/pkg/supervisor"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		manifestPath string
		logLevel     string
		enableTrace  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the worker fleet and serve the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(manifestPath, logLevel, enableTrace)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "manifest.yaml", "path to the process manifest")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&enableTrace, "trace", false, "enable OpenTelemetry tracing to stdout")

	return cmd
}

func runServe(manifestPath, logLevel string, enableTrace bool) error {
	setupLogging(logLevel)

	manifest, err := config.Load(manifestPath)
	if err != nil {
		return err
	}

	slog.Info("manifest loaded",
		"path", manifestPath,
		"processes", len(manifest.Processes),
		"listen", manifest.Listen,
		"ops_listen", manifest.OpsListen,
		"cache_enabled", manifest.Cache.Enabled)

	obs := observe.NewManager(&observe.Config{
		ServiceName:    "procgate",
		ServiceVersion: version,
		EnableTracing:  enableTrace,
	})
	if err := obs.Initialize(context.Background()); err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}

	supMetrics := supervisor.NewPrometheusMetricsCollector("procgate")
	sup := supervisor.New(supervisor.WithMetricsCollector(supMetrics))
	for _, p := range manifest.Processes {
		sup.Register(p)
	}

	proxyMetrics := proxy.NewPrometheusMetricsCollector("procgate")
	opts := []proxy.Option{proxy.WithMetricsCollector(proxyMetrics)}
	if manifest.Cache.Enabled {
		opts = append(opts, proxy.WithCache(manifest.Cache.Capacity))
		if len(manifest.Cache.Methods) > 0 {
			opts = append(opts, proxy.WithCacheMethods(manifest.Cache.Methods...))
		}
	}

	orchestrator, err := proxy.New(routing.NewTable(manifest.Processes), opts...)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	sup.StartAll()
	defer sup.Shutdown()

	proxySrv := &http.Server{
		Addr:    manifest.Listen,
		Handler: proxy.NewHandler(orchestrator),
	}
	opsSrv := &http.Server{
		Addr:    manifest.OpsListen,
		Handler: newOpsHandler(sup, supMetrics.Registry(), proxyMetrics.Registry()),
	}

	serveErr := make(chan error, 2)
	go func() {
		slog.Info("proxy listening", "addr", manifest.Listen)
		if err := proxySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("proxy server: %w", err)
		}
	}()
	go func() {
		slog.Info("ops endpoints listening", "addr", manifest.OpsListen)
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("ops server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		slog.Error("listener failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := proxySrv.Shutdown(ctx); err != nil {
		slog.Error("proxy server shutdown error", "error", err)
	}
	if err := opsSrv.Shutdown(ctx); err != nil {
		slog.Error("ops server shutdown error", "error", err)
	}

	sup.StopAll()

	if err := obs.Shutdown(ctx); err != nil {
		slog.Error("observability shutdown error", "error", err)
	}

	slog.Info("procgate stopped")
	return nil
}

// newOpsHandler serves the operational endpoints on their own listener so
// they never shadow worker routes: /healthz with per-process state and
// /metrics merging the supervisor and proxy registries.
func newOpsHandler(sup *supervisor.Supervisor, registries ...prometheus.Gatherer) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		health := sup.Health()
		running := 0
		for _, up := range health {
			if up {
				running++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"running":   running,
			"processes": health,
		})
	})

	metricsHandler := promhttp.HandlerFor(prometheus.Gatherers(registries), promhttp.HandlerOpts{})
	engine.GET("/metrics", gin.WrapH(metricsHandler))

	return engine
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
