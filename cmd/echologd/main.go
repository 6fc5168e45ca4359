// Echologd is a demo daemon for the echolog plugin.
//
// It runs an Echo server with request/server lifecycle logging wired through
// echolog, a Prometheus metrics endpoint, and graceful shutdown.
//
// Usage:
//
//	# Start with defaults
//	echologd
//
//	# Point at a config file
//	echologd -config ~/.config/echologd/config.yaml
//
//	# Configure via environment
//	ECHOLOGD_SERVER_PORT=8080 ECHOLOGD_LOGGING_LEVEL=debug echologd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/echolog/internal/config"
	"github.com/fyrsmithlabs/echolog/internal/logging"
	"github.com/fyrsmithlabs/echolog/pkg/echolog"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath = flag.String("config", "", "path to config file (default ~/.config/echologd/config.yaml)")

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  echologd           Start the echologd daemon\n")
			fmt.Fprintf(os.Stderr, "  echologd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("echologd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the demo server and blocks until the context is cancelled.
// Returns nil on graceful shutdown.
func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	plugin, err := echolog.New(pluginOptions(cfg, logger))
	if err != nil {
		return fmt.Errorf("failed to initialize echolog: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	plugin.Attach(e)

	registerRoutes(e, plugin)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- plugin.Start(e, addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := plugin.Shutdown(shutdownCtx, e); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	// Wait for Start to unwind so the "server stopped" record is emitted.
	<-errCh
	return nil
}

// initLogger builds the daemon's sink from the logging config section.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format
	logCfg.Fields = map[string]string{"service": "echologd"}
	logCfg.Redaction.Fields = append(logCfg.Redaction.Fields, cfg.Logging.Redact...)

	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Level = level

	return logging.NewLogger(logCfg, nil)
}

// pluginOptions maps the plugin config section onto echolog options.
func pluginOptions(cfg *config.Config, logger *logging.Logger) echolog.Options {
	opts := echolog.Options{
		Instance:             logger.Underlying(),
		Tags:                 cfg.Plugin.Tags,
		AllTags:              cfg.Plugin.AllTags,
		MergeLogData:         cfg.Plugin.MergeLogData,
		MessageKey:           cfg.Plugin.MessageKey,
		LogPayload:           cfg.Plugin.LogPayload,
		LogQueryParams:       cfg.Plugin.LogQueryParams,
		LogPathParams:        cfg.Plugin.LogPathParams,
		LogRouteTags:         cfg.Plugin.LogRouteTags,
		Log4xxResponseErrors: true,
		IgnorePaths:          cfg.Plugin.IgnorePaths,
		IgnoreTags:           cfg.Plugin.IgnoreTags,
		RouteTags: map[string][]string{
			"/health": {"health"},
		},
	}
	if cfg.Plugin.LogRequestStart {
		opts.LogRequestStart = echolog.Always
	}
	if cfg.Plugin.DisableRequestComplete {
		opts.LogRequestComplete = echolog.Never
	}
	return opts
}

// EchoRequest is the request body for POST /api/v1/echo.
type EchoRequest struct {
	Message string `json:"message"`
}

// EchoResponse is the response body for POST /api/v1/echo.
type EchoResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func registerRoutes(e *echo.Echo, plugin *echolog.Plugin) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	v1.POST("/echo", func(c echo.Context) error {
		var req EchoRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.Message == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
		}

		echolog.Logger(c).Debug("echoing message", zap.Int("length", len(req.Message)))
		plugin.RequestLog(c, []string{"audit"}, map[string]any{"messageLength": len(req.Message)})

		return c.JSON(http.StatusOK, EchoResponse{Message: req.Message})
	})

	v1.GET("/fail", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "intentional failure for log demos")
	})
}
