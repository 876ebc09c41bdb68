// Package main is the entrypoint for the fetchguard sidecar.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fetchguard/fetchguard/internal/components/api"
	"github.com/fetchguard/fetchguard/internal/components/fetch"
	"github.com/fetchguard/fetchguard/internal/components/rules"
	"github.com/fetchguard/fetchguard/internal/components/validate"
	"github.com/fetchguard/fetchguard/internal/platform/cfg"
	"github.com/fetchguard/fetchguard/internal/platform/config"
	"github.com/fetchguard/fetchguard/internal/platform/server"
	"github.com/fetchguard/fetchguard/internal/platform/store"

	// Register audit store drivers
	_ "github.com/fetchguard/fetchguard/internal/platform/store/sqlite"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	modeFlag := flag.String("mode", "", "Operating mode: strict or dev (overrides config)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	followRedirects := flag.String("follow-redirects", "", "Follow redirects: true or false (overrides config)")
	redirectLimit := flag.String("redirect-limit", "", "Redirect limit, 0 means unlimited (overrides config)")
	outputHeaders := flag.String("output-headers", "", "Prepend response headers to the body: true or false (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: debug, info, warn, error (overrides config)")
	auditEnabled := flag.String("audit", "", "Enable the audit store: true or false (overrides config)")
	fetchURL := flag.String("fetch", "", "One-shot mode: fetch the given URL, print the body, and exit")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load config with precedence: mode preset -> TOML file -> CLI flags
	c, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		ModeFlag:   *modeFlag,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:      listenAddr,
			FollowRedirects: followRedirects,
			RedirectLimit:   redirectLimit,
			OutputHeaders:   outputHeaders,
			LoggingLevel:    loggingLevel,
			AuditEnabled:    auditEnabled,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create logger with configured level
	var level slog.Level
	switch c.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("effective configuration", "config", c.Redacted())

	// Build the rule list: stock defaults plus configured entries
	byCategory := make(map[rules.Category]rules.Entries)
	for cat, raw := range c.Rules {
		var e rules.Entries
		if err := cfg.Decode(raw, &e); err != nil {
			logger.Error("failed to decode rules", "category", cat, "error", err)
			os.Exit(1)
		}
		byCategory[rules.Category(cat)] = e
	}
	list, err := rules.FromEntries(byCategory)
	if err != nil {
		logger.Error("failed to build rule list", "error", err)
		os.Exit(1)
	}

	validator := validate.New(list)
	validator.SetAllowCredentials(c.Fetch.AllowCredentials)

	// Executors hold a single-use transport pin, so build one per fetch.
	newFetcher := func() api.Fetcher {
		transport := fetch.NewHTTPTransport(fetch.TransportOptions{
			TimeoutMS:          c.Outbound.TimeoutMS,
			ConnectTimeoutMS:   c.Outbound.ConnectTimeoutMS,
			MaxResponseBytes:   c.Outbound.MaxResponseBytes,
			InsecureSkipVerify: c.Outbound.InsecureSkipVerify,
			UserAgent:          c.Outbound.UserAgent,
		})
		e := fetch.New(validator, transport)
		e.SetFollowRedirects(c.Fetch.FollowRedirects)
		if err := e.SetRedirectLimit(c.Fetch.RedirectLimit); err != nil {
			// Config validation rejects negative limits before this point.
			logger.Error("invalid redirect limit", "error", err)
			os.Exit(1)
		}
		e.SetOutputHeaders(c.Fetch.OutputHeaders)
		return e
	}

	// One-shot mode: fetch, print, exit. No server, no audit store.
	if *fetchURL != "" {
		body, err := newFetcher().Execute(context.Background(), *fetchURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Stdout.Write(body)
		return
	}

	// Open the audit store if enabled
	var audit store.Driver
	if c.Audit.Enabled {
		if err := os.MkdirAll(c.Audit.DataDir, 0700); err != nil {
			logger.Error("failed to create audit data dir", "path", c.Audit.DataDir, "error", err)
			os.Exit(1)
		}
		driver := c.Audit.Driver
		if driver == "" {
			driver = "sqlite"
		}
		audit, err = store.Open(driver, &store.DriverConfig{DataDir: c.Audit.DataDir})
		if err != nil {
			logger.Error("failed to open audit store", "driver", driver, "error", err)
			os.Exit(1)
		}
		if err := audit.Init(context.Background()); err != nil {
			logger.Error("failed to init audit store", "driver", driver, "error", err)
			os.Exit(1)
		}
		defer audit.Close()
		logger.Info("audit store enabled", "driver", audit.Name(), "data_dir", c.Audit.DataDir)
	}

	fetchHandler := api.NewFetchHandler(newFetcher, audit, logger)
	srv := server.New(c, logger, fetchHandler)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
