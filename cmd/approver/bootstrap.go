package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"scanner-approval/internal/broker/brokerobs"
	"scanner-approval/internal/broker/zerodha"
	"scanner-approval/internal/cli"
	"scanner-approval/internal/eod"
	"scanner-approval/internal/eod/eodobs"
	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/metrics"
	"scanner-approval/internal/scanner"
	"scanner-approval/internal/session"
	"scanner-approval/internal/store"
	"scanner-approval/internal/tradelog"
	"scanner-approval/internal/types"
	"scanner-approval/internal/workflow"
	"scanner-approval/internal/workflow/workflowobs"
)

// app carries what every command needs after bootstrap.
type app struct {
	cfg      *store.Config
	sessions *session.Store
	metrics  *http.Server
}

// initializeSystem initializes logger, tracer, and EOD summarizer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger (and tracer, when enabled)
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	initializeEOD()
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Ignoring invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := tradelog.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// startMetricsServer serves /metrics when an address is configured.
func startMetricsServer(ctx context.Context, addr string) *http.Server {
	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "Metrics server stopped", err, "addr", addr)
		}
	}()
	logger.Info(ctx, "Serving metrics", "addr", addr)
	return srv
}

// initializeSessionStore returns the cached session store for cfg.
func initializeSessionStore(cfg *store.Config) *session.Store {
	return session.New(cfg.SessionFile, zerodha.NewAuth(cfg.KiteBaseURI))
}

// initializeBroker initializes and returns the broker instance with observability
func initializeBroker(ctx context.Context, cfg *store.Config, sess *types.Session) interfaces.Broker {
	brk := zerodha.NewZerodha(zerodha.Params{
		Mode:        cfg.Mode,
		APIKey:      sess.APIKey,
		AccessToken: sess.AccessToken,
		Exchange:    cfg.Exchange,
		BaseURI:     cfg.KiteBaseURI,
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	// Wrap with observability middleware
	return brokerobs.Wrap(brk)
}

// initializeScanner builds the hosted scanner client from the environment.
func initializeScanner(ctx context.Context, cfg *store.Config) interfaces.ScannerSource {
	url, key := cfg.ScannerCredentials()
	if url == "" || key == "" {
		logger.Warn(ctx, "Scanner store is not configured",
			"url_env", cfg.Scanner.URLEnv,
			"key_env", cfg.Scanner.KeyEnv,
		)
	}
	return scanner.NewClient(url, key, cfg.Scanner.Table)
}

// initializeWorkflow wires the approval state machine with observability.
// out receives the submission progress and batch report.
func initializeWorkflow(src interfaces.ScannerSource, brk interfaces.Broker, out io.Writer) workflow.Machine {
	ctrl := workflow.New(src, brk)
	ctrl.OnTransition(cli.TransitionPrinter(out))
	return workflowobs.Wrap(ctrl)
}

// defaultParams maps the finalize section of the config.
func defaultParams(cfg *store.Config) finalizer.Params {
	return finalizer.Params{
		Metric:     types.Metric(cfg.Finalize.Metric),
		Multiplier: cfg.Finalize.Multiplier,
		Policy: types.CapitalPolicy{
			Capital:  cfg.Finalize.Capital,
			Strategy: types.Strategy(cfg.Finalize.Strategy),
		},
	}
}

// initializeEOD wraps the default EOD summarizer with observability
func initializeEOD() {
	eod.SetDefaultSummarizer(eodobs.Wrap(eod.NewSummarizer()))
}

// summarizeIfDue writes today's summary once the market has closed.
func summarizeIfDue(ctx context.Context) {
	if ok, _ := eod.ShouldRunNow(); !ok {
		return
	}
	if p, err := eod.SummarizeToday(); err == nil && p != "" {
		fmt.Println("Day summary written:", p)
	} else if err != nil {
		logger.Warn(ctx, "Day summary failed", "error", err)
	}
}

func (a *app) close() {
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(shutdownCtx)
	}
}
