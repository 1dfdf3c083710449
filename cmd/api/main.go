package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nyashahama/counselling-portal-backend/internal/ai"
	"github.com/nyashahama/counselling-portal-backend/internal/api"
	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
	"github.com/nyashahama/counselling-portal-backend/internal/auth"
	"github.com/nyashahama/counselling-portal-backend/internal/config"
	"github.com/nyashahama/counselling-portal-backend/internal/content"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/email"
	"github.com/nyashahama/counselling-portal-backend/internal/realtime"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
	"github.com/nyashahama/counselling-portal-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, queries)

	// Root context cancelled by OS signal. Worker, broker and request contexts
	// all derive from it, so open chat streams end on shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Realtime ──────────────────────────────────────────────────────────────
	// Chat fan-out goes through LISTEN/NOTIFY so every instance sees every
	// message.
	broker, err := realtime.NewPGBroker(cfg.DatabaseURL, queries, logger)
	if err != nil {
		return fmt.Errorf("realtime: %w", err)
	}

	// ── Content ───────────────────────────────────────────────────────────────
	library, err := content.Load()
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}

	// ── AI ────────────────────────────────────────────────────────────────────
	// Anthropic is primary, DeepSeek the fallback. With neither key the worker
	// writes the rule-based briefing.
	var briefer ai.Briefer
	switch {
	case cfg.AnthropicAPIKey != "" && cfg.DeepSeekAPIKey != "":
		primary := ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		secondary := ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
		briefer = ai.NewFallbackBriefer(primary, secondary, logger)
		logger.Info("ai: using Anthropic with DeepSeek fallback")
	case cfg.AnthropicAPIKey != "":
		briefer = ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		logger.Info("ai: using Anthropic only")
	case cfg.DeepSeekAPIKey != "":
		briefer = ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
		logger.Info("ai: using DeepSeek only")
	default:
		briefer = ai.StaticBriefer{}
		logger.Warn("ai: no provider key set, briefings are rule-based")
	}

	// ── Email ─────────────────────────────────────────────────────────────────
	var mailer email.Sender
	if cfg.ResendAPIKey != "" {
		mailer = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName, cfg.BaseURL)
	} else {
		mailer = email.NewLogSender(logger)
		logger.Warn("email: RESEND_API_KEY not set, emails are logged only")
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	bank := assessment.DefaultBank()
	job := worker.NewJob(queries, st, bank, briefer, mailer, logger)
	runner := worker.NewRunner(job, st, queries, worker.RunnerConfig{
		Workers:      cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		MaxRetries:   cfg.MaxRetries,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(api.Deps{
		Querier: queries,
		Store:   st,
		Broker:  broker,
		Worker:  runner,
		Mailer:  mailer,
		Issuer:  auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Bank:    bank,
		Content: library,
	}, api.Config{
		Env:           cfg.Env,
		AllowedOrigin: cfg.BaseURL,
		VideoBaseURL:  cfg.VideoBaseURL,
		SupportEmail:  cfg.SupportEmail,
	}, logger)

	// WriteTimeout is lifted per-connection by the chat stream.
	srv := &http.Server{
		Handler:      handler,
		BaseContext:  func(net.Listener) context.Context { return ctx },
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── gRPC health ───────────────────────────────────────────────────────────
	// Orchestrators probe grpc.health.v1 on the same port as the API.
	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	// ── Listener ──────────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)
	grpcL := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := mux.Match(cmux.HTTP1Fast())

	// ── Run ───────────────────────────────────────────────────────────────────
	go broker.Run(ctx)
	go runner.Start(ctx)

	serverErr := make(chan error, 3)
	go func() {
		if err := grpcSrv.Serve(grpcL); err != nil && !isClosed(err) && !errors.Is(err, grpc.ErrServerStopped) {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		if err := srv.Serve(httpL); err != nil && !isClosed(err) && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("server listening", "addr", lis.Addr().String())
		if err := mux.Serve(); err != nil && !isClosed(err) {
			serverErr <- fmt.Errorf("cmux: %w", err)
		}
	}()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Block until either a signal arrives or a server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	grpcSrv.GracefulStop()
	mux.Close()

	logger.Info("shutdown complete")
	return nil
}

// isClosed reports whether err only means a listener was shut down.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, cmux.ErrServerClosed)
}

// openDB opens the connection pool and prepares every statement. Using
// db.Prepare means a schema mismatch stops the server at startup instead of
// failing on the first request.
func openDB(dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	queries, err := db.Prepare(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("prepare statements: %w", err)
	}

	return pool, queries, nil
}
