package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/quizboard/internal/adapters/http/api"
	engine "github.com/okian/quizboard/internal/app"
	"github.com/okian/quizboard/internal/config"
	"github.com/okian/quizboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics;
	// the service registers its own on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	eng := engine.New(
		engine.WithLogger(log),
		engine.WithSessionTTL(time.Duration(cfg.SessionTTLSeconds)*time.Second),
		engine.WithDefaultTopN(cfg.DefaultTopN),
		engine.WithOpTimeout(time.Duration(cfg.StoreOpTimeoutMS)*time.Millisecond),
		engine.WithRetry(cfg.RetryAttempts, time.Duration(cfg.RetryBackoffMS)*time.Millisecond),
		engine.WithDedupeSize(cfg.DedupeSize),
		engine.WithSubscriberBuffer(cfg.SubscriberBuffer),
		engine.WithDispatchShards(cfg.DispatchShards),
		engine.WithDispatchQueueSize(cfg.DispatchQueueSize),
		engine.WithJudgeLatencyRange(
			time.Duration(cfg.JudgeLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.JudgeLatencyMaxMS)*time.Millisecond,
		),
		engine.WithQuestionPoints(cfg.QuestionPoints, cfg.DefaultPoints),
		engine.WithWrongAnswerPenalty(cfg.WrongAnswerPenalty),
	)
	if err := eng.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start engine: " + err.Error() + "\n")
		return
	}
	defer eng.Stop()

	apiServer := api.NewServer(eng, eng, cfg.MaxLeaderboardLimit)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: apiServer.Router(),
		// No WriteTimeout: the SSE event stream is a long-lived response.
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
