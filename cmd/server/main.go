package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tblake/finboard/backend/internal/config"
	"github.com/tblake/finboard/backend/internal/errorreporting"
	"github.com/tblake/finboard/backend/internal/logger"
	"github.com/tblake/finboard/backend/internal/secrets"
	"github.com/tblake/finboard/backend/internal/server"
	"github.com/tblake/finboard/backend/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system env")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if problems := secrets.ValidateStartup(); len(problems) > 0 {
		for _, p := range problems {
			logger.Error("startup check failed", "problem", p)
		}
		os.Exit(1)
	}

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("sentry init failed", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init("finboard-backend")
	if err != nil {
		logger.Warn("tracing init failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := server.InitDB(ctx)
	if err != nil {
		logger.Error("database init failed", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(st)
	defer srv.Shutdown()

	srv.Start(ctx)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8000"
	}
	logger.Info("server listening", "addr", addr)

	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
	}

	if shutdownTracing != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}

	logger.Info("server stopped")
}
