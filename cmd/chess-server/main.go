package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/builder"
	appcfg "github.com/park285/Cheese-PvP-server/internal/config"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := builder.New(ctx, cfg)
	if err != nil {
		logger.Fatal("init_failed", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close_failed", zap.Error(err))
		}
	}()

	api := &fasthttp.Server{
		Handler:            deps.API.Handler(),
		Name:               "chess-server",
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	ws := &http.Server{
		Addr:              cfg.WSAddr,
		Handler:           deps.Feed.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		errCh <- api.ListenAndServe(cfg.HTTPAddr)
	}()
	go func() {
		logger.Info("ws_listen", zap.String("addr", cfg.WSAddr))
		if err := ws.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		logger.Error("server_failed", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.ShutdownWithContext(sctx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	if err := ws.Shutdown(sctx); err != nil {
		logger.Warn("ws_shutdown", zap.Error(err))
	}
}
