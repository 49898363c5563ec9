package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nerts-lite/apps/bot/internal/auth"
	"nerts-lite/apps/bot/internal/bot"
	"nerts-lite/apps/bot/internal/config"
	"nerts-lite/apps/bot/internal/gateway"
	"nerts-lite/apps/bot/internal/ledger"
	"nerts-lite/apps/bot/internal/transport"
)

func main() {
	// hash-password prints the value for SPECTATOR_PASSWORD_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			log.Fatalf("[Bot] %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Bot] Invalid configuration: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("[Bot] Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("bot stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerService, ledgerMode, err := ledger.NewService(cfg.Ledger, logger)
	if err != nil {
		return err
	}
	defer ledgerService.Close()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	relay, err := transport.DialRelay(dialCtx, cfg.RelayURL, logger)
	cancel()
	if err != nil {
		return err
	}
	defer relay.Close()

	b := bot.New(bot.Options{
		SelfID:           cfg.SelfID,
		ServerID:         cfg.ServerID,
		Seed:             cfg.Seed,
		SendInterval:     cfg.SendInterval,
		WaitTimeout:      cfg.WaitTimeout,
		IdleTimeout:      cfg.IdleTimeout,
		BoardLogInterval: cfg.BoardLogInterval,
		FailFast:         cfg.FailFast,
	}, relay, nil, ledgerService, logger)

	logger.Info("bot configured",
		zap.String("relay", cfg.RelayURL),
		zap.String("ledger_mode", ledgerMode),
		zap.Bool("fail_fast", cfg.FailFast))

	var srv *http.Server
	if cfg.SpectatorAddr != "" {
		gate, err := auth.NewPasswordGate(cfg.SpectatorPasswordHash, 0)
		if err != nil {
			return err
		}
		gw := gateway.New(b, logger)
		defer gw.Close()
		b.SetPublisher(gw)

		srv = &http.Server{
			Addr:              cfg.SpectatorAddr,
			Handler:           gw.Routes(auth.NewHTTPHandler(gate), ledgerService),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("spectator gateway listening",
				zap.String("addr", cfg.SpectatorAddr),
				zap.Bool("password", gate.Enabled()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("spectator gateway failed", zap.Error(err))
			}
		}()
	}

	runErr := b.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("spectator gateway shutdown", zap.Error(err))
		}
	}
	logger.Info("bot exiting", zap.String("session", b.SessionID()))
	return runErr
}
