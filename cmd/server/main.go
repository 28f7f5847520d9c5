package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/bus"
	"duakasir/backend/internal/config"
	"duakasir/backend/internal/httpapi"
	"duakasir/backend/internal/service"
	"duakasir/backend/internal/store/gateway"
	"duakasir/backend/internal/store/memory"
	pgstore "duakasir/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if len(cfg.AuthSecret) < 32 {
		log.Fatal("AUTH_SECRET must be set and at least 32 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events := bus.New(log)
	closers := make([]func() error, 0, 4)

	local := memory.New()
	var repo *gateway.Gateway
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("postgres unavailable and DATABASE_URL is set")
		}
		repo = gateway.New(pg, local, events, log)
		closers = append(closers, pg.Close)
		log.Info("repository: postgres with local fallback")
	} else {
		// Standalone mode: the local store serves both roles.
		repo = gateway.New(local, local, events, log)
		log.Info("repository: in-memory")
	}

	var relay *bus.Relay
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, event relay disabled")
			_ = rdb.Close()
		} else {
			relay = bus.NewRelay(rdb, events, cfg.EventChannel, log)
			closers = append(closers, rdb.Close)
			log.Info("event relay: redis")
		}
	}

	svc := service.New(repo, log)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	if err := auth.Bootstrap(ctx, cfg.AdminPassword); err != nil {
		log.WithError(err).Warn("admin bootstrap failed")
	}
	api := httpapi.New(svc, auth, repo, events, log)

	var peer *bus.Peer
	if cfg.PeerURL != "" {
		peer = bus.NewPeer(bus.PeerConfig{URL: cfg.PeerURL, Token: cfg.PeerToken}, events, log)
		peer.Connect(context.Background())
		log.WithField("peer", cfg.PeerURL).Info("peer link starting")
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Address()).Info("ledger backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}
	if peer != nil {
		peer.Close()
	}
	relay.Close()
	events.Close()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close error")
		}
	}
	log.Info("server stopped")
}
