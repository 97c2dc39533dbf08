package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowingduskpro/shuangxiangapp/internal/auth"
	"github.com/flowingduskpro/shuangxiangapp/internal/config"
	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/handler"
	"github.com/flowingduskpro/shuangxiangapp/internal/hub"
	"github.com/flowingduskpro/shuangxiangapp/internal/repository"
	"github.com/flowingduskpro/shuangxiangapp/internal/service"
	"github.com/flowingduskpro/shuangxiangapp/internal/store"
	"github.com/flowingduskpro/shuangxiangapp/pkg/database"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()

	l.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting classroom gateway")

	// Durable storage
	var eventLog repository.EventLog
	var sessions repository.ClassSessionRepository
	if cfg.Database.Driver == "memory" {
		eventLog = repository.NewMemoryEventLog()
		sessions = repository.NewMemoryClassSessionRepository()
		l.Warn().Msg("using in-memory event log; events do not survive restarts")
	} else {
		db, err := database.New(&cfg.Database)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := database.AutoMigrate(db, &domain.EventModel{}, &domain.ClassSessionModel{}); err != nil {
			l.Fatal().Err(err).Msg("failed to migrate database")
		}
		eventLog = repository.NewGormEventLog(db)
		sessions = repository.NewGormClassSessionRepository(db)
		l.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")
	}

	// Counter store
	var counters store.CounterStore
	if cfg.Store.Driver == "memory" {
		counters = store.NewMemoryCounterStore()
	} else {
		counters, err = store.NewRedisCounterStore(store.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to redis")
		}
		l.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
	}
	defer counters.Close()

	// Hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Protocol engine + reconciler
	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	gatewaySvc := service.NewGatewayService(wsHub, verifier, eventLog, sessions, counters, cfg.Store.OpTimeout)
	reconciler := service.NewReconciler(wsHub, eventLog, counters, cfg.Store.OpTimeout)

	// HTTP + WS routes
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(log.GinMiddleware(l))

	handler.NewHTTPHandler(sessions, reconciler).RegisterRoutes(engine)
	handler.NewWSHandler(wsHub, gatewaySvc, cfg.WebSocket).RegisterRoutes(engine)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down gateway")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("gateway stopped")
}
