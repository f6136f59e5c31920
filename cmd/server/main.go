package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coderoom/internal/cache"
	"coderoom/internal/config"
	"coderoom/internal/repository"
	"coderoom/internal/service"
	"coderoom/internal/transport/rest"
	"coderoom/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title Coderoom Session API
// @version 1.0
// @description Room bootstrap and live session coordination for collaborative code rooms
// @BasePath /v1
func main() {
	cfg := config.Load()
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Str("module", "server").Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Str("module", "server").Str("driver", cfg.StoreDriver).Err(err).Msg("failed to open store")
	}
	defer store.Close()

	// Redis profile cache (optional)
	var profileCache cache.UserCache
	if cfg.RedisURI != "" {
		rdb, err := openRedis(ctx, cfg.RedisURI)
		if err != nil {
			log.Warn().Str("module", "server").Err(err).Msg("redis unavailable, profile cache disabled")
		} else {
			defer rdb.Close()
			profileCache = cache.NewUserCache(rdb, cfg.ProfileCacheTTL)
			log.Info().Str("module", "server").Msg("connected to Redis")
		}
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	defer wsHub.Close()

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	identitySvc := service.NewIdentityService(store.Users(), profileCache, cfg.UpstreamTimeout)
	roomSvc := service.NewRoomService(store.Rooms(), identitySvc, cfg.UpstreamTimeout)
	coordinator := service.NewCoordinator(
		store.Rooms(),
		store.Files(),
		identitySvc,
		service.NewPresenceTable(),
		service.NewChatBuffer(cfg.ChatHistoryLimit),
		cfg.UpstreamTimeout,
	)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	coordinator.SetBroadcaster(wsHub)

	wsHandler := ws.NewHandler(wsHub, authSvc, identitySvc, coordinator, ws.Options{
		MaxMessageBytes: cfg.MaxMessageBytes,
		SendBuffer:      cfg.SendBuffer,
		CheckOrigin:     rest.OriginChecker(cfg.AllowedOrigins),
	})

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		RoomService:    roomSvc,
		Coordinator:    coordinator,
		WSHandler:      wsHandler,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("module", "server").Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Str("module", "server").Err(err).Msg("listen failed")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Str("module", "server").Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Str("module", "server").Err(err).Msg("server forced to shutdown")
	}

	log.Info().Str("module", "server").Msg("server exited")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := repository.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openRedis(ctx context.Context, uri string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(uri, "://") {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: uri}
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
