package main

import (
	"log"
	"time"

	"echolink/config"
	"echolink/internal/domain/call"
	"echolink/internal/domain/user"
	"echolink/internal/handler"
	"echolink/internal/redis"
	"echolink/internal/repository"
	"echolink/internal/server"
	"echolink/internal/services"
	"echolink/internal/signaling"
	"echolink/pkg/database"
	"echolink/pkg/logger"
	"echolink/pkg/metrics"
)

func main() {
	cfg := config.LoadConfig()

	var l *logger.Logger
	if cfg.AppMode == server.ReleaseMode {
		l = logger.New(logger.ProductionMode)
	} else {
		l = logger.New(logger.DevelopmentMode)
	}
	logger.SetGlobalLogger(l)

	// Connect to Database
	database.Connect(cfg)

	// Extensions and enum types first, tables second, indexes last
	if err := database.ApplyRawMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}
	if err := database.DB.AutoMigrate(
		&user.User{},
		&call.Call{},
		&call.CallParticipant{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}
	if err := database.ApplyRawMigrations("migrations/post"); err != nil {
		log.Fatalf("Failed to apply index migrations: %v", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	presence := redis.NewPresenceStore(redisClient, time.Duration(cfg.PresenceTTLSec)*time.Second)
	limiter := redis.NewRateLimiter(redisClient, redis.DefaultRateLimitConfig())

	m := metrics.New()

	callRepo := repository.NewCallRepository(database.DB)
	userRepo := repository.NewUserRepository(database.DB)

	authService := services.NewAuthService(cfg.JWTSecret)
	callService := services.NewCallService(callRepo, userRepo, m)

	rooms := signaling.NewRoomTracker()
	registry := signaling.NewConnectionRegistry(rooms, l.Logger)
	router := signaling.NewRouter(registry, rooms, callService, m, l.Logger)
	callService.SetNotifier(router)

	ringTimeout := time.Duration(cfg.RingTimeoutSec) * time.Second
	worker := services.NewMissedCallWorker(callService, ringTimeout, l)
	worker.Start()
	defer worker.Stop()

	wsLogger := server.NewWebSocketLogger(l.Logger)
	wsHandler := server.NewWebSocketHandler(registry, router, authService, presence, userRepo, m, wsLogger)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Call:      handler.NewCallHandler(callService),
		Presence:  handler.NewPresenceHandler(presence),
		WebSocket: wsHandler,
	}, authService, limiter, m)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
