package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pingline/pingline-api/internal/config"
	"github.com/pingline/pingline-api/internal/domain/auth"
	"github.com/pingline/pingline-api/internal/domain/friend"
	"github.com/pingline/pingline-api/internal/domain/message"
	"github.com/pingline/pingline-api/internal/domain/user"
	"github.com/pingline/pingline-api/internal/middleware"
	"github.com/pingline/pingline-api/internal/pkg/database"
	"github.com/pingline/pingline-api/internal/pkg/imaging"
	"github.com/pingline/pingline-api/internal/pkg/jwt"
	"github.com/pingline/pingline-api/internal/pkg/response"
	"github.com/pingline/pingline-api/internal/pkg/storage"
	"github.com/pingline/pingline-api/internal/pkg/upload"
	"github.com/pingline/pingline-api/internal/realtime"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("Starting server")

	// Postgres
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

	// Redis (optional: rate limiting and refresh token store degrade gracefully)
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without it")
		redisClient = nil
	}
	if redisClient != nil {
		defer database.CloseRedis(redisClient)
	}

	// Object storage
	var store storage.Storage
	if cfg.UseS3() {
		store, err = storage.NewS3Storage(storage.Config{
			S3Endpoint:  cfg.S3Endpoint,
			S3Region:    cfg.S3Region,
			S3AccessKey: cfg.S3AccessKey,
			S3SecretKey: cfg.S3SecretKey,
			S3Bucket:    cfg.S3Bucket,
			PublicURL:   cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
	} else {
		store, err = storage.NewLocalStorage(cfg.LocalStoragePath, cfg.LocalStorageURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize local storage")
		}
		log.Info().Str("path", cfg.LocalStoragePath).Msg("Using local file storage")
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	uploader := upload.NewImageUploader(store, imaging.NewProcessor(imaging.DefaultConfig()))

	// Realtime hub
	hub := realtime.NewHub()
	go hub.Run()

	// Repositories
	userRepo := user.NewRepository(db)
	friendRepo := friend.NewRepository(db)
	messageRepo := message.NewRepository(db)

	// Services
	authService := auth.NewService(userRepo, jwtService, redisClient, uploader)
	friendService := friend.NewService(friendRepo, userRepo, hub)
	messageService := message.NewService(
		messageRepo,
		userRepo,
		friendService,
		uploader,
		message.NewRateLimiter(redisClient),
		hub,
	)

	// Handlers
	authHandler := auth.NewHandler(authService, cfg.JWTAccessTTL, cfg.IsProduction())
	friendHandler := friend.NewHandler(friendService)
	messageHandler := message.NewHandler(messageService, jwtService, userRepo, hub, cfg.AllowedOrigins)

	authMW := middleware.Auth(jwtService)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	if cfg.IsDevelopment() {
		r.Handle("/debug/vars", expvar.Handler())
	}
	if !cfg.UseS3() {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalStoragePath))))
	}

	r.Route("/api/v1", func(api chi.Router) {
		auth.RegisterRoutes(api, authHandler, authMW)
		friend.RegisterRoutes(api, friendHandler, authMW)
		message.RegisterRoutes(api, messageHandler, authMW)
	})

	message.RegisterWS(r, messageHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Shutdown()

	log.Info().Msg("Server stopped")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
