package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"altarmaker/internal/auth"
	"altarmaker/internal/config"
	"altarmaker/internal/email"
	"altarmaker/internal/redisx"
	"altarmaker/internal/server"
	"altarmaker/internal/store"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	ctx := context.Background()

	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo error")
	}
	defer db.Close(ctx)

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis error")
	}
	defer redisClient.Close()

	api := server.NewServer(
		cfg,
		db.Users(),
		&auth.RedisSessionStore{Redis: redisClient},
		auth.NewBcryptHasher(),
		auth.NewTokenCodec(cfg.SecretKey),
		&auth.RedisRateLimiter{Redis: redisClient},
		email.NewSender(cfg.Email),
		db.Designs(),
		db.Feedback(),
		&auth.AuditLogger{Redis: redisClient, MaxLen: 1000},
		db,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
