package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/moviestream/backend/internal/config"
	"github.com/moviestream/backend/internal/database"
	"github.com/moviestream/backend/internal/handler"
	"github.com/moviestream/backend/internal/queue"
	"github.com/moviestream/backend/internal/repository"
	"github.com/moviestream/backend/internal/router"
	"github.com/moviestream/backend/internal/service"
	"github.com/moviestream/backend/internal/tasks"
	"github.com/moviestream/backend/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		cancel()
		logger.Fatal("schema migration failed", zap.Error(err))
	}
	cancel()

	// Redis is optional: the recent cache and the auth rate limit
	// degrade to pass-through when it is absent.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, caching and rate limiting disabled")
	}

	// Repositories.
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	movieRepo := repository.NewMovieRepo(db)
	likeRepo := repository.NewLikeRepo(db)
	directorRepo := repository.NewDirectorRepo(db)
	genreRepo := repository.NewGenreRepo(db)
	chatRepo := repository.NewChatRepo(db)

	// Services and the websocket layer. The registry doubles as the
	// chat fan-out sink.
	registry := ws.NewRegistry()
	catalogSvc := service.NewCatalogService(movieRepo, likeRepo)
	likeSvc := service.NewLikeService(movieRepo, userRepo, likeRepo)
	chatSvc := service.NewChatService(chatRepo, registry, cfg.ChatEchoSender)
	gateway := ws.NewGateway(registry, chatSvc, cfg.JWTSecret, logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Movies:    &handler.MovieHandler{Cfg: cfg, DB: db, Movies: movieRepo, Directors: directorRepo, Genres: genreRepo, Catalog: catalogSvc, Likes: likeSvc, Redis: rdb, Logger: logger},
		Directors: &handler.DirectorHandler{Directors: directorRepo},
		Genres:    &handler.GenreHandler{Genres: genreRepo},
		Users:     &handler.UserHandler{Cfg: cfg, Users: userRepo},
		Chat:      &handler.ChatHandler{Chat: chatSvc, Repo: chatRepo},
		Common:    &handler.CommonHandler{Cfg: cfg, Logger: logger},
		Gateway:   gateway,
	}, cfg.JWTSecret, rdb)

	// Background workers: thumbnail queue consumer plus the two
	// housekeeping loops.
	bg, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	go queue.StartThumbnailWorker(logger.Named("thumbnail"))
	go tasks.StartReactionRecompute(bg, movieRepo, time.Minute, logger.Named("housekeeping"))
	go tasks.StartTempSweep(bg, cfg.TempDir, time.Hour, logger.Named("housekeeping"))

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" || env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
