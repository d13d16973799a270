package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ammar1510/spark/internal/api"
	"github.com/ammar1510/spark/internal/auth"
	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/config"
	"github.com/ammar1510/spark/internal/database"
	"github.com/ammar1510/spark/internal/logger"
	"github.com/ammar1510/spark/internal/matching"
	"github.com/ammar1510/spark/internal/ratelimit"
	"github.com/ammar1510/spark/internal/suggest"
	"github.com/ammar1510/spark/internal/websocket"
)

var log = logger.New("server")

func main() {
	if err := run(); err != nil {
		log.Error("%v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	writers := []io.Writer{os.Stdout}
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		defer logFile.Close()
		writers = append(writers, logFile)
	}
	if err := logger.Init(cfg.LogLevel, writers...); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	auth.InitJWTKey([]byte(cfg.JWTSecret))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, database.DatabaseType(cfg.DBType), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Connected to %s database successfully", cfg.DBType)

	limiter, closeLimiter, err := ratelimit.New(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	defer closeLimiter()
	log.Info("Message rate limit: %d/min (%s)", cfg.RateLimit.PerMinute, cfg.RateLimit.Backend)

	sockets := websocket.NewManager(cfg.AllowedOrigins...)
	gate := chat.NewGate(db, chat.WithLimiter(limiter), chat.WithNotifier(sockets))
	sockets.SetChat(gate)
	go sockets.Run(ctx)

	matches := matching.NewService(db,
		matching.WithInterestWindow(cfg.InterestWindow),
		matching.WithNotifier(sockets),
	)

	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger.New("http")))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowAllOrigins:  cfg.AllowsAnyOrigin(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: !cfg.AllowsAnyOrigin(),
		MaxAge:           12 * time.Hour,
	}))

	api.RegisterRoutes(router, api.Deps{
		DB:       db,
		Gate:     gate,
		Matches:  matches,
		Suggests: suggest.NewFromConfig(cfg.Suggest),
		Sockets:  sockets,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	// Give the server 5 seconds to finish processing remaining requests
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("Server exited properly")
	return nil
}
