package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"careconnect-server/internal/config"
	"careconnect-server/internal/jobs"
	"careconnect-server/internal/logging"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
	"careconnect-server/internal/routes"
	"careconnect-server/internal/session"
	"careconnect-server/internal/storage"
)

func main() {
	// Load environment variables; a missing .env just means the real
	// environment is used.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	log := logging.New(cfg.Environment)

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.WithError(err).Fatal("error connecting to database")
	}

	// Session activity state: redis when configured, in-memory otherwise.
	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		redisClient, err := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password)
		if err != nil {
			log.WithError(err).Fatal("error connecting to redis")
		}
		sessionStore = session.NewRedisStore(redisClient)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis session store")
	}
	sessions := session.NewManager(sessionStore, session.SystemClock{},
		time.Duration(cfg.SessionIdleTimeoutMinutes)*time.Minute)

	hub := realtime.NewHub(log, realtime.NewStoreSnapshots(db))
	blobs := storage.NewBlobStore(db, log, cfg.UploadMaxBytes, cfg.UploadRetryAttempts, 500*time.Millisecond)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, hub, sessions, blobs, log)

	scheduler := jobs.NewScheduler(db, hub, log)
	if err := scheduler.Start(cfg.LowStockCronSpec, cfg.TokenPurgeCronSpec); err != nil {
		log.WithError(err).Fatal("error starting cron scheduler")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
}
