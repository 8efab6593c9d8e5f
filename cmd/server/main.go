package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quizforge/quiz-generator-api/internal/config"
	"github.com/quizforge/quiz-generator-api/internal/db"
	"github.com/quizforge/quiz-generator-api/internal/generator"
	"github.com/quizforge/quiz-generator-api/internal/memstore"
	"github.com/quizforge/quiz-generator-api/internal/repository"
	"github.com/quizforge/quiz-generator-api/internal/router"
	"github.com/quizforge/quiz-generator-api/internal/services"
	"github.com/quizforge/quiz-generator-api/internal/storage"
	"github.com/quizforge/quiz-generator-api/internal/utils"
)

// sweepInterval is how often expired pools and sessions get reaped.
const sweepInterval = 10 * time.Minute

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabasePath, cfg.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize storage and generation client
	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", "error", err)
	}
	llmGenerator := generator.NewOpenRouterGenerator(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModel, logger)

	// In-memory working set
	pools := memstore.NewPoolStore(cfg.PoolTTL)
	sessions := memstore.NewSessionStore(cfg.SessionTTL)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep(sweepCtx, pools, sessions, logger)

	// Services
	runRepo := repository.NewRepository(database)
	quizService := services.NewQuizService(runRepo, s3Storage, llmGenerator, pools, logger)
	sessionService := services.NewSessionService(pools, sessions, logger)

	// Setup HTTP router
	handler := router.NewRouter(quizService, sessionService, logger)

	// The write timeout must outlive a full generation call, which can
	// block for up to a minute.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func sweep(ctx context.Context, pools *memstore.PoolStore, sessions *memstore.SessionStore, logger *utils.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removedPools := pools.Sweep()
			removedSessions := sessions.Sweep()
			if removedPools > 0 || removedSessions > 0 {
				logger.Info("Swept expired entries",
					"pools", removedPools,
					"sessions", removedSessions,
					"pools_left", pools.Len(),
					"sessions_left", sessions.Len())
			}
		}
	}
}
