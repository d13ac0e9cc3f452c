package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carfinder/internal/config"
	"carfinder/internal/handler"
	"carfinder/internal/ingest"
	"carfinder/internal/loaders"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("Carfinder RAG Search")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	clients, err := loaders.Load(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize clients: %v", err)
	}
	defer clients.Close()

	// Initialize services
	searchService := loaders.NewSearchService(cfg, clients)
	var ingestService *ingest.Service
	if clients.Embedder != nil {
		ingestService, err = loaders.NewIngestService(cfg, clients)
		if err != nil {
			log.Fatalf("Failed to initialize ingest: %v", err)
		}
	}

	log.Println("✅ Services initialized")

	checks := map[string]handler.PingFunc{"index": clients.Backend.Ping}
	if clients.Postgres != nil {
		checks["postgres"] = clients.Postgres.Ping
	}
	if clients.Cache != nil {
		checks["redis"] = clients.Cache.Ping
	}

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	handler.RegisterRoutes(router, handler.Handlers{
		Search:   handler.NewSearchHandler(searchService),
		Feedback: handler.NewFeedbackHandler(searchService),
		Cars:     handler.NewCarBatchHandler(ingestService),
		Health: handler.NewHealthHandler(handler.BuildInfo{
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
		}, checks),
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 RAG endpoint: http://localhost:%d/rag/search", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}
