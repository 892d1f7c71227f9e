package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-backend/internal/app"
	"quiz-backend/internal/config"
	"quiz-backend/internal/db"
	"quiz-backend/internal/router"
)

func main() {
	log.Println("🚀 Starting quiz-backend...")

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db.InitDB()

	// Wire services
	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer container.Cleanup()

	// HTTP surface
	r := router.SetupRouter(container)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("✅ quiz-backend listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}
