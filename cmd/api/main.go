package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"habitquest/api/internal/app"
	"habitquest/api/internal/cache"
	"habitquest/api/internal/config"
	"habitquest/api/internal/game"
	"habitquest/api/internal/sheets"
)

func main() {
	// Local dev convenience; hosted targets inject env directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: .env load failed: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	opener := sheets.NewGoogleOpener()

	var sheetCache cache.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the sheet read cache")
		redisCache, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisCache.Close()
		sheetCache = redisCache
	} else {
		sheetCache = cache.NewMemory(cfg.CacheTTL)
	}

	var service *app.Service
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := game.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := game.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}

		service = app.NewWithGame(cfg, opener, sheetCache, game.NewPostgresStore(db))
	} else {
		log.Printf("DATABASE_URL not set; game endpoints disabled")
		service = app.New(cfg, opener, sheetCache)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("HabitQuest API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
