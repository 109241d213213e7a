// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/Shivanand-hulikatti/event-signup/internal/auth"
	"github.com/Shivanand-hulikatti/event-signup/internal/config"
	"github.com/Shivanand-hulikatti/event-signup/internal/handler"
	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"github.com/Shivanand-hulikatti/event-signup/internal/storage"
	"github.com/Shivanand-hulikatti/event-signup/internal/telemetry"
	"github.com/Shivanand-hulikatti/event-signup/internal/upload"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	// ── 1. Configuration and tracing ─────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	// ── 2. Connect to the store ──────────────────────────────────────────
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer stores.Close()

	// ── 3. Optional Redis for the token denylist and response cache ─────
	var (
		rdb      *redis.Client
		denylist auth.Denylist = auth.NewMemoryDenylist()
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		denylist = auth.NewRedisDenylist(rdb)
		log.Println("✓ Connected to Redis")
	}

	// ── 4. Wire up layers ────────────────────────────────────────────────
	engine := reservation.NewEngine(stores.Reservations, reservation.WithTimeout(cfg.TxTimeout))
	authSvc := service.NewAuthService(stores.Users, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), denylist, cfg.IsAdminEmail)
	images := upload.NewImages(cfg.ImageDir)
	eventSvc := service.NewEventService(stores.Events, engine, images)
	gameSvc := service.NewGameService(stores.Games)

	router := handler.NewRouter(handler.Deps{
		Events:        handler.NewEventHandler(eventSvc),
		Auth:          handler.NewAuthHandler(authSvc),
		Games:         handler.NewGameHandler(gameSvc),
		Authenticator: authSvc,
		Limiter:       handler.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute),
		Redis:         rdb,
		CacheTTL:      cfg.CacheTTL,
		ImageDir:      images.Dir(),
		WebDir:        cfg.WebDir,
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s (store=%s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
