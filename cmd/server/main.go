package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denisislamov/wattstap-referral-service/internal/config"
	"github.com/denisislamov/wattstap-referral-service/internal/database"
	"github.com/denisislamov/wattstap-referral-service/internal/notify"
	"github.com/denisislamov/wattstap-referral-service/internal/server"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	// The service runs without redis, dropping rate limiting and
	// notification dedup.
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Printf("Could not connect to redis, continuing without it: %v", err)
		rdb = nil
	}

	var notifier *notify.Notifier
	if cfg.BotToken != "" {
		notifier, err = notify.New(cfg.BotToken, rdb)
		if err != nil {
			log.Printf("Telegram notifications disabled: %v", err)
		}
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, referrer notifications disabled")
	}

	srv := server.New(cfg, db, rdb, notifier)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
