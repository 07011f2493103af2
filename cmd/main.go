package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yungbote/pulseloop-backend/internal/app"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Loading configuration...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Fatal("config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
	log.Info("server stopped")
}
