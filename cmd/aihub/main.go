// Package main is the entry point for the aihub server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aihub/config"
	"aihub/internal/app"
	"aihub/internal/images"
	"aihub/internal/images/falai"
	"aihub/internal/images/openaiimage"
	"aihub/internal/logging"
	"aihub/internal/providers"
	"aihub/internal/providers/glm"
	"aihub/internal/providers/kimi"
	"aihub/internal/providers/ollama"
	"aihub/internal/providers/openai"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file (default: "+config.DefaultPath+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(cfg.Logging, os.Stderr))
	slog.Info("starting aihub", "port", cfg.Server.Port)

	factory := providers.NewFactory()
	factory.Add(openai.Registration)
	factory.Add(glm.Registration)
	factory.Add(kimi.Registration)
	factory.Add(ollama.Registration)

	imageFactory := images.NewFactory(providers.Options{})
	imageFactory.Add(openaiimage.Registration)
	imageFactory.Add(falai.Registration)

	application, err := app.New(context.Background(), app.Config{
		AppConfig:    cfg,
		Factory:      factory,
		ImageFactory: imageFactory,
	})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server error", "error", err)
		_ = application.Shutdown(context.Background())
		os.Exit(1)
	}
}
