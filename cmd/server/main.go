package main

import (
	"context"
	"log/slog"
	"os"

	"workhub/internal/config"
	"workhub/internal/logging"
	"workhub/internal/server"
)

// @title           Workhub API
// @version         1.0
// @description     Workspaces, projects, backlogs, sprints and activities with membership workflows.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	s, err := server.Init(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("server initialization failed", "error", err)
		os.Exit(1)
	}

	if err := s.Run(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
