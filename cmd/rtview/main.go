// Package main is the entry point for the interactive ray tracing viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/config"
	"github.com/Faultbox/rtview/internal/engine/backend"
	_ "github.com/Faultbox/rtview/internal/engine/backend/cpu"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== rtview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Scene.Path == "" {
		fmt.Fprintln(os.Stderr, "Usage: rtview [flags] <scene.obj>")
		os.Exit(1)
	}

	v, err := viewer.New(cfg)
	backend.Check("init", err)
	defer func() {
		if err := v.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	if err := v.Load(cfg.Scene.Path); err != nil {
		logger.Error("failed to load scene", zap.String("path", cfg.Scene.Path), zap.Error(err))
		return
	}

	backend.Check("render", v.Run())

	logger.Info("viewer closed normally")
}
