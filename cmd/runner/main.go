package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/flunq-io/restinvoke/internal/app"
	"github.com/flunq-io/restinvoke/internal/config"
	"github.com/flunq-io/restinvoke/internal/definition"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a config file")
	definitionPath := flag.String("definition", "", "path to a process definition (overrides definition.path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *definitionPath != "" {
		cfg.Definition = *definitionPath
	}

	// Initialize logger
	zapLogger, err := app.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting REST invoke runner",
		zap.String("version", "1.0.0"),
		zap.String("definition", cfg.Definition),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("events", cfg.Events.Enabled),
		zap.String("mapping_split", cfg.SplitMode().String()))

	if cfg.Definition == "" {
		zapLogger.Error("No process definition given, set -definition or RESTINVOKE_DEFINITION_PATH")
		return 2
	}

	def, err := definition.Load(cfg.Definition)
	if err != nil {
		zapLogger.Error("Failed to load process definition", zap.Error(err))
		return 2
	}

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Error("Failed to initialize", zap.Error(err))
		return 1
	}
	defer application.Close()

	result, err := application.Runner.Run(ctx, def)
	if err != nil {
		zapLogger.Error("Process run aborted", zap.Error(err))
		return 1
	}
	if !result.Success {
		return 1
	}
	return 0
}
