// cmd/refinery/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/refinery-project/refinery/pkg/artifact"
	"github.com/refinery-project/refinery/pkg/config"
	"github.com/refinery-project/refinery/pkg/pipeline"
)

func main() {
	inputPath := flag.String("input", "", "path to the input dataset (csv, tsv, arrow, feather)")
	outputPath := flag.String("output", "", "path to write the refined dataset (optional)")
	configPath := flag.String("config", "", "path to the pipeline config file (optional)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: refinery -input <path> [-output <path>] [-config <path>]")
		os.Exit(2)
	}

	// Optional .env file for local development
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	cfg.ApplyEnvOverrides()
	if *verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize artifact store", zap.Error(err))
	}
	defer store.Close()

	orch, err := pipeline.New(&cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to assemble pipeline", zap.Error(err))
	}

	result := orch.Run(ctx, *inputPath, *outputPath)
	if result.Metrics != nil {
		fmt.Print(result.Metrics.Report())
	}

	switch result.Status {
	case pipeline.StatusSuccess:
		os.Exit(0)
	case pipeline.StatusPartialFailure:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}

// loadConfig reads the config file when given, falling back to defaults
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildLogger constructs the zap logger from config
func buildLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// buildStore selects the artifact backend from config
func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (artifact.Store, error) {
	switch cfg.Artifacts.Backend {
	case "postgres":
		return artifact.NewPostgresStore(ctx, cfg.Artifacts.PostgresDSN, logger)
	default:
		return artifact.NewFSStore(cfg.Artifacts.Dir, logger)
	}
}
