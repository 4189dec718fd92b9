package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"listing-fraud-detector/config"
	"listing-fraud-detector/policy"
	"listing-fraud-detector/services"
	"listing-fraud-detector/utils"
)

const (
	name    = "listing-fraud-detector"
	version = "v0.1.0"
)

var (
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	policyFlag = &cli.StringFlag{
		Name:  "policy",
		Usage: "Path to a YAML policy file overriding the built-in word lists and price table",
	}

	modelFlag = &cli.StringFlag{
		Name:  "model",
		Usage: "Path to a linear model artifact (optional, defaults to $MODEL_PATH)",
	}
)

// app carries what every command needs once Before has run.
type app struct {
	cfg         *config.Config
	logger      *utils.Logger
	extractor   *services.Extractor
	classifier  services.ScoreClassifier
	modelLoaded bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	cmd := &cli.Command{
		Name:    name,
		Version: version,
		Usage:   "Scores marketplace listings for fraud risk",
		Flags: []cli.Flag{
			debugFlag,
			policyFlag,
			modelFlag,
		},
		Commands: []*cli.Command{
			a.serveCmd(),
			a.scoreCmd(),
			a.exportCmd(),
			a.scrapeCmd(),
		},
		Before: a.setup,
		After: func(ctx context.Context, cmd *cli.Command) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	a.cfg = config.Load()

	level := a.cfg.LogLevel
	if cmd.Bool(debugFlag.Name) {
		level = "debug"
	}
	a.logger = utils.NewLogger(level)

	policyPath := a.cfg.PolicyPath
	if p := cmd.String(policyFlag.Name); p != "" {
		policyPath = p
	}
	pol, err := policy.Load(policyPath)
	if err != nil {
		return ctx, fmt.Errorf("loading policy: %w", err)
	}

	a.extractor, err = services.NewExtractor(pol)
	if err != nil {
		return ctx, err
	}

	modelPath := a.cfg.ModelPath
	if p := cmd.String(modelFlag.Name); p != "" {
		modelPath = p
	}
	a.classifier, a.modelLoaded, err = loadClassifier(a.cfg, modelPath, a.logger)
	if err != nil {
		return ctx, err
	}
	return ctx, nil
}

// loadClassifier prefers a model artifact on disk. A missing artifact falls
// back to the seeded mock; a present but broken one is an error.
func loadClassifier(cfg *config.Config, path string, logger *utils.Logger) (services.ScoreClassifier, bool, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			m, err := services.LoadLinearModel(path)
			if err != nil {
				return nil, false, err
			}
			logger.Info("Loaded model %s from %s", m.Version(), path)
			return m, true, nil
		}
	}

	logger.Warn("No model artifact at %q, using mock classifier (seed %d)", path, cfg.MockSeed)
	return services.NewMockClassifier(cfg.MockSeed, cfg.ModelVersion), false, nil
}
