package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"listing-fraud-detector/api"
	"listing-fraud-detector/models"
	"listing-fraud-detector/scraper/marketplace"
	"listing-fraud-detector/services"
	"listing-fraud-detector/storage"
	"listing-fraud-detector/utils"
)

var (
	inputFlag = &cli.StringFlag{
		Name:     "input",
		Aliases:  []string{"i"},
		Usage:    "Path to a listing dataset CSV",
		Required: true,
	}

	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Path of the CSV to write",
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Feature extraction workers (optional, defaults to $BATCH_WORKERS)",
	}

	textFeaturesFlag = &cli.IntFlag{
		Name:  "text-features",
		Usage: "TF-IDF columns per text field appended to the matrix (0 disables)",
		Value: 0,
	}

	urlsFileFlag = &cli.StringFlag{
		Name:  "urls",
		Usage: "File with one product URL per line",
	}

	scoreScrapedFlag = &cli.BoolFlag{
		Name:  "score",
		Usage: "Scores the collected listings and prints a risk report",
	}
)

func (a *app) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Runs the inference API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			gin.SetMode(a.cfg.GinMode)

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			scorer, closeCache := a.newScorer(ctx, a.cfg.BatchWorkers)
			defer closeCache()

			srv := api.NewServer(api.Options{
				Scorer:      scorer,
				Store:       store,
				ModelLoaded: a.modelLoaded,
				RPS:         a.cfg.APIRPS,
				Burst:       a.cfg.APIBurst,
				Logger:      a.logger,
			})
			return srv.Run(ctx, ":"+a.cfg.Port)
		},
	}
}

func (a *app) scoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Scores a listing dataset and prints a risk report",
		Flags: []cli.Flag{
			inputFlag,
			outputFlag,
			workersFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw, err := storage.ReadDataset(cmd.String(inputFlag.Name))
			if err != nil {
				return err
			}
			a.logger.Info("Read %d rows from %s", len(raw), cmd.String(inputFlag.Name))

			workers := int(cmd.Int(workersFlag.Name))
			if workers == 0 {
				workers = a.cfg.BatchWorkers
			}
			scorer, closeCache := a.newScorer(ctx, workers)
			defer closeCache()

			return a.scoreAndReport(ctx, scorer, raw, cmd.String(outputFlag.Name))
		},
	}
}

func (a *app) exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Writes the feature matrix of a labelled dataset for training",
		Flags: []cli.Flag{
			inputFlag,
			outputFlag,
			workersFlag,
			textFeaturesFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.String(outputFlag.Name)
			if out == "" {
				return errors.New("export requires --output")
			}

			raw, err := storage.ReadDataset(cmd.String(inputFlag.Name))
			if err != nil {
				return err
			}
			labeled := services.NewCleaner(a.logger).Clean(raw)
			if len(labeled) == 0 {
				return errors.New("no valid listings in dataset")
			}

			listings, labels := split(labeled)
			workers := int(cmd.Int(workersFlag.Name))
			if workers == 0 {
				workers = a.cfg.BatchWorkers
			}
			vectors, err := a.extractor.ExtractBatch(listings, workers)
			if err != nil {
				return err
			}

			columns := append([]string{}, services.FeatureNames...)
			matrix := services.Matrix(vectors)

			if n := int(cmd.Int(textFeaturesFlag.Name)); n > 0 {
				columns, matrix, err = appendTextFeatures(columns, matrix, listings, n)
				if err != nil {
					return err
				}
			}

			w, err := storage.NewMatrixWriter(out, columns)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.WriteRows(matrix, labels); err != nil {
				return err
			}
			a.logger.Info("Wrote %d rows x %d columns to %s", len(matrix), len(columns), out)
			return nil
		},
	}
}

func (a *app) scrapeCmd() *cli.Command {
	return &cli.Command{
		Name:      "scrape",
		Usage:     "Collects listings from product pages into a dataset CSV",
		ArgsUsage: "[url...]",
		Flags: []cli.Flag{
			urlsFileFlag,
			outputFlag,
			scoreScrapedFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			urls := cmd.Args().Slice()
			if path := cmd.String(urlsFileFlag.Name); path != "" {
				fromFile, err := marketplace.ReadURLFile(path)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return errors.New("scrape needs URLs as arguments or via --urls")
			}

			raw, err := marketplace.New(a.cfg, a.logger).Collect(ctx, urls)
			if err != nil && len(raw) == 0 {
				return err
			}

			out := cmd.String(outputFlag.Name)
			if out == "" {
				out = a.cfg.CSVOutputPath
			}
			w, err := storage.NewCSVWriter(out)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.WriteRaw(raw); err != nil {
				return err
			}
			a.logger.Info("Raw listings saved to %s", out)

			if !cmd.Bool(scoreScrapedFlag.Name) {
				return nil
			}
			scorer, closeCache := a.newScorer(ctx, a.cfg.BatchWorkers)
			defer closeCache()
			return a.scoreAndReport(ctx, scorer, raw, "")
		},
	}
}

// scoreAndReport cleans raw rows, scores them, persists the verdicts and
// prints the risk report.
func (a *app) scoreAndReport(ctx context.Context, scorer *services.Scorer, raw []*models.RawListing, output string) error {
	labeled := services.NewCleaner(a.logger).Clean(raw)
	if len(labeled) == 0 {
		return errors.New("all listings were dropped during cleaning")
	}

	listings, labels := split(labeled)
	scored, err := scorer.ScoreBatch(ctx, listings)
	if err != nil {
		return err
	}
	records := make([]*models.VerdictRecord, len(scored))
	for i, sl := range scored {
		sl.IsFake = labels[i]
		records[i] = sl.Record()
	}

	if output != "" {
		w, err := storage.NewVerdictCSVWriter(output)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Write(records); err != nil {
			return err
		}
		a.logger.Info("Verdicts saved to %s", output)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		if err := store.Write(records); err != nil {
			a.logger.Error("Verdict store write failed: %v", err)
		}
	}

	insights := services.NewInsightService(a.logger, os.Stdout)
	insights.Print(insights.Generate(scored))
	return nil
}

// newScorer builds a Scorer, adding the Redis cache when one is configured
// and reachable. The returned func releases the cache.
func (a *app) newScorer(ctx context.Context, workers int) (*services.Scorer, func()) {
	opts := []services.ScorerOption{services.WithWorkers(workers)}
	closeCache := func() {}

	if a.cfg.RedisAddr != "" {
		cache, err := storage.NewRedisCache(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword,
			a.cfg.RedisDB, a.cfg.CacheTTL, a.logger.Zap())
		if err != nil {
			a.logger.Warn("Redis unavailable, scoring without cache: %v", err)
		} else {
			opts = append(opts, services.WithCache(cache))
			closeCache = func() { _ = cache.Close() }
		}
	}
	return services.NewScorer(a.extractor, a.classifier, a.logger, opts...), closeCache
}

// openStore returns the verdict store selected by STORE_DRIVER, or nil.
func (a *app) openStore(ctx context.Context) (storage.VerdictWriter, error) {
	switch a.cfg.StoreDriver {
	case "", "none":
		return nil, nil
	case "postgres":
		pw, err := storage.NewPostgresWriter(ctx, a.cfg.DSN(), &utils.RetryConfig{
			MaxAttempts: a.cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      a.logger,
		})
		if err != nil {
			return nil, err
		}
		return pw, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(a.cfg.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		st, err := storage.NewSQLiteStore(a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want postgres, sqlite or none)", a.cfg.StoreDriver)
	}
}

func split(labeled []*models.LabeledListing) ([]*models.Listing, []*bool) {
	listings := make([]*models.Listing, len(labeled))
	labels := make([]*bool, len(labeled))
	for i, ll := range labeled {
		listings[i] = ll.Listing
		labels[i] = ll.IsFake
	}
	return listings, labels
}

// appendTextFeatures fits one vectorizer per text field and appends its
// columns to every row.
func appendTextFeatures(columns []string, matrix [][]float64, listings []*models.Listing, maxFeatures int) ([]string, [][]float64, error) {
	fields := []struct {
		prefix string
		text   func(*models.Listing) string
	}{
		{"title_tfidf_", func(l *models.Listing) string { return l.Title }},
		{"description_tfidf_", func(l *models.Listing) string { return l.Description }},
	}

	for _, f := range fields {
		docs := make([]string, len(listings))
		for i, l := range listings {
			docs[i] = f.text(l)
		}

		vec := services.NewTextVectorizer(maxFeatures)
		vec.Fit(docs)
		for _, term := range vec.Terms() {
			columns = append(columns, f.prefix+term)
		}
		for i, doc := range docs {
			row, err := vec.Transform(doc)
			if err != nil {
				return nil, nil, err
			}
			matrix[i] = append(matrix[i], row...)
		}
	}
	return columns, matrix, nil
}
