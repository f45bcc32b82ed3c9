package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flatloader/internal/compare"
	"flatloader/internal/config"
	"flatloader/internal/importer"
	"flatloader/internal/input"
	"flatloader/internal/logging"
	"flatloader/internal/metrics"
	"flatloader/internal/metrics/datadog"
	"flatloader/internal/metrics/prompush"
	"flatloader/internal/normalize"
	"flatloader/internal/report"
	"flatloader/internal/schema"
	"flatloader/internal/storage"
)

// run executes one import, update or compare. Row level problems end up in
// the report; only fatal errors are returned.
func run(ctx context.Context, cfg *config.Config, d deps) error {
	issues := cfg.Validate()
	if err := config.Err(issues); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: d.stderr})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("run_id", logging.NewRunID()), zap.String("mode", string(cfg.Mode)))
	for _, iss := range issues {
		log.Warn("config", zap.String("path", iss.Path), zap.String("issue", iss.Message))
	}

	flush := setupMetrics(cfg, log)
	defer flush()

	profile, err := cfg.LoadProfile()
	if err != nil {
		return err
	}
	log.Info("starting",
		zap.String("input", cfg.Input),
		zap.String("profile", profile.Name()),
		zap.String("table", profile.Table()),
		zap.String("driver", cfg.DBDriver),
		zap.Bool("dry_run", cfg.DryRun))

	in, repo, err := preflight(ctx, cfg, d, profile, log)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
	}

	res, err := schema.Resolve(in.Headers, profile.Mapping())
	if err != nil {
		if errors.Is(err, schema.ErrNoColumnsResolved) {
			return fmt.Errorf("%s: header row %d: %w", cfg.Input, in.HeaderLine, err)
		}
		return err
	}
	if len(res.Unmapped) > 0 {
		log.Warn("unmapped headers ignored", zap.Strings("headers", res.Unmapped))
	}
	norm := normalize.New(profile, res, log)
	log.Info("headers resolved",
		zap.Int("header_line", in.HeaderLine),
		zap.Int("columns", len(norm.Columns())),
		zap.Int("rows", len(in.Rows)))

	if cfg.Mode == config.ModeCompare {
		return runCompare(ctx, cfg, d, repo, norm, in.Rows, log)
	}
	return runImport(ctx, cfg, d, repo, norm, in.Rows, log)
}

// preflight loads the input and opens the store in parallel. A dry import
// never touches the database.
func preflight(ctx context.Context, cfg *config.Config, d deps, p *schema.Profile, log *zap.Logger) (*input.Input, storage.Repository, error) {
	var (
		in   *input.Input
		repo storage.Repository
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var err error
		in, err = d.loadInput(gctx, cfg.Input, input.Options{
			Comma:      cfg.Comma(),
			Sheet:      cfg.Sheet,
			Marker:     p.Marker(),
			HeaderScan: cfg.HeaderScan,
		})
		metrics.RecordStep(cfg.Job, "load_input", err, time.Since(start))
		return err
	})
	if !cfg.DryRun || cfg.Mode == config.ModeCompare {
		g.Go(func() error {
			start := time.Now()
			var err error
			repo, err = d.openStore(gctx, storage.Config{
				Kind: strings.ToLower(cfg.DBDriver),
				DSN:  cfg.ResolveDSN(),
			})
			metrics.RecordStep(cfg.Job, "open_store", err, time.Since(start))
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
			}
			log.Info("store ready", zap.String("driver", cfg.DBDriver))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if repo != nil {
			repo.Close()
		}
		return nil, nil, err
	}
	return in, repo, nil
}

func runImport(ctx context.Context, cfg *config.Config, d deps, repo storage.Repository, norm *normalize.Normalizer, rows []normalize.RawRow, log *zap.Logger) error {
	rep := report.New()
	var sink report.Sink = rep
	if cfg.FailuresCSV != "" {
		fl, err := report.NewFailureLog(cfg.FailuresCSV)
		if err != nil {
			return fmt.Errorf("failures csv: %w", err)
		}
		defer func() {
			if err := fl.Close(); err != nil {
				log.Error("failures csv", zap.Error(err))
			}
		}()
		sink = report.Tee(rep, fl)
	}

	p := norm.Profile()
	ex, err := importer.New(repo, norm, sink, log, importer.Options{
		Mode:           importer.Mode(cfg.Mode),
		Table:          p.Table(),
		Key:            p.Key(),
		DryRun:         cfg.DryRun,
		SkipDuplicates: cfg.SkipDuplicates,
		ProgressEvery:  cfg.ProgressEvery,
		Job:            cfg.Job,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	runErr := ex.Run(ctx, rows)
	metrics.RecordStep(cfg.Job, "process_rows", runErr, time.Since(start))

	// The report is printed even for an interrupted run so the operator
	// knows which rows already landed.
	if err := rep.Render(d.stdout); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run interrupted after %d rows: %w", rep.Total(), runErr)
	}
	log.Info("done",
		zap.Int("inserted", rep.Count(report.Inserted)),
		zap.Int("updated", rep.Count(report.Updated)),
		zap.Int("skipped", rep.Count(report.Skipped)),
		zap.Int("failed", rep.Count(report.Failed)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func runCompare(ctx context.Context, cfg *config.Config, d deps, repo storage.Repository, norm *normalize.Normalizer, rows []normalize.RawRow, log *zap.Logger) error {
	p := norm.Profile()
	c, err := compare.New(repo, norm, log, compare.Options{
		Table:         p.Table(),
		Key:           p.Key(),
		SlugField:     p.SlugField(),
		Checks:        p.Compare(),
		MissingOnly:   cfg.MissingOnly,
		ProgressEvery: cfg.ProgressEvery,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := c.Run(ctx, rows)
	metrics.RecordStep(cfg.Job, "compare", err, time.Since(start))
	if err != nil {
		return err
	}
	if err := compare.WriteCSV(cfg.ReportCSV, res.Discrepancies); err != nil {
		return err
	}
	compare.WriteSummary(d.stdout, res)
	log.Info("report written", zap.String("path", cfg.ReportCSV), zap.Int("discrepancies", len(res.Discrepancies)))
	return nil
}

// setupMetrics installs the configured backend and returns the flush to
// defer. A backend that fails to start leaves metrics disabled.
func setupMetrics(cfg *config.Config, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	name := strings.ToLower(cfg.MetricsBackend)
	switch name {
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  "flatloader.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
	default:
		log.Debug("metrics disabled", zap.String("backend", cfg.MetricsBackend))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend unavailable, using nop", zap.String("backend", name), zap.Error(err))
		return func() {}
	}
	metrics.SetBackend(b)
	log.Info("metrics enabled", zap.String("backend", name), zap.String("job", cfg.Job))
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush", zap.Error(err))
		}
	}
}
