// Command datamigrate copies the legacy hosting catalog into the new schema.
//
// Usage:
//
//	datamigrate [--dry-run] [--skip-images] [--log-level debug] [--report-dir ./reports]
//
// Connection settings come from config.toml and HOSTCAT_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	migrationapp "github.com/hostcatalog/backend/internal/application/migration"
	"github.com/hostcatalog/backend/internal/infrastructure/config"
	"github.com/hostcatalog/backend/internal/infrastructure/legacy"
	"github.com/hostcatalog/backend/internal/infrastructure/logger"
	"github.com/hostcatalog/backend/internal/infrastructure/media"
	"github.com/hostcatalog/backend/internal/infrastructure/migration"
	"github.com/hostcatalog/backend/internal/infrastructure/persistence"
	"github.com/hostcatalog/backend/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// dryRunStorageURL prefixes the URLs reported for images that a dry run only pretends to upload
const dryRunStorageURL = "memory://dry-run"

type options struct {
	dryRun     bool
	skipImages bool
	logLevel   string
	reportDir  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "datamigrate",
		Short:         "Migrate the legacy hosting catalog",
		Long:          `Copy references, hostings, logos, tariffs, tariff relations and content blocks from the legacy database into the catalog schema. Reruns are safe: rows that already exist are reused.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := run(ctx, opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Read and map everything without writing to the target database or object storage")
	cmd.Flags().BoolVar(&opts.skipImages, "skip-images", false, "Skip the logo migration stage")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	cmd.Flags().StringVar(&opts.reportDir, "report-dir", "", "Directory for the JSON run report (overrides migration.report_dir)")

	return cmd
}

// run wires the stores and executes one migration run.
// Any returned error makes the process exit non-zero.
func run(ctx context.Context, opts *options) error {
	if opts.logLevel != "" && !logger.ValidLevel(opts.logLevel) {
		return fmt.Errorf("invalid --log-level %q", opts.logLevel)
	}

	start := time.Now()
	reporter := migrationapp.NewReporter(opts.reportDir)
	fail := func(err error) error {
		return writeFailedReport(reporter, start, opts, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fail(fmt.Errorf("failed to load configuration: %w", err))
	}
	if opts.reportDir != "" {
		cfg.Migration.ReportDir = opts.reportDir
	}
	reporter = migrationapp.NewReporter(cfg.Migration.ReportDir)

	if err := cfg.RequireStoreCredentials(!opts.skipImages && !opts.dryRun); err != nil {
		return fail(fmt.Errorf("missing credentials: %w", err))
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return fail(fmt.Errorf("failed to initialize logger: %w", err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting hosting catalog migration",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Bool("dry_run", opts.dryRun),
		zap.Bool("skip_images", opts.skipImages),
	)

	if cfg.Migration.AutoMigrateUp && !opts.dryRun {
		sourceURL, err := migration.SourceURL(cfg.Migration.SchemaPath)
		if err != nil {
			return fail(err)
		}
		if err := migration.Apply(cfg.Database.DSN(), sourceURL, log); err != nil {
			log.Error("Failed to apply schema migrations", zap.Error(err))
			return fail(err)
		}
	}

	db, err := persistence.NewDatabase(ctx, &cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Error("Failed to connect to target database", zap.Error(err))
		return fail(err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close target database", zap.Error(err))
		}
	}()

	pool, err := legacy.Connect(ctx, &cfg.LegacyDatabase)
	if err != nil {
		log.Error("Failed to connect to legacy database", zap.Error(err))
		return fail(err)
	}
	defer pool.Close()

	orchestratorOpts := []migrationapp.Option{
		migrationapp.WithReporter(reporter),
	}
	if !opts.skipImages {
		images, err := newImageMigrator(ctx, cfg, opts.dryRun, log)
		if err != nil {
			log.Error("Failed to initialize object storage", zap.Error(err))
			return fail(err)
		}
		orchestratorOpts = append(orchestratorOpts, migrationapp.WithImageMigrator(images))
	}

	orchestrator := migrationapp.NewOrchestrator(
		legacy.NewReader(pool, cfg.Migration.LegacySchema, log),
		migrationapp.Repositories{
			Hostings:      persistence.NewGormHostingRepository(db.DB),
			Tariffs:       persistence.NewGormTariffRepository(db.DB),
			References:    persistence.NewGormReferenceRepository(db.DB),
			ContentBlocks: persistence.NewGormContentBlockRepository(db.DB),
			Relations:     persistence.NewGormTariffRelationRepository(db.DB),
		},
		migrationapp.Options{DryRun: opts.dryRun, SkipImages: opts.skipImages},
		log,
		orchestratorOpts...,
	)

	result, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("Migration summary",
		zap.String("run_id", result.RunID),
		zap.Duration("duration", result.Duration()),
		zap.Int("errors", len(result.Errors)),
		zap.Any("stats", result.Stats),
	)
	return nil
}

// writeFailedReport records a run that could not start and returns cause,
// joined with the write error when the report itself could not be stored.
func writeFailedReport(reporter *migrationapp.Reporter, start time.Time, opts *options, cause error) error {
	result := migrationapp.NewResult(uuid.NewString(), start, migrationapp.Options{
		DryRun:     opts.dryRun,
		SkipImages: opts.skipImages,
	})
	result.Finish(time.Now(), nil, cause)
	if _, err := reporter.Write(result); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to write run report: %w", err))
	}
	return cause
}

// newImageMigrator uploads into the configured bucket, or into memory on a dry run
func newImageMigrator(ctx context.Context, cfg *config.Config, dryRun bool, log *zap.Logger) (*media.ImageMigrator, error) {
	var store storage.ObjectStorage
	if dryRun {
		store = storage.NewMemoryObjectStorage(dryRunStorageURL)
	} else {
		bucket, err := storage.New(ctx, &cfg.Storage, log)
		if err != nil {
			return nil, err
		}
		store = bucket
	}
	return media.NewImageMigrator(store, &cfg.Media, media.WithLogger(log)), nil
}
