// Package migrationapp moves the legacy hosting catalog into the target schema.
package migrationapp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/infrastructure/legacy"
	"github.com/hostcatalog/backend/internal/infrastructure/logger"
	"github.com/hostcatalog/backend/internal/infrastructure/media"
	"go.uber.org/zap"
)

// Source reads the legacy catalog. *legacy.Reader implements it.
type Source interface {
	Hostings(ctx context.Context) ([]legacy.HostingRecord, error)
	Tariffs(ctx context.Context) ([]legacy.TariffRecord, error)
	References(ctx context.Context, kind catalog.ReferenceKind) ([]legacy.ReferenceRecord, error)
	ContentBlocks(ctx context.Context) ([]legacy.ContentBlockRecord, error)
	TariffRelations(ctx context.Context, kind catalog.ReferenceKind) ([]legacy.RelationRecord, error)
}

// ImageMigrator moves a hosting logo into object storage. *media.ImageMigrator implements it.
type ImageMigrator interface {
	MigrateLogo(ctx context.Context, hosting *catalog.Hosting) (*media.Result, error)
}

// ReportWriter persists the run result. *Reporter implements it.
type ReportWriter interface {
	Write(result *Result) (string, error)
}

// Repositories are the target store writers used by the stages
type Repositories struct {
	Hostings      catalog.HostingRepository
	Tariffs       catalog.TariffRepository
	References    catalog.ReferenceRepository
	ContentBlocks catalog.ContentBlockRepository
	Relations     catalog.TariffRelationRepository
}

// Options are the run parameters
type Options struct {
	DryRun     bool
	SkipImages bool
}

// Orchestrator runs the migration stages in dependency order
type Orchestrator struct {
	source   Source
	repos    Repositories
	images   ImageMigrator
	reporter ReportWriter
	mapper   *Mapper
	now      func() time.Time
	opts     Options
	logger   *zap.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithImageMigrator enables the images stage. Without it the stage is skipped.
func WithImageMigrator(images ImageMigrator) Option {
	return func(o *Orchestrator) {
		o.images = images
	}
}

// WithReporter persists every run result, failed runs included
func WithReporter(reporter ReportWriter) Option {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// WithClock overrides the clock used for report timestamps and rows without timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(source Source, repos Repositories, opts Options, log *zap.Logger, options ...Option) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		source: source,
		repos:  repos,
		opts:   opts,
		now:    time.Now,
		logger: log,
	}
	for _, option := range options {
		option(o)
	}
	o.mapper = NewMapper(o.now)
	return o
}

// stageFunc runs one step of a run
type stageFunc func(ctx context.Context, log *zap.Logger) error

// Run executes all stages and returns the run result.
// The error is non-nil only for a fatal failure; the result is returned and reported either way.
func (o *Orchestrator) Run(ctx context.Context) (result *Result, err error) {
	runID := uuid.NewString()
	ctx, log := logger.WithRunID(ctx, o.logger, runID)

	r := &run{
		Orchestrator: o,
		registry:     NewRegistry(),
		result:       NewResult(runID, o.now(), o.opts),
		seen:         make(map[string]uuid.UUID),
	}

	log.Info("Starting catalog migration",
		zap.Bool("dry_run", o.opts.DryRun),
		zap.Bool("skip_images", o.opts.SkipImages),
	)

	defer func() {
		r.result.Finish(o.now(), r.registry, err)
		o.report(log, r.result)
	}()

	stages := map[string]stageFunc{
		StageReferences:      r.migrateReferences,
		StageHostings:        r.migrateHostings,
		StageImages:          r.migrateImages,
		StageTariffs:         r.migrateTariffs,
		StageTariffRelations: r.migrateTariffRelations,
		StageContentBlocks:   r.migrateContentBlocks,
	}

	for _, name := range StageOrder {
		if name == StageImages && (o.opts.SkipImages || o.images == nil) {
			log.Info("Skipping images stage")
			continue
		}
		runStage, ok := stages[name]
		if !ok {
			return r.result, fmt.Errorf("stage %s: not implemented", name)
		}

		stageCtx, stageLog := logger.WithStage(ctx, log, name)
		begin := time.Now()
		stageLog.Info("Stage started")

		if err := runStage(stageCtx, stageLog); err != nil {
			stageLog.Error("Stage aborted", zap.Error(err))
			return r.result, fmt.Errorf("stage %s: %w", name, err)
		}

		stageLog.Info("Stage finished", zap.Duration("duration", time.Since(begin)))
	}

	log.Info("Catalog migration finished",
		zap.Int("errors", len(r.result.Errors)),
		zap.Duration("duration", o.now().Sub(r.result.StartedAt)),
	)
	return r.result, nil
}

func (o *Orchestrator) report(log *zap.Logger, result *Result) {
	if o.reporter == nil {
		return
	}
	path, err := o.reporter.Write(result)
	if err != nil {
		log.Error("Failed to write migration report", zap.Error(err))
		return
	}
	log.Info("Migration report written", zap.String("path", path), zap.String("status", string(result.Status)))
}
