package migrationapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/domain/shared"
	"github.com/hostcatalog/backend/internal/infrastructure/legacy"
	"go.uber.org/zap"
)

// run holds the state of one Orchestrator run. It is used from a single goroutine.
type run struct {
	*Orchestrator
	registry *Registry
	result   *Result

	// seen maps natural keys resolved in this run to their IDs, so that
	// dry runs still deduplicate rows that were never written
	seen map[string]uuid.UUID

	// tariffSlugs are the tariff slugs assigned in this run
	tariffSlugs []string

	// hostings resolved by the hostings stage, input of the images stage
	hostings []*catalog.Hosting
}

func naturalKey(kind EntityKind, parts ...string) string {
	key := string(kind)
	for _, p := range parts {
		key += "\x00" + p
	}
	return key
}

// rowError records a row-level failure and logs it
func (r *run) rowError(log *zap.Logger, stage, subject string, err error, code string) {
	log.Warn("Row skipped", zap.String("subject", subject), zap.Error(err))
	r.result.AddError(stage, subject, err, code)
}

// readTable turns a missing legacy table into zero rows
func readTable[T any](log *zap.Logger, table string, read func() ([]T, error)) ([]T, error) {
	records, err := read()
	if err != nil {
		if legacy.IsTableNotFound(err) {
			log.Warn("Legacy table does not exist, treating as empty", zap.String("table", table))
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

// lookup runs a find-by-natural-key. Not found is (nil, nil); any other error is fatal for the stage.
func lookup[T any](find func() (*T, error)) (*T, error) {
	found, err := find()
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return found, nil
}

func (r *run) migrateReferences(ctx context.Context, log *zap.Logger) error {
	for _, kind := range catalog.ReferenceKinds() {
		records, err := readTable(log, kind.TableName(), func() ([]legacy.ReferenceRecord, error) {
			return r.source.References(ctx, kind)
		})
		if err != nil {
			return err
		}

		entityKind := ReferenceEntityKind(kind)
		counters := r.result.Counter(string(kind))
		for _, rec := range records {
			counters.Read++
			subject := fmt.Sprintf("%s #%d", kind.EntityName(), rec.ID)

			ref, err := r.mapper.MapReference(kind, rec)
			if err != nil {
				counters.Failed++
				r.rowError(log, StageReferences, subject, err, MappingCodeInvalid)
				continue
			}

			key := naturalKey(entityKind, ref.Slug)
			if id, ok := r.seen[key]; ok {
				r.registry.Set(entityKind, rec.ID, id)
				counters.Reused++
				continue
			}
			existing, err := lookup(func() (*catalog.Reference, error) {
				return r.repos.References.FindBySlug(ctx, kind, ref.Slug)
			})
			if err != nil {
				return fmt.Errorf("failed to look up %s %q: %w", kind.EntityName(), ref.Slug, err)
			}
			if existing != nil {
				r.seen[key] = existing.ID
				r.registry.Set(entityKind, rec.ID, existing.ID)
				counters.Reused++
				continue
			}

			if !r.opts.DryRun {
				if err := r.repos.References.Create(ctx, ref); err != nil {
					counters.Failed++
					r.rowError(log, StageReferences, subject, fmt.Errorf("failed to create %s: %w", kind.EntityName(), err), ErrCodeWriteFailed)
					continue
				}
			}
			r.seen[key] = ref.ID
			r.registry.Set(entityKind, rec.ID, ref.ID)
			counters.Created++
		}

		log.Info("References migrated",
			zap.String("kind", string(kind)),
			zap.Int("read", counters.Read),
			zap.Int("created", counters.Created),
			zap.Int("reused", counters.Reused),
			zap.Int("failed", counters.Failed),
		)
	}
	return nil
}

func (r *run) migrateHostings(ctx context.Context, log *zap.Logger) error {
	records, err := readTable(log, "hostings", func() ([]legacy.HostingRecord, error) {
		return r.source.Hostings(ctx)
	})
	if err != nil {
		return err
	}

	counters := r.result.Counter(StageHostings)
	for _, rec := range records {
		counters.Read++
		subject := fmt.Sprintf("Hosting #%d", rec.ID)

		hosting, err := r.mapper.MapHosting(rec)
		if err != nil {
			counters.Failed++
			r.rowError(log, StageHostings, subject, err, MappingCodeInvalid)
			continue
		}

		key := naturalKey(KindHosting, hosting.Slug)
		if id, ok := r.seen[key]; ok {
			r.registry.Set(KindHosting, rec.ID, id)
			counters.Reused++
			continue
		}
		existing, err := lookup(func() (*catalog.Hosting, error) {
			return r.repos.Hostings.FindBySlug(ctx, hosting.Slug)
		})
		if err != nil {
			return fmt.Errorf("failed to look up hosting %q: %w", hosting.Slug, err)
		}
		if existing != nil {
			r.seen[key] = existing.ID
			r.registry.Set(KindHosting, rec.ID, existing.ID)
			r.hostings = append(r.hostings, existing)
			counters.Reused++
			continue
		}

		if !r.opts.DryRun {
			if err := r.repos.Hostings.Create(ctx, hosting); err != nil {
				counters.Failed++
				r.rowError(log, StageHostings, subject, fmt.Errorf("failed to create hosting: %w", err), ErrCodeWriteFailed)
				continue
			}
		}
		r.seen[key] = hosting.ID
		r.registry.Set(KindHosting, rec.ID, hosting.ID)
		r.hostings = append(r.hostings, hosting)
		counters.Created++
	}

	log.Info("Hostings migrated",
		zap.Int("read", counters.Read),
		zap.Int("created", counters.Created),
		zap.Int("reused", counters.Reused),
		zap.Int("failed", counters.Failed),
	)
	return nil
}

func (r *run) migrateImages(ctx context.Context, log *zap.Logger) error {
	counters := r.result.Counter(StageImages)
	for _, hosting := range r.hostings {
		if !hosting.HasLogo() || hosting.HasImage() {
			counters.Skipped++
			continue
		}
		counters.Read++
		subject := fmt.Sprintf("Hosting %s", hosting.Slug)

		res, err := r.images.MigrateLogo(ctx, hosting)
		if err != nil {
			counters.Failed++
			r.rowError(log, StageImages, subject, err, ErrCodeImageFailed)
			continue
		}
		for _, thumbErr := range res.ThumbnailErrors {
			r.rowError(log, StageImages, subject, thumbErr, ErrCodeThumbnail)
		}
		if res.Placeholder {
			counters.Placeholders++
		}

		if !r.opts.DryRun {
			if err := r.repos.Hostings.UpdateImage(ctx, hosting.ID, res.URL); err != nil {
				counters.Failed++
				r.rowError(log, StageImages, subject, fmt.Errorf("failed to save image url: %w", err), ErrCodeWriteFailed)
				continue
			}
		}
		hosting.SetImage(res.URL)
		counters.Created++
	}

	log.Info("Images migrated",
		zap.Int("processed", counters.Read),
		zap.Int("uploaded", counters.Created),
		zap.Int("placeholders", counters.Placeholders),
		zap.Int("failed", counters.Failed),
	)
	return nil
}

func (r *run) migrateTariffs(ctx context.Context, log *zap.Logger) error {
	records, err := readTable(log, "tariffs", func() ([]legacy.TariffRecord, error) {
		return r.source.Tariffs(ctx)
	})
	if err != nil {
		return err
	}

	counters := r.result.Counter(StageTariffs)
	for _, rec := range records {
		counters.Read++
		subject := fmt.Sprintf("Tariff #%d", rec.ID)

		hostingID, ok := r.resolve(KindHosting, rec.HostingID)
		if !ok {
			counters.Skipped++
			r.rowError(log, StageTariffs, subject,
				fmt.Errorf("Hosting ID %s not found in mapping", formatLegacyValue(rec.HostingID)),
				ErrCodeMissingMapping)
			continue
		}

		tariff, err := r.mapper.MapTariff(rec, hostingID)
		if err != nil {
			counters.Failed++
			r.rowError(log, StageTariffs, subject, err, MappingCodeInvalid)
			continue
		}

		if period := CoerceString(rec.Period); !catalog.IsKnownTariffPeriod(period) {
			log.Warn("Unrecognized tariff period, defaulting to MONTH",
				zap.String("subject", subject),
				zap.String("period", period),
			)
		}

		key := naturalKey(KindTariff, hostingID.String(), tariff.Name)
		if id, ok := r.seen[key]; ok {
			r.registry.Set(KindTariff, rec.ID, id)
			counters.Reused++
			continue
		}
		existing, err := lookup(func() (*catalog.Tariff, error) {
			return r.repos.Tariffs.FindByHostingAndName(ctx, hostingID, tariff.Name)
		})
		if err != nil {
			return fmt.Errorf("failed to look up tariff %q: %w", tariff.Name, err)
		}
		if existing != nil {
			r.seen[key] = existing.ID
			r.registry.Set(KindTariff, rec.ID, existing.ID)
			counters.Reused++
			continue
		}

		// tariff slugs are unique across all hostings
		taken, err := r.repos.Tariffs.ListSlugs(ctx, tariff.Slug)
		if err != nil {
			return fmt.Errorf("failed to list tariff slugs: %w", err)
		}
		tariff.Slug = catalog.EnsureUniqueSlug(tariff.Slug, append(taken, r.tariffSlugs...))

		if !r.opts.DryRun {
			if err := r.repos.Tariffs.Create(ctx, tariff); err != nil {
				counters.Failed++
				r.rowError(log, StageTariffs, subject, fmt.Errorf("failed to create tariff: %w", err), ErrCodeWriteFailed)
				continue
			}
		}
		r.seen[key] = tariff.ID
		r.tariffSlugs = append(r.tariffSlugs, tariff.Slug)
		r.registry.Set(KindTariff, rec.ID, tariff.ID)
		counters.Created++
	}

	log.Info("Tariffs migrated",
		zap.Int("read", counters.Read),
		zap.Int("created", counters.Created),
		zap.Int("reused", counters.Reused),
		zap.Int("skipped", counters.Skipped),
		zap.Int("failed", counters.Failed),
	)
	return nil
}

// resolve looks up the target ID of a loosely typed legacy foreign key
func (r *run) resolve(kind EntityKind, legacyID any) (uuid.UUID, bool) {
	id, ok := legacy.ToInt64(legacyID)
	if !ok {
		return uuid.Nil, false
	}
	return r.registry.Get(kind, id)
}

func (r *run) migrateTariffRelations(ctx context.Context, log *zap.Logger) error {
	counters := r.result.Counter(StageTariffRelations)

	for _, kind := range catalog.ReferenceKinds() {
		pairs, err := readTable(log, kind.JunctionTable(), func() ([]legacy.RelationRecord, error) {
			return r.source.TariffRelations(ctx, kind)
		})
		if err != nil {
			return err
		}

		for _, pair := range pairs {
			counters.Read++

			tariffID, tariffOK := r.registry.Get(KindTariff, pair.TariffID)
			refID, refOK := r.registry.Get(ReferenceEntityKind(kind), pair.ReferenceID)
			if !tariffOK || !refOK {
				counters.Skipped++
				log.Warn("Skipping relation with unmigrated endpoint",
					zap.String("table", kind.JunctionTable()),
					zap.Int64("tariff_id", pair.TariffID),
					zap.Int64("reference_id", pair.ReferenceID),
					zap.Bool("tariff_resolved", tariffOK),
					zap.Bool("reference_resolved", refOK),
				)
				continue
			}

			key := naturalKey(EntityKind(kind.JunctionTable()), tariffID.String(), refID.String())
			if _, ok := r.seen[key]; ok {
				counters.Reused++
				continue
			}

			created := true
			if !r.opts.DryRun {
				created, err = r.repos.Relations.Link(ctx, catalog.TariffRelation{
					Kind:        kind,
					TariffID:    tariffID,
					ReferenceID: refID,
				})
				if err != nil {
					counters.Failed++
					subject := fmt.Sprintf("%s #%d-#%d", kind.JunctionTable(), pair.TariffID, pair.ReferenceID)
					r.rowError(log, StageTariffRelations, subject, fmt.Errorf("failed to link tariff: %w", err), ErrCodeWriteFailed)
					continue
				}
			}
			r.seen[key] = uuid.Nil
			if created {
				counters.Created++
			} else {
				counters.Reused++
			}
		}
	}

	log.Info("Tariff relations migrated",
		zap.Int("read", counters.Read),
		zap.Int("created", counters.Created),
		zap.Int("existing", counters.Reused),
		zap.Int("skipped", counters.Skipped),
	)
	return nil
}

func (r *run) migrateContentBlocks(ctx context.Context, log *zap.Logger) error {
	records, err := readTable(log, "content_blocks", func() ([]legacy.ContentBlockRecord, error) {
		return r.source.ContentBlocks(ctx)
	})
	if err != nil {
		return err
	}

	counters := r.result.Counter(StageContentBlocks)
	for _, rec := range records {
		counters.Read++
		subject := fmt.Sprintf("ContentBlock #%d", rec.ID)

		block, err := r.mapper.MapContentBlock(rec)
		if err != nil {
			counters.Failed++
			r.rowError(log, StageContentBlocks, subject, err, MappingCodeInvalid)
			continue
		}

		key := naturalKey(KindContentBlock, block.Key)
		if id, ok := r.seen[key]; ok {
			r.registry.Set(KindContentBlock, rec.ID, id)
			counters.Reused++
			continue
		}
		existing, err := lookup(func() (*catalog.ContentBlock, error) {
			return r.repos.ContentBlocks.FindByKey(ctx, block.Key)
		})
		if err != nil {
			return fmt.Errorf("failed to look up content block %q: %w", block.Key, err)
		}

		if existing != nil {
			r.seen[key] = existing.ID
			r.registry.Set(KindContentBlock, rec.ID, existing.ID)
			if existing.Type == block.Type {
				counters.Reused++
				continue
			}
			// type is the one field refreshed on an existing block
			if !r.opts.DryRun {
				if err := r.repos.ContentBlocks.UpdateType(ctx, existing.ID, block.Type); err != nil {
					counters.Failed++
					r.rowError(log, StageContentBlocks, subject, fmt.Errorf("failed to update content block type: %w", err), ErrCodeWriteFailed)
					continue
				}
			}
			log.Debug("Content block type updated",
				zap.String("key", block.Key),
				zap.String("from", existing.Type),
				zap.String("to", block.Type),
			)
			counters.Updated++
			continue
		}

		if !r.opts.DryRun {
			if err := r.repos.ContentBlocks.Create(ctx, block); err != nil {
				counters.Failed++
				r.rowError(log, StageContentBlocks, subject, fmt.Errorf("failed to create content block: %w", err), ErrCodeWriteFailed)
				continue
			}
		}
		r.seen[key] = block.ID
		r.registry.Set(KindContentBlock, rec.ID, block.ID)
		counters.Created++
	}

	log.Info("Content blocks migrated",
		zap.Int("read", counters.Read),
		zap.Int("created", counters.Created),
		zap.Int("reused", counters.Reused),
		zap.Int("updated", counters.Updated),
		zap.Int("failed", counters.Failed),
	)
	return nil
}
