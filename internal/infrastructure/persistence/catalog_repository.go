package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/domain/shared"
	"github.com/hostcatalog/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notFound maps gorm's record-not-found onto the domain sentinel
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// GormHostingRepository implements catalog.HostingRepository using GORM
type GormHostingRepository struct {
	db *gorm.DB
}

// NewGormHostingRepository creates a new GormHostingRepository
func NewGormHostingRepository(db *gorm.DB) *GormHostingRepository {
	return &GormHostingRepository{db: db}
}

// FindBySlug finds a hosting by its slug
func (r *GormHostingRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Hosting, error) {
	var model models.HostingModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new hosting
func (r *GormHostingRepository) Create(ctx context.Context, hosting *catalog.Hosting) error {
	if err := r.db.WithContext(ctx).Create(models.HostingModelFromDomain(hosting)).Error; err != nil {
		return fmt.Errorf("failed to create hosting %s: %w", hosting.Slug, err)
	}
	return nil
}

// UpdateImage sets the migrated image URL of a hosting
func (r *GormHostingRepository) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	result := r.db.WithContext(ctx).Model(&models.HostingModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"image_url":  imageURL,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update hosting image: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormTariffRepository implements catalog.TariffRepository using GORM
type GormTariffRepository struct {
	db *gorm.DB
}

// NewGormTariffRepository creates a new GormTariffRepository
func NewGormTariffRepository(db *gorm.DB) *GormTariffRepository {
	return &GormTariffRepository{db: db}
}

// FindByHostingAndName finds a tariff of a hosting by name
func (r *GormTariffRepository) FindByHostingAndName(ctx context.Context, hostingID uuid.UUID, name string) (*catalog.Tariff, error) {
	var model models.TariffModel
	err := r.db.WithContext(ctx).
		Where("hosting_id = ? AND name = ?", hostingID, name).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ListSlugs returns the tariff slugs equal to base or starting with base-
func (r *GormTariffRepository) ListSlugs(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Model(&models.TariffModel{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Order("slug").
		Pluck("slug", &slugs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tariff slugs: %w", err)
	}
	return slugs, nil
}

// Create inserts a new tariff
func (r *GormTariffRepository) Create(ctx context.Context, tariff *catalog.Tariff) error {
	if err := r.db.WithContext(ctx).Create(models.TariffModelFromDomain(tariff)).Error; err != nil {
		return fmt.Errorf("failed to create tariff %s: %w", tariff.Slug, err)
	}
	return nil
}

// GormReferenceRepository implements catalog.ReferenceRepository using GORM.
// Every reference kind lives in its own table with the same shape.
type GormReferenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceRepository creates a new GormReferenceRepository
func NewGormReferenceRepository(db *gorm.DB) *GormReferenceRepository {
	return &GormReferenceRepository{db: db}
}

// FindBySlug finds a reference of the given kind by slug
func (r *GormReferenceRepository) FindBySlug(ctx context.Context, kind catalog.ReferenceKind, slug string) (*catalog.Reference, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}
	var model models.ReferenceModel
	err := r.db.WithContext(ctx).Table(kind.TableName()).
		Where("slug = ?", slug).
		Take(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(kind), nil
}

// Create inserts a new reference into the table of its kind
func (r *GormReferenceRepository) Create(ctx context.Context, ref *catalog.Reference) error {
	if !ref.Kind.IsValid() {
		return fmt.Errorf("unknown reference kind %q", ref.Kind)
	}
	if err := r.db.WithContext(ctx).Table(ref.Kind.TableName()).Create(models.ReferenceModelFromDomain(ref)).Error; err != nil {
		return fmt.Errorf("failed to create %s %s: %w", ref.Kind.EntityName(), ref.Slug, err)
	}
	return nil
}

// GormContentBlockRepository implements catalog.ContentBlockRepository using GORM
type GormContentBlockRepository struct {
	db *gorm.DB
}

// NewGormContentBlockRepository creates a new GormContentBlockRepository
func NewGormContentBlockRepository(db *gorm.DB) *GormContentBlockRepository {
	return &GormContentBlockRepository{db: db}
}

// FindByKey finds a content block by key
func (r *GormContentBlockRepository) FindByKey(ctx context.Context, key string) (*catalog.ContentBlock, error) {
	var model models.ContentBlockModel
	if err := r.db.WithContext(ctx).Where(map[string]any{"key": key}).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new content block
func (r *GormContentBlockRepository) Create(ctx context.Context, block *catalog.ContentBlock) error {
	if err := r.db.WithContext(ctx).Create(models.ContentBlockModelFromDomain(block)).Error; err != nil {
		return fmt.Errorf("failed to create content block %s: %w", block.Key, err)
	}
	return nil
}

// UpdateType changes the type of an existing content block
func (r *GormContentBlockRepository) UpdateType(ctx context.Context, id uuid.UUID, blockType string) error {
	result := r.db.WithContext(ctx).Model(&models.ContentBlockModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"type":       blockType,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update content block type: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormTariffRelationRepository implements catalog.TariffRelationRepository using GORM
type GormTariffRelationRepository struct {
	db *gorm.DB
}

// NewGormTariffRelationRepository creates a new GormTariffRelationRepository
func NewGormTariffRelationRepository(db *gorm.DB) *GormTariffRelationRepository {
	return &GormTariffRelationRepository{db: db}
}

// Link inserts the pair into the junction table of its kind, ignoring duplicates
func (r *GormTariffRelationRepository) Link(ctx context.Context, rel catalog.TariffRelation) (bool, error) {
	if !rel.Kind.IsValid() {
		return false, fmt.Errorf("unknown reference kind %q", rel.Kind)
	}
	result := r.db.WithContext(ctx).Table(rel.Kind.JunctionTable()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]any{
			"tariff_id":               rel.TariffID,
			rel.Kind.JunctionColumn(): rel.ReferenceID,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to link tariff to %s: %w", rel.Kind.EntityName(), result.Error)
	}
	return result.RowsAffected > 0, nil
}
