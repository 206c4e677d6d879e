package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return shared.ErrNotFound when no record matches the natural key.

// HostingRepository defines the interface for hosting persistence
type HostingRepository interface {
	// FindBySlug finds a hosting by its slug
	FindBySlug(ctx context.Context, slug string) (*Hosting, error)

	// Create inserts a new hosting
	Create(ctx context.Context, hosting *Hosting) error

	// UpdateImage sets the migrated image URL of a hosting
	UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error
}

// TariffRepository defines the interface for tariff persistence
type TariffRepository interface {
	// FindByHostingAndName finds a tariff of a hosting by name
	FindByHostingAndName(ctx context.Context, hostingID uuid.UUID, name string) (*Tariff, error)

	// ListSlugs returns the tariff slugs equal to base or starting with base-
	ListSlugs(ctx context.Context, base string) ([]string, error)

	// Create inserts a new tariff
	Create(ctx context.Context, tariff *Tariff) error
}

// ReferenceRepository defines the interface for reference taxonomy persistence
type ReferenceRepository interface {
	// FindBySlug finds a reference of the given kind by slug
	FindBySlug(ctx context.Context, kind ReferenceKind, slug string) (*Reference, error)

	// Create inserts a new reference into the table of its kind
	Create(ctx context.Context, ref *Reference) error
}

// ContentBlockRepository defines the interface for content block persistence
type ContentBlockRepository interface {
	// FindByKey finds a content block by key
	FindByKey(ctx context.Context, key string) (*ContentBlock, error)

	// Create inserts a new content block
	Create(ctx context.Context, block *ContentBlock) error

	// UpdateType changes the type of an existing content block
	UpdateType(ctx context.Context, id uuid.UUID, blockType string) error
}

// TariffRelationRepository defines the interface for tariff junction persistence
type TariffRelationRepository interface {
	// Link stores the relation. Linking an existing pair is a no-op and reports created=false.
	Link(ctx context.Context, rel TariffRelation) (created bool, err error)
}
