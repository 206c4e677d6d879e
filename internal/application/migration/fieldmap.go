package migrationapp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/domain/shared"
	"github.com/hostcatalog/backend/internal/infrastructure/legacy"
)

// Mapping error codes
const (
	MappingCodeRequired = "REQUIRED"
	MappingCodeInvalid  = "INVALID"
	MappingCodeFormat   = "FORMAT"
)

// MappingError is a validation failure of one legacy row. It never aborts a stage.
type MappingError struct {
	Entity  string `json:"entity"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *MappingError) Error() string {
	return e.Message
}

// IsMappingError reports whether err is (or wraps) a MappingError
func IsMappingError(err error) bool {
	var mErr *MappingError
	return errors.As(err, &mErr)
}

func requiredError(entity, field string) *MappingError {
	return &MappingError{
		Entity:  entity,
		Field:   field,
		Code:    MappingCodeRequired,
		Message: fmt.Sprintf("%s %s is required", entity, field),
	}
}

func invalidError(entity, field, message string) *MappingError {
	return &MappingError{Entity: entity, Field: field, Code: MappingCodeInvalid, Message: message}
}

// Mapper converts legacy records into catalog entities.
// It performs no I/O; the clock supplies the timestamp for rows without one.
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a Mapper; a nil clock means time.Now
func NewMapper(now func() time.Time) *Mapper {
	if now == nil {
		now = time.Now
	}
	return &Mapper{now: now}
}

func (m *Mapper) baseEntity(createdAt, updatedAt any) shared.BaseEntity {
	now := m.now()
	return shared.NewBaseEntityAt(CoerceTime(createdAt, now), CoerceTime(updatedAt, now))
}

// MapHosting maps a legacy hosting. The website URL is the resolved slug.
func (m *Mapper) MapHosting(rec legacy.HostingRecord) (*catalog.Hosting, error) {
	const entity = "Hosting"

	name := strings.TrimSpace(CoerceString(rec.Name))
	if name == "" {
		return nil, requiredError(entity, "name")
	}
	slug, err := resolveSlug(entity, rec.Slug, name)
	if err != nil {
		return nil, err
	}

	return &catalog.Hosting{
		BaseEntity:  m.baseEntity(rec.CreatedAt, rec.UpdatedAt),
		Name:        name,
		Slug:        slug,
		Description: CoerceString(rec.Description),
		WebsiteURL:  slug,
		LogoURL:     strings.TrimSpace(CoerceString(rec.Logo)),
		IsActive:    CoerceBool(rec.IsActive),
	}, nil
}

// MapTariff maps a legacy tariff owned by the hosting with the given target ID
func (m *Mapper) MapTariff(rec legacy.TariffRecord, hostingID uuid.UUID) (*catalog.Tariff, error) {
	const entity = "Tariff"

	name := strings.TrimSpace(CoerceString(rec.Name))
	if name == "" {
		return nil, requiredError(entity, "name")
	}

	price, present, err := CoerceDecimal(rec.Price)
	if !present {
		return nil, requiredError(entity, "price")
	}
	if err != nil {
		return nil, invalidError(entity, "price", fmt.Sprintf("%s price is not a number: %v", entity, err))
	}
	if !price.IsPositive() {
		return nil, invalidError(entity, "price", fmt.Sprintf("%s price must be greater than 0", entity))
	}

	if rec.Period == nil {
		return nil, requiredError(entity, "period")
	}

	slug, err := resolveSlug(entity, rec.Slug, name)
	if err != nil {
		return nil, err
	}

	return &catalog.Tariff{
		BaseEntity:  m.baseEntity(rec.CreatedAt, rec.UpdatedAt),
		HostingID:   hostingID,
		Name:        name,
		Slug:        slug,
		Description: CoerceString(rec.Description),
		Price:       price,
		Period:      catalog.ParseTariffPeriod(CoerceString(rec.Period)),
		IsActive:    CoerceBool(rec.IsActive),
	}, nil
}

// MapReference maps a row of one of the reference taxonomies
func (m *Mapper) MapReference(kind catalog.ReferenceKind, rec legacy.ReferenceRecord) (*catalog.Reference, error) {
	entity := kind.EntityName()

	name := strings.TrimSpace(CoerceString(rec.Name))
	if name == "" {
		return nil, requiredError(entity, "name")
	}
	slug, err := resolveSlug(entity, rec.Slug, name)
	if err != nil {
		return nil, err
	}

	return &catalog.Reference{
		BaseEntity: m.baseEntity(rec.CreatedAt, rec.UpdatedAt),
		Kind:       kind,
		Name:       name,
		Slug:       slug,
	}, nil
}

// MapContentBlock maps a legacy content block, deriving the key from the title when absent
func (m *Mapper) MapContentBlock(rec legacy.ContentBlockRecord) (*catalog.ContentBlock, error) {
	const entity = "ContentBlock"

	key := strings.TrimSpace(CoerceString(rec.Key))
	title := strings.TrimSpace(CoerceString(rec.Title))

	if key == "" {
		if title == "" {
			return nil, &MappingError{
				Entity:  entity,
				Field:   "key",
				Code:    MappingCodeRequired,
				Message: entity + " key or title is required",
			}
		}
		key = catalog.DeriveContentBlockKey(title)
		if key == "" {
			return nil, invalidError(entity, "key", "Cannot generate key: title resulted in empty key")
		}
	}

	if !catalog.IsValidContentBlockKey(key) {
		return nil, &MappingError{
			Entity: entity,
			Field:  "key",
			Code:   MappingCodeFormat,
			Message: fmt.Sprintf(
				"%s key %q must be snake_case: lowercase letters, digits and underscores, not starting or ending with an underscore",
				entity, key),
		}
	}

	blockType := strings.TrimSpace(CoerceString(rec.Type))
	if blockType == "" {
		blockType = catalog.DefaultContentBlockType
	}

	return &catalog.ContentBlock{
		BaseEntity: m.baseEntity(rec.CreatedAt, rec.UpdatedAt),
		Key:        key,
		Title:      title,
		Content:    CoerceString(rec.Content),
		Type:       blockType,
		IsActive:   CoerceBool(rec.IsActive),
		SortOrder:  CoerceInt(rec.SortOrder),
	}, nil
}

// resolveSlug keeps a non-blank legacy slug as is (dots included) and otherwise derives one from name
func resolveSlug(entity string, legacySlug any, name string) (string, error) {
	if slug := strings.TrimSpace(CoerceString(legacySlug)); slug != "" {
		return slug, nil
	}
	slug := catalog.GenerateSlug(name)
	if slug == "" {
		return "", invalidError(entity, "slug", fmt.Sprintf("%s slug could not be generated from name", entity))
	}
	return slug, nil
}
