package models

import (
	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// HostingModel is the persistence model for the Hosting domain entity.
type HostingModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(255);not null"`
	Slug        string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
	WebsiteURL  string `gorm:"column:website_url;type:varchar(255)"`
	LogoURL     string `gorm:"column:logo_url;type:text"`
	ImageURL    string `gorm:"column:image_url;type:text"`
	IsActive    bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (HostingModel) TableName() string {
	return "hostings"
}

// ToDomain converts the persistence model to a domain Hosting entity.
func (m *HostingModel) ToDomain() *catalog.Hosting {
	return &catalog.Hosting{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		WebsiteURL:  m.WebsiteURL,
		LogoURL:     m.LogoURL,
		ImageURL:    m.ImageURL,
		IsActive:    m.IsActive,
	}
}

// HostingModelFromDomain creates a persistence model from a domain Hosting entity.
func HostingModelFromDomain(h *catalog.Hosting) *HostingModel {
	m := &HostingModel{
		Name:        h.Name,
		Slug:        h.Slug,
		Description: h.Description,
		WebsiteURL:  h.WebsiteURL,
		LogoURL:     h.LogoURL,
		ImageURL:    h.ImageURL,
		IsActive:    h.IsActive,
	}
	m.FromDomainBaseEntity(h.BaseEntity)
	return m
}

// TariffModel is the persistence model for the Tariff domain entity.
type TariffModel struct {
	BaseModel
	HostingID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_tariff_hosting_name,priority:1"`
	Name        string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_tariff_hosting_name,priority:2"`
	Slug        string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Period      string          `gorm:"type:varchar(10);not null"`
	IsActive    bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TariffModel) TableName() string {
	return "tariffs"
}

// ToDomain converts the persistence model to a domain Tariff entity.
func (m *TariffModel) ToDomain() *catalog.Tariff {
	return &catalog.Tariff{
		BaseEntity:  m.BaseModel.ToDomain(),
		HostingID:   m.HostingID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		Price:       m.Price,
		Period:      catalog.TariffPeriod(m.Period),
		IsActive:    m.IsActive,
	}
}

// TariffModelFromDomain creates a persistence model from a domain Tariff entity.
func TariffModelFromDomain(t *catalog.Tariff) *TariffModel {
	m := &TariffModel{
		HostingID:   t.HostingID,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
		Price:       t.Price,
		Period:      string(t.Period),
		IsActive:    t.IsActive,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// ReferenceModel is the persistence model shared by all reference taxonomies.
// It has no fixed table; callers select the table of the reference kind.
type ReferenceModel struct {
	BaseModel
	Name string `gorm:"type:varchar(255);not null"`
	Slug string `gorm:"type:varchar(255);not null"`
}

// ToDomain converts the persistence model to a domain Reference entity.
func (m *ReferenceModel) ToDomain(kind catalog.ReferenceKind) *catalog.Reference {
	return &catalog.Reference{
		BaseEntity: m.BaseModel.ToDomain(),
		Kind:       kind,
		Name:       m.Name,
		Slug:       m.Slug,
	}
}

// ReferenceModelFromDomain creates a persistence model from a domain Reference entity.
func ReferenceModelFromDomain(r *catalog.Reference) *ReferenceModel {
	m := &ReferenceModel{
		Name: r.Name,
		Slug: r.Slug,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// ContentBlockModel is the persistence model for the ContentBlock domain entity.
type ContentBlockModel struct {
	BaseModel
	Key       string `gorm:"column:key;type:varchar(255);not null;uniqueIndex"`
	Title     string `gorm:"type:varchar(255)"`
	Content   string `gorm:"type:text"`
	Type      string `gorm:"type:varchar(50);not null;default:'text'"`
	IsActive  bool   `gorm:"not null;default:false"`
	SortOrder int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ContentBlockModel) TableName() string {
	return "content_blocks"
}

// ToDomain converts the persistence model to a domain ContentBlock entity.
func (m *ContentBlockModel) ToDomain() *catalog.ContentBlock {
	return &catalog.ContentBlock{
		BaseEntity: m.BaseModel.ToDomain(),
		Key:        m.Key,
		Title:      m.Title,
		Content:    m.Content,
		Type:       m.Type,
		IsActive:   m.IsActive,
		SortOrder:  m.SortOrder,
	}
}

// ContentBlockModelFromDomain creates a persistence model from a domain ContentBlock entity.
func ContentBlockModelFromDomain(b *catalog.ContentBlock) *ContentBlockModel {
	m := &ContentBlockModel{
		Key:       b.Key,
		Title:     b.Title,
		Content:   b.Content,
		Type:      b.Type,
		IsActive:  b.IsActive,
		SortOrder: b.SortOrder,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}
