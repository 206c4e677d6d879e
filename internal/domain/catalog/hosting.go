package catalog

import (
	"strings"
	"time"

	"github.com/hostcatalog/backend/internal/domain/shared"
)

// Hosting is a hosting provider listed in the catalog
type Hosting struct {
	shared.BaseEntity
	Name        string
	Slug        string
	Description string
	WebsiteURL  string
	LogoURL     string // logo reference carried over from the legacy catalog
	ImageURL    string // primary image in object storage
	IsActive    bool
}

// HasImage reports whether the hosting already points at a migrated image
func (h *Hosting) HasImage() bool {
	return strings.TrimSpace(h.ImageURL) != ""
}

// HasLogo reports whether the hosting has a legacy logo reference to migrate
func (h *Hosting) HasLogo() bool {
	return strings.TrimSpace(h.LogoURL) != ""
}

// SetImage points the hosting at a migrated image
func (h *Hosting) SetImage(url string) {
	h.ImageURL = url
	h.UpdatedAt = time.Now()
}
