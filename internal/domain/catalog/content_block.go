package catalog

import (
	"regexp"
	"strings"

	"github.com/hostcatalog/backend/internal/domain/shared"
)

// DefaultContentBlockType is used when a legacy block has no type
const DefaultContentBlockType = "text"

var (
	contentBlockKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	nonKeyCharsPattern     = regexp.MustCompile(`[^a-z0-9_]`)
	repeatedUnderscores    = regexp.MustCompile(`_+`)
)

// ContentBlock is an editable block of site content addressed by a snake_case key
type ContentBlock struct {
	shared.BaseEntity
	Key       string
	Title     string
	Content   string
	Type      string
	IsActive  bool
	SortOrder int
}

// IsValidContentBlockKey reports whether key is snake_case and does not start or end with an underscore
func IsValidContentBlockKey(key string) bool {
	return contentBlockKeyPattern.MatchString(key)
}

// DeriveContentBlockKey builds a key from a title. The result may be empty.
func DeriveContentBlockKey(title string) string {
	key := strings.ReplaceAll(GenerateSlug(title), "-", "_")
	key = nonKeyCharsPattern.ReplaceAllString(key, "")
	key = repeatedUnderscores.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}
