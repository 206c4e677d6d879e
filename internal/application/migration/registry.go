package migrationapp

import (
	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
)

// EntityKind names a migrated entity type in the registry and the run report
type EntityKind string

const (
	KindHosting      EntityKind = "hostings"
	KindTariff       EntityKind = "tariffs"
	KindContentBlock EntityKind = "content_blocks"
)

// ReferenceEntityKind returns the registry kind of a reference taxonomy
func ReferenceEntityKind(kind catalog.ReferenceKind) EntityKind {
	return EntityKind(kind)
}

// Registry maps legacy integer keys to target IDs, per entity kind, for one run.
// Entries are never overwritten or removed.
type Registry struct {
	entries map[EntityKind]map[int64]uuid.UUID
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[EntityKind]map[int64]uuid.UUID)}
}

// Set records the target ID of a legacy row. The first write wins; it reports whether id was stored.
func (r *Registry) Set(kind EntityKind, legacyID int64, id uuid.UUID) bool {
	byID, ok := r.entries[kind]
	if !ok {
		byID = make(map[int64]uuid.UUID)
		r.entries[kind] = byID
	}
	if _, exists := byID[legacyID]; exists {
		return false
	}
	byID[legacyID] = id
	return true
}

// Get returns the target ID of a legacy row
func (r *Registry) Get(kind EntityKind, legacyID int64) (uuid.UUID, bool) {
	id, ok := r.entries[kind][legacyID]
	return id, ok
}

// Len returns the number of mapped rows of kind
func (r *Registry) Len(kind EntityKind) int {
	return len(r.entries[kind])
}

// Snapshot copies the registry into a JSON friendly form: kind -> legacy id -> target id
func (r *Registry) Snapshot() map[EntityKind]map[int64]string {
	snapshot := make(map[EntityKind]map[int64]string, len(r.entries))
	for kind, byID := range r.entries {
		ids := make(map[int64]string, len(byID))
		for legacyID, id := range byID {
			ids[legacyID] = id.String()
		}
		snapshot[kind] = ids
	}
	return snapshot
}
