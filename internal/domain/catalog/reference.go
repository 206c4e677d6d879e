package catalog

import (
	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/shared"
)

// ReferenceKind identifies one of the reference taxonomies tariffs link to
type ReferenceKind string

const (
	ReferenceCMS                 ReferenceKind = "cms"
	ReferenceControlPanel        ReferenceKind = "control_panels"
	ReferenceCountry             ReferenceKind = "countries"
	ReferenceDataStore           ReferenceKind = "data_stores"
	ReferenceOperationSystem     ReferenceKind = "operation_systems"
	ReferenceProgrammingLanguage ReferenceKind = "programming_languages"
)

// ReferenceKinds returns all reference kinds in migration order
func ReferenceKinds() []ReferenceKind {
	return []ReferenceKind{
		ReferenceCMS,
		ReferenceControlPanel,
		ReferenceCountry,
		ReferenceDataStore,
		ReferenceOperationSystem,
		ReferenceProgrammingLanguage,
	}
}

// IsValid checks if the kind is a known reference kind
func (k ReferenceKind) IsValid() bool {
	for _, valid := range ReferenceKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// TableName returns the table holding references of this kind
func (k ReferenceKind) TableName() string {
	return string(k)
}

// EntityName returns the human readable entity name used in messages
func (k ReferenceKind) EntityName() string {
	switch k {
	case ReferenceCMS:
		return "CMS"
	case ReferenceControlPanel:
		return "ControlPanel"
	case ReferenceCountry:
		return "Country"
	case ReferenceDataStore:
		return "DataStore"
	case ReferenceOperationSystem:
		return "OperationSystem"
	case ReferenceProgrammingLanguage:
		return "ProgrammingLanguage"
	default:
		return string(k)
	}
}

// JunctionTable returns the tariff junction table for this kind
func (k ReferenceKind) JunctionTable() string {
	return "tariff_" + string(k)
}

// JunctionColumn returns the column of the junction table that references this kind
func (k ReferenceKind) JunctionColumn() string {
	switch k {
	case ReferenceCMS:
		return "cms_id"
	case ReferenceControlPanel:
		return "control_panel_id"
	case ReferenceCountry:
		return "country_id"
	case ReferenceDataStore:
		return "data_store_id"
	case ReferenceOperationSystem:
		return "operation_system_id"
	case ReferenceProgrammingLanguage:
		return "programming_language_id"
	default:
		return string(k) + "_id"
	}
}

// Reference is an entry of a reference taxonomy (CMS, country, OS, ...)
type Reference struct {
	shared.BaseEntity
	Kind ReferenceKind
	Name string
	Slug string
}

// TariffRelation links a tariff to a reference of the given kind
type TariffRelation struct {
	Kind        ReferenceKind
	TariffID    uuid.UUID
	ReferenceID uuid.UUID
}
