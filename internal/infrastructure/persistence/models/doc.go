// Package models contains GORM-specific persistence models that map to the target catalog tables.
// These models are separate from domain entities to keep the domain layer free of ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by every table
//   - catalog.go: hostings, tariffs, reference taxonomies and content blocks
package models
