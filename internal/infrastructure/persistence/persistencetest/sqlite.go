// Package persistencetest provides an in-memory target database for tests.
package persistencetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const hostingsDDL = `
	CREATE TABLE hostings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		website_url TEXT,
		logo_url TEXT,
		image_url TEXT,
		is_active INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`

const tariffsDDL = `
	CREATE TABLE tariffs (
		id TEXT PRIMARY KEY,
		hosting_id TEXT NOT NULL REFERENCES hostings(id),
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		price TEXT NOT NULL,
		period TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(hosting_id, name)
	)`

const contentBlocksDDL = `
	CREATE TABLE content_blocks (
		id TEXT PRIMARY KEY,
		"key" TEXT NOT NULL UNIQUE,
		title TEXT,
		content TEXT,
		type TEXT NOT NULL DEFAULT 'text',
		is_active INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`

// NewDB opens a fresh in-memory SQLite database with the catalog tables
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on the same data
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, ddl := range []string{hostingsDDL, tariffsDDL, contentBlocksDDL} {
		require.NoError(t, db.Exec(ddl).Error)
	}

	for _, kind := range catalog.ReferenceKinds() {
		require.NoError(t, db.Exec(fmt.Sprintf(`
			CREATE TABLE %s (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				slug TEXT NOT NULL UNIQUE,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`, kind.TableName())).Error)

		require.NoError(t, db.Exec(fmt.Sprintf(`
			CREATE TABLE %s (
				tariff_id TEXT NOT NULL REFERENCES tariffs(id),
				%s TEXT NOT NULL REFERENCES %s(id),
				PRIMARY KEY (tariff_id, %s)
			)`, kind.JunctionTable(), kind.JunctionColumn(), kind.TableName(), kind.JunctionColumn())).Error)
	}

	return db
}

// Count returns the number of rows in table
func Count(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}
