package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/domain/shared"
	"github.com/hostcatalog/backend/internal/infrastructure/persistence/persistencetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newHosting(slug string) *catalog.Hosting {
	ts := time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC)
	return &catalog.Hosting{
		BaseEntity:  shared.NewBaseEntityAt(ts, ts),
		Name:        "Hosting " + slug,
		Slug:        slug,
		Description: "desc",
		WebsiteURL:  slug,
		LogoURL:     "https://old.example.com/" + slug + ".png",
		IsActive:    true,
	}
}

func TestGormHostingRepository(t *testing.T) {
	db := persistencetest.NewDB(t)
	repo := NewGormHostingRepository(db)
	ctx := context.Background()

	t.Run("create and find by slug", func(t *testing.T) {
		h := newHosting("sub.example.com")
		require.NoError(t, repo.Create(ctx, h))

		found, err := repo.FindBySlug(ctx, "sub.example.com")
		require.NoError(t, err)
		assert.Equal(t, h.ID, found.ID)
		assert.Equal(t, "Hosting sub.example.com", found.Name)
		assert.Equal(t, h.LogoURL, found.LogoURL)
		assert.True(t, found.IsActive)
		assert.False(t, found.HasImage())
	})

	t.Run("missing slug returns ErrNotFound", func(t *testing.T) {
		_, err := repo.FindBySlug(ctx, "absent")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate slug fails", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newHosting("dup")))
		err := repo.Create(ctx, newHosting("dup"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create hosting dup")
	})

	t.Run("update image", func(t *testing.T) {
		h := newHosting("with-image")
		require.NoError(t, repo.Create(ctx, h))

		require.NoError(t, repo.UpdateImage(ctx, h.ID, "https://cdn.example.com/hostings/with-image/logo.png"))

		found, err := repo.FindBySlug(ctx, "with-image")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/hostings/with-image/logo.png", found.ImageURL)
	})

	t.Run("update image of unknown hosting", func(t *testing.T) {
		err := repo.UpdateImage(ctx, uuid.New(), "x")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTariffRepository(t *testing.T) {
	db := persistencetest.NewDB(t)
	hostings := NewGormHostingRepository(db)
	repo := NewGormTariffRepository(db)
	ctx := context.Background()

	h := newHosting("acme")
	require.NoError(t, hostings.Create(ctx, h))

	newTariff := func(name, slug string) *catalog.Tariff {
		return &catalog.Tariff{
			BaseEntity: shared.NewBaseEntity(),
			HostingID:  h.ID,
			Name:       name,
			Slug:       slug,
			Price:      decimal.RequireFromString("500.00"),
			Period:     catalog.TariffPeriodMonth,
			IsActive:   true,
		}
	}

	require.NoError(t, repo.Create(ctx, newTariff("Start", "start")))
	require.NoError(t, repo.Create(ctx, newTariff("Start 2", "start-2")))
	require.NoError(t, repo.Create(ctx, newTariff("Starter", "starter")))

	t.Run("find by hosting and name", func(t *testing.T) {
		found, err := repo.FindByHostingAndName(ctx, h.ID, "Start")
		require.NoError(t, err)
		assert.Equal(t, "start", found.Slug)
		assert.True(t, decimal.NewFromInt(500).Equal(found.Price))
		assert.Equal(t, catalog.TariffPeriodMonth, found.Period)
	})

	t.Run("same name under another hosting is not found", func(t *testing.T) {
		_, err := repo.FindByHostingAndName(ctx, uuid.New(), "Start")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("list slugs sharing a base", func(t *testing.T) {
		slugs, err := repo.ListSlugs(ctx, "start")
		require.NoError(t, err)
		assert.Equal(t, []string{"start", "start-2"}, slugs)
		assert.Equal(t, "start-3", catalog.EnsureUniqueSlug("start", slugs))
	})
}

func TestGormReferenceRepository(t *testing.T) {
	db := persistencetest.NewDB(t)
	repo := NewGormReferenceRepository(db)
	ctx := context.Background()

	for _, kind := range catalog.ReferenceKinds() {
		t.Run(string(kind), func(t *testing.T) {
			ref := &catalog.Reference{
				BaseEntity: shared.NewBaseEntity(),
				Kind:       kind,
				Name:       "Linux",
				Slug:       "linux",
			}
			require.NoError(t, repo.Create(ctx, ref))

			found, err := repo.FindBySlug(ctx, kind, "linux")
			require.NoError(t, err)
			assert.Equal(t, ref.ID, found.ID)
			assert.Equal(t, kind, found.Kind)
			assert.Equal(t, int64(1), persistencetest.Count(t, db, kind.TableName()))
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := repo.FindBySlug(ctx, catalog.ReferenceKind("plugins"), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown reference kind")
	})

	t.Run("missing slug", func(t *testing.T) {
		_, err := repo.FindBySlug(ctx, catalog.ReferenceCMS, "wordpress")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormContentBlockRepository(t *testing.T) {
	db := persistencetest.NewDB(t)
	repo := NewGormContentBlockRepository(db)
	ctx := context.Background()

	block := &catalog.ContentBlock{
		BaseEntity: shared.NewBaseEntity(),
		Key:        "glavnaya_stranitsa",
		Title:      "Главная страница",
		Content:    "<p>hi</p>",
		Type:       "text",
		IsActive:   true,
		SortOrder:  3,
	}
	require.NoError(t, repo.Create(ctx, block))

	found, err := repo.FindByKey(ctx, "glavnaya_stranitsa")
	require.NoError(t, err)
	assert.Equal(t, block.ID, found.ID)
	assert.Equal(t, 3, found.SortOrder)

	require.NoError(t, repo.UpdateType(ctx, block.ID, "html"))
	found, err = repo.FindByKey(ctx, "glavnaya_stranitsa")
	require.NoError(t, err)
	assert.Equal(t, "html", found.Type)

	_, err = repo.FindByKey(ctx, "absent")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateType(ctx, uuid.New(), "html"), shared.ErrNotFound)
}

func TestGormTariffRelationRepository(t *testing.T) {
	db := persistencetest.NewDB(t)
	ctx := context.Background()

	h := newHosting("acme")
	require.NoError(t, NewGormHostingRepository(db).Create(ctx, h))
	tariff := &catalog.Tariff{
		BaseEntity: shared.NewBaseEntity(),
		HostingID:  h.ID,
		Name:       "Start",
		Slug:       "start",
		Price:      decimal.NewFromInt(100),
		Period:     catalog.TariffPeriodYear,
	}
	require.NoError(t, NewGormTariffRepository(db).Create(ctx, tariff))
	ref := &catalog.Reference{BaseEntity: shared.NewBaseEntity(), Kind: catalog.ReferenceCountry, Name: "Germany", Slug: "germany"}
	require.NoError(t, NewGormReferenceRepository(db).Create(ctx, ref))

	repo := NewGormTariffRelationRepository(db)
	rel := catalog.TariffRelation{Kind: catalog.ReferenceCountry, TariffID: tariff.ID, ReferenceID: ref.ID}

	created, err := repo.Link(ctx, rel)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Link(ctx, rel)
	require.NoError(t, err)
	assert.False(t, created, "linking an existing pair is a no-op")

	assert.Equal(t, int64(1), persistencetest.Count(t, db, "tariff_countries"))
}

// newMockGormDB creates a GORM postgres DB over sqlmock to check generated SQL
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormTariffRelationRepository_PostgresSQL(t *testing.T) {
	db, mock := newMockGormDB(t)
	repo := NewGormTariffRelationRepository(db)

	tariffID, refID := uuid.New(), uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "tariff_operation_systems" ("operation_system_id","tariff_id") VALUES ($1,$2) ON CONFLICT DO NOTHING`)).
		WithArgs(refID, tariffID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Link(context.Background(), catalog.TariffRelation{
		Kind:        catalog.ReferenceOperationSystem,
		TariffID:    tariffID,
		ReferenceID: refID,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReferenceRepository_PostgresSQL(t *testing.T) {
	db, mock := newMockGormDB(t)
	repo := NewGormReferenceRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "control_panels" WHERE slug = \$1 LIMIT \$2`).
		WithArgs("cpanel", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
			AddRow(id, "cPanel", "cpanel", now, now))

	ref, err := repo.FindBySlug(context.Background(), catalog.ReferenceControlPanel, "cpanel")
	require.NoError(t, err)
	assert.Equal(t, id, ref.ID)
	assert.Equal(t, catalog.ReferenceControlPanel, ref.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
