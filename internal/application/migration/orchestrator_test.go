package migrationapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/infrastructure/legacy"
	"github.com/hostcatalog/backend/internal/infrastructure/media"
	"github.com/hostcatalog/backend/internal/infrastructure/persistence"
	"github.com/hostcatalog/backend/internal/infrastructure/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// fakeSource serves fixed legacy rows; errs is keyed by legacy table name
type fakeSource struct {
	hostings      []legacy.HostingRecord
	tariffs       []legacy.TariffRecord
	references    map[catalog.ReferenceKind][]legacy.ReferenceRecord
	contentBlocks []legacy.ContentBlockRecord
	relations     map[catalog.ReferenceKind][]legacy.RelationRecord
	errs          map[string]error
}

func (s *fakeSource) Hostings(context.Context) ([]legacy.HostingRecord, error) {
	return s.hostings, s.errs["hostings"]
}

func (s *fakeSource) Tariffs(context.Context) ([]legacy.TariffRecord, error) {
	return s.tariffs, s.errs["tariffs"]
}

func (s *fakeSource) References(_ context.Context, kind catalog.ReferenceKind) ([]legacy.ReferenceRecord, error) {
	return s.references[kind], s.errs[kind.TableName()]
}

func (s *fakeSource) ContentBlocks(context.Context) ([]legacy.ContentBlockRecord, error) {
	return s.contentBlocks, s.errs["content_blocks"]
}

func (s *fakeSource) TariffRelations(_ context.Context, kind catalog.ReferenceKind) ([]legacy.RelationRecord, error) {
	return s.relations[kind], s.errs[kind.JunctionTable()]
}

func missingTable(table string) error {
	return fmt.Errorf("%s: %w", table, legacy.ErrTableNotFound)
}

func newFixtureSource() *fakeSource {
	return &fakeSource{
		references: map[catalog.ReferenceKind][]legacy.ReferenceRecord{
			catalog.ReferenceCMS: {
				{ID: 1, Name: "WordPress", Slug: "wordpress"},
				{ID: 2, Name: "Joomla"},
			},
			catalog.ReferenceCountry: {
				{ID: 1, Name: "Россия"},
			},
		},
		hostings: []legacy.HostingRecord{
			{ID: 1, Name: "Beget", Slug: "beget.com", Logo: "https://old.example.com/beget.png", IsActive: int64(1)},
			{ID: 2, Name: "Timeweb", IsActive: true},
		},
		tariffs: []legacy.TariffRecord{
			{ID: 10, HostingID: int64(1), Name: "Start", Price: "500.00", Period: "month", IsActive: 1},
			{ID: 11, HostingID: int64(2), Name: "Start", Price: 300, Period: "year"},
			{ID: 12, HostingID: int64(999), Name: "Orphan", Price: 100, Period: "month"},
			{ID: 13, HostingID: int64(1), Name: "Free", Price: "0", Period: "month"},
		},
		relations: map[catalog.ReferenceKind][]legacy.RelationRecord{
			catalog.ReferenceCMS: {
				{TariffID: 10, ReferenceID: 1},
				{TariffID: 11, ReferenceID: 2},
				{TariffID: 10, ReferenceID: 1},
				{TariffID: 12, ReferenceID: 1},
			},
			catalog.ReferenceCountry: {
				{TariffID: 10, ReferenceID: 1},
			},
		},
		contentBlocks: []legacy.ContentBlockRecord{
			{ID: 1, Title: "Главная страница", Content: "<p>Welcome</p>"},
			{ID: 2, Key: "invalid-key-format", Title: "Broken"},
		},
	}
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Hostings:      persistence.NewGormHostingRepository(db),
		Tariffs:       persistence.NewGormTariffRepository(db),
		References:    persistence.NewGormReferenceRepository(db),
		ContentBlocks: persistence.NewGormContentBlockRepository(db),
		Relations:     persistence.NewGormTariffRelationRepository(db),
	}
}

func newTestOrchestrator(t *testing.T, source Source, repos Repositories, opts Options, options ...Option) *Orchestrator {
	clock := WithClock(func() time.Time { return fixedNow })
	return NewOrchestrator(source, repos, opts, zaptest.NewLogger(t), append([]Option{clock}, options...)...)
}

func TestOrchestrator_Run(t *testing.T) {
	db := persistencetest.NewDB(t)
	ctx := context.Background()

	result, err := newTestOrchestrator(t, newFixtureSource(), newRepositories(db), Options{}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, fixedNow, result.StartedAt)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, Counters{Read: 2, Created: 2}, *result.Stats["cms"])
	assert.Equal(t, Counters{Read: 1, Created: 1}, *result.Stats["countries"])
	assert.Equal(t, Counters{Read: 2, Created: 2}, *result.Stats[StageHostings])
	assert.Equal(t, Counters{Read: 4, Created: 2, Skipped: 1, Failed: 1}, *result.Stats[StageTariffs])
	assert.Equal(t, Counters{Read: 5, Created: 3, Reused: 1, Skipped: 1}, *result.Stats[StageTariffRelations])
	assert.Equal(t, Counters{Read: 2, Created: 1, Failed: 1}, *result.Stats[StageContentBlocks])
	assert.NotContains(t, result.Stats, StageImages)

	assert.EqualValues(t, 2, persistencetest.Count(t, db, "hostings"))
	assert.EqualValues(t, 2, persistencetest.Count(t, db, "tariffs"))
	assert.EqualValues(t, 2, persistencetest.Count(t, db, "cms"))
	assert.EqualValues(t, 1, persistencetest.Count(t, db, "countries"))
	assert.EqualValues(t, 2, persistencetest.Count(t, db, "tariff_cms"))
	assert.EqualValues(t, 1, persistencetest.Count(t, db, "tariff_countries"))
	assert.EqualValues(t, 1, persistencetest.Count(t, db, "content_blocks"))

	t.Run("row errors", func(t *testing.T) {
		tariffErrors := result.ErrorsForStage(StageTariffs)
		require.Len(t, tariffErrors, 2)
		assert.Equal(t, "Tariff #12", tariffErrors[0].Subject)
		assert.Equal(t, "Hosting ID 999 not found in mapping", tariffErrors[0].Message)
		assert.Equal(t, ErrCodeMissingMapping, tariffErrors[0].Code)
		assert.Equal(t, "Tariff price must be greater than 0", tariffErrors[1].Message)

		blockErrors := result.ErrorsForStage(StageContentBlocks)
		require.Len(t, blockErrors, 1)
		assert.Equal(t, MappingCodeFormat, blockErrors[0].Code)
		assert.Len(t, result.Errors, 3)
	})

	t.Run("mapped values", func(t *testing.T) {
		hostings := persistence.NewGormHostingRepository(db)
		beget, err := hostings.FindBySlug(ctx, "beget.com")
		require.NoError(t, err)
		assert.Equal(t, "beget.com", beget.WebsiteURL)
		assert.True(t, beget.IsActive)

		timeweb, err := hostings.FindBySlug(ctx, "timeweb")
		require.NoError(t, err)

		tariffs := persistence.NewGormTariffRepository(db)
		first, err := tariffs.FindByHostingAndName(ctx, beget.ID, "Start")
		require.NoError(t, err)
		assert.Equal(t, "start", first.Slug)
		second, err := tariffs.FindByHostingAndName(ctx, timeweb.ID, "Start")
		require.NoError(t, err)
		assert.Equal(t, "start-2", second.Slug)
		assert.Equal(t, catalog.TariffPeriodYear, second.Period)

		block, err := persistence.NewGormContentBlockRepository(db).FindByKey(ctx, "glavnaya_stranitsa")
		require.NoError(t, err)
		assert.Equal(t, catalog.DefaultContentBlockType, block.Type)
	})

	t.Run("mappings snapshot", func(t *testing.T) {
		assert.Len(t, result.Mappings[KindHosting], 2)
		assert.Len(t, result.Mappings[KindTariff], 2)
		assert.NotContains(t, result.Mappings[KindTariff], int64(12))
		assert.Len(t, result.Mappings[EntityKind("cms")], 2)
	})

	t.Run("second run reuses everything", func(t *testing.T) {
		again, err := newTestOrchestrator(t, newFixtureSource(), newRepositories(db), Options{}).Run(ctx)
		require.NoError(t, err)

		for name, counters := range again.Stats {
			assert.Zero(t, counters.Created, "stage %s created rows on rerun", name)
		}
		assert.Equal(t, Counters{Read: 2, Reused: 2}, *again.Stats[StageHostings])
		assert.Equal(t, Counters{Read: 4, Reused: 2, Skipped: 1, Failed: 1}, *again.Stats[StageTariffs])
		assert.Equal(t, Counters{Read: 5, Reused: 4, Skipped: 1}, *again.Stats[StageTariffRelations])
		assert.Equal(t, Counters{Read: 2, Reused: 1, Failed: 1}, *again.Stats[StageContentBlocks])
		assert.Len(t, again.Errors, len(result.Errors))
		assert.Equal(t, result.Mappings, again.Mappings)

		assert.EqualValues(t, 2, persistencetest.Count(t, db, "hostings"))
		assert.EqualValues(t, 2, persistencetest.Count(t, db, "tariffs"))
		assert.EqualValues(t, 2, persistencetest.Count(t, db, "tariff_cms"))
	})
}

func TestOrchestrator_OrphanTariff(t *testing.T) {
	db := persistencetest.NewDB(t)
	source := &fakeSource{
		hostings: []legacy.HostingRecord{{ID: 1, Name: "Beget", Slug: "beget.com"}},
		tariffs:  []legacy.TariffRecord{{ID: 5, HostingID: int64(999), Name: "Lost", Price: 100, Period: "month"}},
	}

	result, err := newTestOrchestrator(t, source, newRepositories(db), Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats[StageHostings].Created)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, StageTariffs, result.Errors[0].Stage)
	assert.Contains(t, result.Errors[0].Message, "Hosting ID 999 not found in mapping")
	assert.EqualValues(t, 0, persistencetest.Count(t, db, "tariffs"))
}

func TestOrchestrator_HostingWithoutTariffs(t *testing.T) {
	db := persistencetest.NewDB(t)
	source := &fakeSource{
		hostings: []legacy.HostingRecord{{ID: 7, Name: "Solo Host", IsActive: int64(1)}},
	}

	result, err := newTestOrchestrator(t, source, newRepositories(db), Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, 1, result.Stats[StageHostings].Created)
	assert.Equal(t, Counters{}, *result.Stats[StageTariffs])
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Mappings[KindHosting], 1)
	assert.EqualValues(t, 1, persistencetest.Count(t, db, "hostings"))
	assert.EqualValues(t, 0, persistencetest.Count(t, db, "tariffs"))
}

func TestOrchestrator_DryRun(t *testing.T) {
	db := persistencetest.NewDB(t)

	result, err := newTestOrchestrator(t, newFixtureSource(), newRepositories(db), Options{DryRun: true}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Stats[StageHostings].Created)
	assert.Equal(t, 2, result.Stats[StageTariffs].Created)
	assert.Equal(t, Counters{Read: 5, Created: 3, Reused: 1, Skipped: 1}, *result.Stats[StageTariffRelations])
	assert.Len(t, result.Mappings[KindTariff], 2)

	for _, table := range []string{"hostings", "tariffs", "cms", "countries", "tariff_cms", "content_blocks"} {
		assert.EqualValues(t, 0, persistencetest.Count(t, db, table), table)
	}
}

func TestOrchestrator_MissingLegacyTable(t *testing.T) {
	db := persistencetest.NewDB(t)
	source := newFixtureSource()
	source.errs = map[string]error{
		"tariffs":   missingTable("tariffs"),
		"countries": missingTable("countries"),
	}

	result, err := newTestOrchestrator(t, source, newRepositories(db), Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.Equal(t, Counters{}, *result.Stats[StageTariffs])
	assert.Equal(t, Counters{}, *result.Stats["countries"])
	assert.Equal(t, 5, result.Stats[StageTariffRelations].Skipped)
	assert.Equal(t, 2, result.Stats[StageHostings].Created)
	assert.EqualValues(t, 0, persistencetest.Count(t, db, "tariffs"))
}

func TestOrchestrator_FatalSourceError(t *testing.T) {
	db := persistencetest.NewDB(t)
	source := newFixtureSource()
	source.errs = map[string]error{"hostings": errors.New("connection refused")}

	dir := t.TempDir()
	result, err := newTestOrchestrator(t, source, newRepositories(db), Options{}, WithReporter(NewReporter(dir))).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage hostings")
	assert.Contains(t, err.Error(), "connection refused")

	require.NotNil(t, result)
	assert.Equal(t, RunStatusFailed, result.Status)
	assert.Contains(t, result.FatalError, "connection refused")
	assert.NotContains(t, result.Stats, StageTariffs)

	// stages before the failure keep their writes
	assert.EqualValues(t, 2, persistencetest.Count(t, db, "cms"))

	_, statErr := os.Stat(filepath.Join(dir, ReportFileName(result)))
	assert.NoError(t, statErr)
}

// failingHostings fails every lookup or insert depending on the configured errors
type failingHostings struct {
	catalog.HostingRepository
	findErr   error
	createErr error
}

func (r failingHostings) FindBySlug(ctx context.Context, slug string) (*catalog.Hosting, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.HostingRepository.FindBySlug(ctx, slug)
}

func (r failingHostings) Create(ctx context.Context, hosting *catalog.Hosting) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.HostingRepository.Create(ctx, hosting)
}

func TestOrchestrator_TargetErrors(t *testing.T) {
	t.Run("write failure is a row error", func(t *testing.T) {
		db := persistencetest.NewDB(t)
		repos := newRepositories(db)
		repos.Hostings = failingHostings{HostingRepository: repos.Hostings, createErr: errors.New("disk full")}

		result, err := newTestOrchestrator(t, newFixtureSource(), repos, Options{}).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, result.Stats[StageHostings].Failed)
		hostingErrors := result.ErrorsForStage(StageHostings)
		require.Len(t, hostingErrors, 2)
		assert.Equal(t, ErrCodeWriteFailed, hostingErrors[0].Code)
		assert.Contains(t, hostingErrors[0].Message, "disk full")
		assert.Equal(t, 4, result.Stats[StageTariffs].Skipped)
	})

	t.Run("lookup failure aborts the run", func(t *testing.T) {
		db := persistencetest.NewDB(t)
		repos := newRepositories(db)
		repos.Hostings = failingHostings{HostingRepository: repos.Hostings, findErr: errors.New("connection reset")}

		result, err := newTestOrchestrator(t, newFixtureSource(), repos, Options{}).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, RunStatusFailed, result.Status)
		assert.EqualValues(t, 0, persistencetest.Count(t, db, "hostings"))
	})
}

func TestOrchestrator_ContentBlockTypeUpdate(t *testing.T) {
	db := persistencetest.NewDB(t)
	ctx := context.Background()
	blocks := persistence.NewGormContentBlockRepository(db)

	existing, err := NewMapper(nil).MapContentBlock(legacy.ContentBlockRecord{Key: "footer", Title: "Footer", Type: "text"})
	require.NoError(t, err)
	require.NoError(t, blocks.Create(ctx, existing))

	source := &fakeSource{contentBlocks: []legacy.ContentBlockRecord{
		{ID: 1, Key: "footer", Title: "Footer", Type: "html"},
		{ID: 2, Key: "footer", Title: "Footer again", Type: "html"},
	}}

	t.Run("dry run leaves the type alone", func(t *testing.T) {
		result, err := newTestOrchestrator(t, source, newRepositories(db), Options{DryRun: true}).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Stats[StageContentBlocks].Updated)

		block, err := blocks.FindByKey(ctx, "footer")
		require.NoError(t, err)
		assert.Equal(t, "text", block.Type)
	})

	t.Run("type is refreshed", func(t *testing.T) {
		result, err := newTestOrchestrator(t, source, newRepositories(db), Options{}).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, Counters{Read: 2, Updated: 1, Reused: 1}, *result.Stats[StageContentBlocks])

		block, err := blocks.FindByKey(ctx, "footer")
		require.NoError(t, err)
		assert.Equal(t, "html", block.Type)
		assert.Equal(t, existing.ID, block.ID)
		assert.EqualValues(t, 1, persistencetest.Count(t, db, "content_blocks"))
	})
}

// fakeImages returns canned results per hosting slug
type fakeImages struct {
	results map[string]*media.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeImages) MigrateLogo(_ context.Context, hosting *catalog.Hosting) (*media.Result, error) {
	f.calls = append(f.calls, hosting.Slug)
	if err := f.errs[hosting.Slug]; err != nil {
		return nil, err
	}
	return f.results[hosting.Slug], nil
}

func TestOrchestrator_Images(t *testing.T) {
	source := &fakeSource{hostings: []legacy.HostingRecord{
		{ID: 1, Name: "Beget", Slug: "beget.com", Logo: "https://old.example.com/beget.png"},
		{ID: 2, Name: "Timeweb", Slug: "timeweb", Logo: "https://old.example.com/timeweb.gif"},
		{ID: 3, Name: "Reg", Slug: "reg.ru", Logo: "https://old.example.com/reg.png"},
		{ID: 4, Name: "NoLogo", Slug: "nologo"},
	}}
	newImages := func() *fakeImages {
		return &fakeImages{
			results: map[string]*media.Result{
				"beget.com": {
					URL:             "https://cdn.example.com/hostings/beget.com/logo.png",
					ThumbnailErrors: []error{&media.ThumbnailError{Size: 256, Err: errors.New("encode failed")}},
				},
				"timeweb": {URL: "https://cdn.example.com/hostings/timeweb/placeholder.png", Placeholder: true},
			},
			errs: map[string]error{"reg.ru": errors.New("placeholder failed too")},
		}
	}

	t.Run("uploads and records image urls", func(t *testing.T) {
		db := persistencetest.NewDB(t)
		ctx := context.Background()
		images := newImages()

		result, err := newTestOrchestrator(t, source, newRepositories(db), Options{}, WithImageMigrator(images)).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{"beget.com", "timeweb", "reg.ru"}, images.calls)
		assert.Equal(t, Counters{Read: 3, Created: 2, Skipped: 1, Failed: 1, Placeholders: 1}, *result.Stats[StageImages])

		imageErrors := result.ErrorsForStage(StageImages)
		require.Len(t, imageErrors, 2)
		assert.Equal(t, ErrCodeThumbnail, imageErrors[0].Code)
		assert.Equal(t, "Hosting beget.com", imageErrors[0].Subject)
		assert.Equal(t, ErrCodeImageFailed, imageErrors[1].Code)

		hostings := persistence.NewGormHostingRepository(db)
		beget, err := hostings.FindBySlug(ctx, "beget.com")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/hostings/beget.com/logo.png", beget.ImageURL)
		reg, err := hostings.FindBySlug(ctx, "reg.ru")
		require.NoError(t, err)
		assert.Empty(t, reg.ImageURL)

		t.Run("migrated images are not uploaded again", func(t *testing.T) {
			images := newImages()
			again, err := newTestOrchestrator(t, source, newRepositories(db), Options{}, WithImageMigrator(images)).Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"reg.ru"}, images.calls)
			assert.Equal(t, 3, again.Stats[StageImages].Skipped)
		})
	})

	t.Run("skip images", func(t *testing.T) {
		db := persistencetest.NewDB(t)
		images := newImages()

		result, err := newTestOrchestrator(t, source, newRepositories(db), Options{SkipImages: true}, WithImageMigrator(images)).Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, images.calls)
		assert.NotContains(t, result.Stats, StageImages)
		assert.True(t, result.SkipImages)
	})
}

func TestOrchestrator_StagesRunInStageOrder(t *testing.T) {
	db := persistencetest.NewDB(t)
	source := newFixtureSource()
	source.errs = map[string]error{"tariffs": errors.New("read timeout")}
	images := &fakeImages{results: map[string]*media.Result{
		"beget.com": {URL: "https://cdn.example.com/hostings/beget.com/logo.png"},
	}}

	result, err := newTestOrchestrator(t, source, newRepositories(db), Options{}, WithImageMigrator(images)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage tariffs")

	// everything up to the failing stage ran, nothing after it did
	assert.Contains(t, result.Stats, StageHostings)
	assert.Equal(t, []string{"beget.com"}, images.calls)
	assert.NotContains(t, result.Stats, StageTariffRelations)
	assert.NotContains(t, result.Stats, StageContentBlocks)
	assert.Equal(t, []string{
		StageReferences, StageHostings, StageImages, StageTariffs, StageTariffRelations, StageContentBlocks,
	}, StageOrder)
}
