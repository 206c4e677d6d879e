// Package legacy reads the catalog of the legacy PostgreSQL database.
// The legacy store is only ever queried, never written.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hostcatalog/backend/internal/domain/catalog"
	"github.com/hostcatalog/backend/internal/infrastructure/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// undefinedTable is the SQLSTATE of "relation does not exist"
const undefinedTable = "42P01"

// ErrTableNotFound is returned when a legacy table does not exist.
// Callers treat it as an empty table.
var ErrTableNotFound = errors.New("legacy table does not exist")

// Querier is the part of *pgxpool.Pool the Reader needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Connect opens a connection pool to the legacy database and pings it
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid legacy database configuration: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifetime) * time.Minute
	poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleTime) * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping legacy database: %w", err)
	}
	return pool, nil
}

// Reader reads legacy catalog tables
type Reader struct {
	db     Querier
	schema string
	logger *zap.Logger
}

// NewReader creates a Reader over db. Tables are looked up in schema; empty means public.
func NewReader(db Querier, schema string, logger *zap.Logger) *Reader {
	if schema == "" {
		schema = "public"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{db: db, schema: schema, logger: logger}
}

// Hostings reads all legacy hostings ordered by id
func (r *Reader) Hostings(ctx context.Context) ([]HostingRecord, error) {
	rows, err := r.selectAll(ctx, "hostings", "id")
	if err != nil {
		return nil, err
	}
	records := make([]HostingRecord, 0, len(rows))
	for _, row := range rows {
		id, err := row.id("id")
		if err != nil {
			return nil, fmt.Errorf("hostings: %w", err)
		}
		records = append(records, HostingRecord{
			ID:          id,
			Name:        row.value("name"),
			Slug:        row.value("slug"),
			Description: row.value("description"),
			Logo:        row.value("logo"),
			IsActive:    row.value("is_active"),
			CreatedAt:   row.value("created_at"),
			UpdatedAt:   row.value("updated_at"),
		})
	}
	return records, nil
}

// Tariffs reads all legacy tariffs ordered by id
func (r *Reader) Tariffs(ctx context.Context) ([]TariffRecord, error) {
	rows, err := r.selectAll(ctx, "tariffs", "id")
	if err != nil {
		return nil, err
	}
	records := make([]TariffRecord, 0, len(rows))
	for _, row := range rows {
		id, err := row.id("id")
		if err != nil {
			return nil, fmt.Errorf("tariffs: %w", err)
		}
		records = append(records, TariffRecord{
			ID:          id,
			HostingID:   row.value("hosting_id"),
			Name:        row.value("name"),
			Slug:        row.value("slug"),
			Description: row.value("description"),
			Price:       row.value("price"),
			Period:      row.value("period"),
			IsActive:    row.value("is_active"),
			CreatedAt:   row.value("created_at"),
			UpdatedAt:   row.value("updated_at"),
		})
	}
	return records, nil
}

// References reads the legacy table of one reference kind ordered by id
func (r *Reader) References(ctx context.Context, kind catalog.ReferenceKind) ([]ReferenceRecord, error) {
	rows, err := r.selectAll(ctx, kind.TableName(), "id")
	if err != nil {
		return nil, err
	}
	records := make([]ReferenceRecord, 0, len(rows))
	for _, row := range rows {
		id, err := row.id("id")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind.TableName(), err)
		}
		records = append(records, ReferenceRecord{
			ID:        id,
			Name:      row.value("name"),
			Slug:      row.value("slug"),
			CreatedAt: row.value("created_at"),
			UpdatedAt: row.value("updated_at"),
		})
	}
	return records, nil
}

// ContentBlocks reads all legacy content blocks ordered by id
func (r *Reader) ContentBlocks(ctx context.Context) ([]ContentBlockRecord, error) {
	rows, err := r.selectAll(ctx, "content_blocks", "id")
	if err != nil {
		return nil, err
	}
	records := make([]ContentBlockRecord, 0, len(rows))
	for _, row := range rows {
		id, err := row.id("id")
		if err != nil {
			return nil, fmt.Errorf("content_blocks: %w", err)
		}
		records = append(records, ContentBlockRecord{
			ID:        id,
			Key:       row.value("key"),
			Title:     row.value("title"),
			Content:   row.value("content"),
			Type:      row.value("type"),
			IsActive:  row.value("is_active"),
			SortOrder: row.value("sort_order"),
			CreatedAt: row.value("created_at"),
			UpdatedAt: row.value("updated_at"),
		})
	}
	return records, nil
}

// TariffRelations reads the legacy junction pairs linking tariffs to references of kind.
// Pairs with a NULL or non-integer side are dropped with a warning.
func (r *Reader) TariffRelations(ctx context.Context, kind catalog.ReferenceKind) ([]RelationRecord, error) {
	rows, err := r.selectAll(ctx, kind.JunctionTable(), "tariff_id")
	if err != nil {
		return nil, err
	}
	column := kind.JunctionColumn()
	records := make([]RelationRecord, 0, len(rows))
	for _, row := range rows {
		tariffID, err := row.id("tariff_id")
		if err != nil {
			r.logger.Warn("Skipping malformed junction row", zap.String("table", kind.JunctionTable()), zap.Error(err))
			continue
		}
		refID, err := row.id(column)
		if err != nil {
			r.logger.Warn("Skipping malformed junction row", zap.String("table", kind.JunctionTable()), zap.Error(err))
			continue
		}
		records = append(records, RelationRecord{TariffID: tariffID, ReferenceID: refID})
	}
	return records, nil
}

// selectAll reads every column of a legacy table so that absent optional columns
// surface as nil instead of failing the query
func (r *Reader) selectAll(ctx context.Context, table, orderBy string) ([]row, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		pgx.Identifier{r.schema, table}.Sanitize(),
		pgx.Identifier{orderBy}.Sanitize(),
	)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, classify(table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, classify(table, err)
	}

	result := make([]row, len(maps))
	for i, m := range maps {
		result[i] = row(m)
	}
	r.logger.Debug("Read legacy table", zap.String("table", table), zap.Int("rows", len(result)))
	return result, nil
}

func classify(table string, err error) error {
	if IsTableNotFound(err) {
		return fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	return fmt.Errorf("failed to read legacy table %s: %w", table, err)
}

// IsTableNotFound reports whether err is a missing-relation error
func IsTableNotFound(err error) bool {
	if errors.Is(err, ErrTableNotFound) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
