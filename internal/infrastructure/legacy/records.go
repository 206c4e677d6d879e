package legacy

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Legacy columns are loosely typed: flags arrive as 0/1 or booleans, prices as numbers or
// strings, timestamps as strings, dates or NULL. Records keep them as returned by the driver
// and leave coercion to the field mapper.

// HostingRecord is a row of the legacy hostings table
type HostingRecord struct {
	ID          int64
	Name        any
	Slug        any
	Description any
	Logo        any
	IsActive    any
	CreatedAt   any
	UpdatedAt   any
}

// TariffRecord is a row of the legacy tariffs table
type TariffRecord struct {
	ID          int64
	HostingID   any
	Name        any
	Slug        any
	Description any
	Price       any
	Period      any
	IsActive    any
	CreatedAt   any
	UpdatedAt   any
}

// ReferenceRecord is a row of one of the legacy reference tables (cms, countries, ...)
type ReferenceRecord struct {
	ID        int64
	Name      any
	Slug      any
	CreatedAt any
	UpdatedAt any
}

// ContentBlockRecord is a row of the legacy content_blocks table
type ContentBlockRecord struct {
	ID        int64
	Key       any
	Title     any
	Content   any
	Type      any
	IsActive  any
	SortOrder any
	CreatedAt any
	UpdatedAt any
}

// RelationRecord is a row of a legacy tariff junction table
type RelationRecord struct {
	TariffID    int64
	ReferenceID int64
}

// row is one legacy row keyed by column name
type row map[string]any

// value returns the column value with driver-specific types reduced to plain Go values.
// Absent columns are nil.
func (r row) value(column string) any {
	v, ok := r[column]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case pgtype.Numeric:
		return numericValue(n)
	case *pgtype.Numeric:
		if n == nil {
			return nil
		}
		return numericValue(*n)
	}
	if valuer, ok := v.(driver.Valuer); ok {
		plain, err := valuer.Value()
		if err != nil {
			return nil
		}
		return plain
	}
	return v
}

// numericValue turns a finite NUMERIC into a decimal.Decimal; NaN and infinities keep their text form
func numericValue(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		plain, err := n.Value()
		if err != nil {
			return nil
		}
		return plain
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// id returns an integer key column; legacy ids are serial, bigserial or occasionally text
func (r row) id(column string) (int64, error) {
	v := r.value(column)
	if n, ok := ToInt64(v); ok {
		return n, nil
	}
	return 0, fmt.Errorf("column %s: expected integer id, got %T(%v)", column, v, v)
}

// ToInt64 converts an integer-like legacy value (any int width, integral float or decimal, numeric string)
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case int:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case float32:
		return ToInt64(float64(n))
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case []byte:
		return ToInt64(string(n))
	case decimal.Decimal:
		if !n.IsInteger() || !n.BigInt().IsInt64() {
			return 0, false
		}
		return n.IntPart(), true
	default:
		return 0, false
	}
}
