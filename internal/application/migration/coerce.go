package migrationapp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hostcatalog/backend/internal/infrastructure/legacy"
	"github.com/shopspring/decimal"
)

// legacyTimeLayouts are the string timestamp formats found in the legacy tables
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// CoerceBool converts a legacy flag. Only true and the number 1 are true.
func CoerceBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string, []byte:
		return false
	}
	f, ok := numeric(v)
	return ok && f == 1
}

// CoerceTime converts a legacy timestamp. Missing or falsy values become now.
// Unparseable strings yield the zero time rather than an error.
func CoerceTime(v any, now time.Time) time.Time {
	switch t := v.(type) {
	case nil:
		return now
	case time.Time:
		if t.IsZero() {
			return now
		}
		return t
	case *time.Time:
		if t == nil || t.IsZero() {
			return now
		}
		return *t
	case bool:
		return now
	case []byte:
		return CoerceTime(string(t), now)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return now
		}
		return parseLegacyTime(s)
	}
	if f, ok := numeric(v); ok {
		if f == 0 {
			return now
		}
		// numeric timestamps are unix seconds
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return now
}

func parseLegacyTime(s string) time.Time {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CoerceDecimal converts a numeric or numeric-string legacy value.
// present is false for NULL and blank strings.
func CoerceDecimal(v any) (d decimal.Decimal, present bool, err error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false, nil
	case decimal.Decimal:
		return n, true, nil
	case []byte:
		return CoerceDecimal(string(n))
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.Zero, false, nil
		}
		// legacy prices sometimes use a decimal comma
		s = strings.ReplaceAll(s, ",", ".")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, true, fmt.Errorf("%q is not a number", n)
		}
		return d, true, nil
	case float64:
		return decimal.NewFromFloat(n), true, nil
	case float32:
		return decimal.NewFromFloat32(n), true, nil
	case bool:
		return decimal.Zero, true, fmt.Errorf("%v is not a number", n)
	}
	if i, ok := legacy.ToInt64(v); ok {
		return decimal.NewFromInt(i), true, nil
	}
	return decimal.Zero, true, fmt.Errorf("%v (%T) is not a number", v, v)
}

// CoerceString converts a legacy text value; NULL becomes ""
func CoerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// CoerceInt converts an integer-like legacy value; anything else becomes 0
func CoerceInt(v any) int {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	if n, ok := legacy.ToInt64(v); ok {
		return int(n)
	}
	return 0
}

// numeric reports the float value of any Go number type
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	}
	if i, ok := legacy.ToInt64(v); ok {
		if _, isString := v.(string); isString {
			return 0, false
		}
		return float64(i), true
	}
	return 0, false
}

// formatLegacyValue renders a legacy value for messages
func formatLegacyValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if n, ok := legacy.ToInt64(v); ok {
		return strconv.FormatInt(n, 10)
	}
	return CoerceString(v)
}
