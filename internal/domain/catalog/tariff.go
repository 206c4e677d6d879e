package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/hostcatalog/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TariffPeriod is the billing period of a tariff
type TariffPeriod string

const (
	TariffPeriodMonth TariffPeriod = "MONTH"
	TariffPeriodYear  TariffPeriod = "YEAR"
)

// Legacy spellings of the billing periods, compared case-insensitively
var (
	yearlyPeriodNames  = []string{"year", "год"}
	monthlyPeriodNames = []string{"month", "месяц"}
)

// ParseTariffPeriod resolves a legacy period value.
// Anything that is not a yearly spelling falls back to MONTH.
func ParseTariffPeriod(value string) TariffPeriod {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, name := range yearlyPeriodNames {
		if v == name {
			return TariffPeriodYear
		}
	}
	return TariffPeriodMonth
}

// IsKnownTariffPeriod reports whether value is a recognized spelling of either period.
// ParseTariffPeriod maps unknown values to MONTH; callers use this to flag them.
func IsKnownTariffPeriod(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, name := range append(yearlyPeriodNames, monthlyPeriodNames...) {
		if v == name {
			return true
		}
	}
	return false
}

// IsValid checks if the period is one of the known values
func (p TariffPeriod) IsValid() bool {
	return p == TariffPeriodMonth || p == TariffPeriodYear
}

// Tariff is a priced plan offered by a hosting
type Tariff struct {
	shared.BaseEntity
	HostingID   uuid.UUID
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Period      TariffPeriod
	IsActive    bool
}
