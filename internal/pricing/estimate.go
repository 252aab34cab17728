package pricing

import (
	"strings"
	"time"

	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/shopspring/decimal"
)

// PriceUnit is the billing granularity of a provider service.
type PriceUnit string

const (
	PriceUnitPerHour    PriceUnit = "per_hour"
	PriceUnitPerDay     PriceUnit = "per_day"
	PriceUnitPerService PriceUnit = "per_service"
	PriceUnitPerKm      PriceUnit = "per_km"
	PriceUnitPerItem    PriceUnit = "per_item"
	PriceUnitPerMonth   PriceUnit = "per_month"
	PriceUnitPerWeek    PriceUnit = "per_week"
)

// PriceUnits lists every supported unit.
var PriceUnits = []PriceUnit{
	PriceUnitPerHour,
	PriceUnitPerDay,
	PriceUnitPerService,
	PriceUnitPerKm,
	PriceUnitPerItem,
	PriceUnitPerMonth,
	PriceUnitPerWeek,
}

func ParsePriceUnit(value string) (PriceUnit, error) {
	unit := PriceUnit(strings.ToLower(strings.TrimSpace(value)))
	for _, u := range PriceUnits {
		if u == unit {
			return unit, nil
		}
	}
	return "", ErrInvalidPriceUnit
}

// Suffix is appended to a displayed price, e.g. "20.00/hour".
func (u PriceUnit) Suffix() string {
	switch u {
	case PriceUnitPerHour:
		return "/hour"
	case PriceUnitPerDay:
		return "/day"
	case PriceUnitPerService:
		return "/service"
	case PriceUnitPerKm:
		return "/km"
	case PriceUnitPerItem:
		return "/item"
	case PriceUnitPerMonth:
		return "/month"
	case PriceUnitPerWeek:
		return "/week"
	default:
		return ""
	}
}

// TimeScaled reports whether the price scales with booking duration.
func (u PriceUnit) TimeScaled() bool {
	switch u {
	case PriceUnitPerHour, PriceUnitPerDay, PriceUnitPerWeek, PriceUnitPerMonth:
		return true
	default:
		return false
	}
}

func (u PriceUnit) length() time.Duration {
	switch u {
	case PriceUnitPerHour:
		return time.Hour
	case PriceUnitPerDay:
		return 24 * time.Hour
	case PriceUnitPerWeek:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// EstimateInput is a booking to price. EndAt nil means a single unit.
// Quantity applies to per_item and DistanceKm to per_km; both are optional.
type EstimateInput struct {
	Unit       PriceUnit
	Price      decimal.Decimal
	StartAt    time.Time
	EndAt      *time.Time
	Quantity   *decimal.Decimal
	DistanceKm *decimal.Decimal
}

type Estimate struct {
	Unit      PriceUnit       `json:"price_unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Units     decimal.Decimal `json:"units"`
	Total     decimal.Decimal `json:"estimated_total"`
}

// EstimatePrice scales a base price by the booking. Partial time units are
// always charged as whole units (ceil), so 2.5 hours bills 3 hours.
func EstimatePrice(in EstimateInput) (Estimate, error) {
	if in.Price.IsNegative() {
		return Estimate{}, ErrNegativeAmount
	}

	units := decimal.NewFromInt(1)
	switch in.Unit {
	case PriceUnitPerService:
	case PriceUnitPerItem:
		if in.Quantity != nil {
			if in.Quantity.IsNegative() {
				return Estimate{}, ErrNegativeAmount
			}
			units = *in.Quantity
		}
	case PriceUnitPerKm:
		if in.DistanceKm != nil {
			if in.DistanceKm.IsNegative() {
				return Estimate{}, ErrNegativeAmount
			}
			units = *in.DistanceKm
		}
	case PriceUnitPerHour, PriceUnitPerDay, PriceUnitPerWeek:
		if in.StartAt.IsZero() {
			return Estimate{}, ErrInvalidPeriod
		}
		units = decimal.NewFromInt(ceilUnits(in.StartAt, in.EndAt, in.Unit.length()))
	case PriceUnitPerMonth:
		if in.StartAt.IsZero() {
			return Estimate{}, ErrInvalidPeriod
		}
		units = decimal.NewFromInt(calendarMonths(in.StartAt, in.EndAt))
	default:
		return Estimate{}, ErrInvalidPriceUnit
	}

	return Estimate{
		Unit:      in.Unit,
		UnitPrice: in.Price,
		Units:     units,
		Total:     money.Round(in.Price.Mul(units)),
	}, nil
}

func ceilUnits(start time.Time, end *time.Time, length time.Duration) int64 {
	if end == nil || !end.After(start) {
		return 1
	}
	d := end.Sub(start)
	n := int64(d / length)
	if d%length != 0 {
		n++
	}
	return n
}

func calendarMonths(start time.Time, end *time.Time) int64 {
	if end == nil || !end.After(start) {
		return 1
	}
	var n int64 = 1
	for addMonths(start, int(n)).Before(*end) {
		n++
	}
	return n
}

// addMonths moves t by n calendar months, clamping the day to the end of the
// target month so Jan 31 + 1 month is Feb 28 (29), not Mar 3.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
