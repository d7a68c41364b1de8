package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingRateScale returns the factor turning a rate paid every intervalHours
// into the rate of one common period of 24/periodsPerDay hours. Non-positive
// inputs fall back to hourly settlement and three periods a day.
func FundingRateScale(intervalHours, periodsPerDay float64) decimal.Decimal {
	if intervalHours <= 0 {
		intervalHours = 1
	}
	if periodsPerDay <= 0 {
		periodsPerDay = 3
	}
	period := decimal.NewFromInt(24).Div(decimal.NewFromFloat(periodsPerDay))
	return period.Div(decimal.NewFromFloat(intervalHours))
}

// NextFundingAfter returns the first settlement strictly after t for a venue
// that settles every intervalHours on a UTC clock aligned to midnight.
func NextFundingAfter(t time.Time, intervalHours float64) time.Time {
	if intervalHours <= 0 {
		intervalHours = 1
	}
	interval := time.Duration(intervalHours * float64(time.Hour))
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	elapsed := t.Sub(day)
	return day.Add((elapsed/interval + 1) * interval)
}
