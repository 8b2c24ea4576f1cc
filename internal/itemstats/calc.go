package itemstats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/pkg/db/models"
)

// ConversionRate is rentals per hundred views, 0 when there are no views.
func ConversionRate(rentals, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(rentals) / float64(views) * 100
}

// AverageOrderValue is revenue per rental, 0 when there are no rentals.
func AverageOrderValue(revenue decimal.Decimal, rentals int64) decimal.Decimal {
	if rentals <= 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(rentals)).Round(2)
}

// Duration is the number of whole days between a rental's start and end.
func Duration(r models.Rental) int {
	return r.DurationDays()
}

// ActiveAt reports whether now falls inside the rental's [start, end] days.
func ActiveAt(r models.Rental, now time.Time) bool {
	day := truncateDay(now)
	return !truncateDay(r.StartDate).After(day) && !truncateDay(r.EndDate).Before(day)
}

// UtilizationRate sums the durations of rentals active at now and divides
// by the whole days elapsed since createdAt. Rentals that are not running at
// now contribute nothing. Returns 0 when less than a day has elapsed.
func UtilizationRate(rentals []models.Rental, createdAt, now time.Time) float64 {
	totalDays := int(now.Sub(createdAt).Hours() / 24)
	if totalDays <= 0 {
		return 0
	}
	rented := 0
	for _, r := range rentals {
		if ActiveAt(r, now) {
			rented += Duration(r)
		}
	}
	return float64(rented) / float64(totalDays) * 100
}

// SumRevenue adds up rental prices.
func SumRevenue(prices []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(p)
	}
	return total
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
