package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
)

// ItemFilter narrows item listings. Nil fields impose no constraint and set
// fields combine with AND.
type ItemFilter struct {
	CategoryID *uuid.UUID
	OwnerID    *string
	RentalZone *string
	Status     *enums.ItemStatus
	Cursor     string
	Limit      int
}

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Validate rejects ranges whose end precedes their start.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && day(r.To).Before(day(r.From)) {
		return pkgerrors.Validation("invalid date range", map[string]string{"to": "must not be before from"})
	}
	return nil
}

// bounds converts the range into a half-open [from, to) timestamp window.
func (r DateRange) bounds() (from, to *time.Time) {
	if !r.From.IsZero() {
		f := day(r.From)
		from = &f
	}
	if !r.To.IsZero() {
		t := day(r.To).AddDate(0, 0, 1)
		to = &t
	}
	return from, to
}

// ItemActivity summarizes an item's events within a date range.
type ItemActivity struct {
	ItemID        uuid.UUID       `json:"item_id"`
	Views         int64           `json:"views"`
	Rentals       int64           `json:"rentals"`
	Revenue       decimal.Decimal `json:"revenue"`
	Reviews       int64           `json:"reviews"`
	AverageRating float64         `json:"average_rating"`
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
