package rollup

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/internal/itemstats"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
)

// ViewFact is an item view on the rollup day joined with its item's category.
type ViewFact struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	CategoryID *uuid.UUID
	UserID     *string
	VisitorKey *string
	Source     enums.TrafficSource
	Device     enums.DeviceType
	ViewedAt   time.Time
}

// Identity is the key a view counts under for unique visitors: the session,
// else the signed-in user, else the view itself.
func (v ViewFact) Identity() string {
	if v.VisitorKey != nil && *v.VisitorKey != "" {
		return "v:" + *v.VisitorKey
	}
	if v.UserID != nil && *v.UserID != "" {
		return "u:" + *v.UserID
	}
	return "i:" + v.ID.String()
}

// RentalFact is a rental created on the rollup day joined with its item's category.
type RentalFact struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	CategoryID *uuid.UUID
	CustomerID string
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type tally struct {
	visitors map[string]struct{}
	views    int64
	rentals  int64
	revenue  decimal.Decimal
}

func newTally() *tally {
	return &tally{visitors: map[string]struct{}{}, revenue: decimal.Zero}
}

func (t *tally) view(v ViewFact) {
	t.views++
	t.visitors[v.Identity()] = struct{}{}
}

func (t *tally) rental(r RentalFact) {
	t.rentals++
	t.revenue = t.revenue.Add(r.TotalPrice)
}

func (t *tally) conversion() float64 {
	return itemstats.ConversionRate(t.rentals, t.views)
}

func (t *tally) aov() decimal.Decimal {
	return itemstats.AverageOrderValue(t.revenue, t.rentals)
}

// ComputeSite builds the site-wide row for day.
func ComputeSite(day time.Time, visitors, pageViews int64, rentals []RentalFact, now time.Time) models.DailySiteStat {
	t := newTally()
	t.views = pageViews
	for _, r := range rentals {
		t.rental(r)
	}
	return models.DailySiteStat{
		Date:           Day(day),
		TotalVisitors:  visitors,
		TotalPageViews: pageViews,
		TotalRentals:   t.rentals,
		TotalRevenue:   t.revenue,
		AvgOrderValue:  t.aov(),
		ConversionRate: t.conversion(),
		ComputedAt:     now.UTC(),
	}
}

// Attribute maps each rental to the view that last touched it: the most
// recent view of the same item at or before the rental, preferring views by
// the renting customer. Rentals with no such view are absent from the map.
func Attribute(views []ViewFact, rentals []RentalFact) map[uuid.UUID]ViewFact {
	byItem := make(map[uuid.UUID][]ViewFact)
	for _, v := range views {
		byItem[v.ItemID] = append(byItem[v.ItemID], v)
	}
	out := make(map[uuid.UUID]ViewFact, len(rentals))
	for _, r := range rentals {
		var best, bestOwn *ViewFact
		for i := range byItem[r.ItemID] {
			v := &byItem[r.ItemID][i]
			if v.ViewedAt.After(r.CreatedAt) {
				continue
			}
			if later(v, best) {
				best = v
			}
			if v.UserID != nil && *v.UserID == r.CustomerID && later(v, bestOwn) {
				bestOwn = v
			}
		}
		switch {
		case bestOwn != nil:
			out[r.ID] = *bestOwn
		case best != nil:
			out[r.ID] = *best
		}
	}
	return out
}

func later(v, than *ViewFact) bool {
	if than == nil {
		return true
	}
	if !v.ViewedAt.Equal(than.ViewedAt) {
		return v.ViewedAt.After(than.ViewedAt)
	}
	return v.ID.String() > than.ID.String()
}

// ComputeTrafficSources returns one row per known traffic source.
func ComputeTrafficSources(day time.Time, views []ViewFact, rentals []RentalFact, now time.Time) []models.TrafficSourceStat {
	tallies := make(map[enums.TrafficSource]*tally)
	for _, s := range enums.TrafficSources() {
		tallies[s] = newTally()
	}
	for _, v := range views {
		if t, ok := tallies[v.Source]; ok {
			t.view(v)
		}
	}
	touches := Attribute(views, rentals)
	for _, r := range rentals {
		if v, ok := touches[r.ID]; ok {
			if t, ok := tallies[v.Source]; ok {
				t.rental(r)
			}
		}
	}

	rows := make([]models.TrafficSourceStat, 0, len(tallies))
	for _, s := range enums.TrafficSources() {
		t := tallies[s]
		rows = append(rows, models.TrafficSourceStat{
			Date:           Day(day),
			Source:         s,
			Visitors:       int64(len(t.visitors)),
			PageViews:      t.views,
			Rentals:        t.rentals,
			Revenue:        t.revenue,
			AvgOrderValue:  t.aov(),
			ConversionRate: t.conversion(),
			ComputedAt:     now.UTC(),
		})
	}
	return rows
}

// ComputeDevices returns one row per known device type.
func ComputeDevices(day time.Time, views []ViewFact, rentals []RentalFact, now time.Time) []models.DeviceStat {
	tallies := make(map[enums.DeviceType]*tally)
	for _, d := range enums.DeviceTypes() {
		tallies[d] = newTally()
	}
	for _, v := range views {
		if t, ok := tallies[v.Device]; ok {
			t.view(v)
		}
	}
	touches := Attribute(views, rentals)
	for _, r := range rentals {
		if v, ok := touches[r.ID]; ok {
			if t, ok := tallies[v.Device]; ok {
				t.rental(r)
			}
		}
	}

	rows := make([]models.DeviceStat, 0, len(tallies))
	for _, d := range enums.DeviceTypes() {
		t := tallies[d]
		rows = append(rows, models.DeviceStat{
			Date:           Day(day),
			Device:         d,
			Visitors:       int64(len(t.visitors)),
			PageViews:      t.views,
			Rentals:        t.rentals,
			Revenue:        t.revenue,
			AvgOrderValue:  t.aov(),
			ConversionRate: t.conversion(),
			ComputedAt:     now.UTC(),
		})
	}
	return rows
}

// ComputeCategories returns a row for every category with views or rentals
// on day, plus zeroed rows for existing categories that no longer have any.
// Uncategorized items are skipped.
func ComputeCategories(day time.Time, views []ViewFact, rentals []RentalFact, existing []uuid.UUID, now time.Time) []models.CategoryStat {
	tallies := make(map[uuid.UUID]*tally)
	get := func(id uuid.UUID) *tally {
		t, ok := tallies[id]
		if !ok {
			t = newTally()
			tallies[id] = t
		}
		return t
	}
	for _, v := range views {
		if v.CategoryID != nil {
			get(*v.CategoryID).view(v)
		}
	}
	for _, r := range rentals {
		if r.CategoryID != nil {
			get(*r.CategoryID).rental(r)
		}
	}
	for _, id := range existing {
		get(id)
	}

	ids := make([]uuid.UUID, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	rows := make([]models.CategoryStat, 0, len(ids))
	for _, id := range ids {
		t := tallies[id]
		rows = append(rows, models.CategoryStat{
			Date:           Day(day),
			CategoryID:     id,
			Visitors:       int64(len(t.visitors)),
			Views:          t.views,
			Rentals:        t.rentals,
			Revenue:        t.revenue,
			AvgOrderValue:  t.aov(),
			ConversionRate: t.conversion(),
			ComputedAt:     now.UTC(),
		})
	}
	return rows
}
