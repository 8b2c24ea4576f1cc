package rollup

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/pkg/enums"
)

var testDay = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func sp(v string) *string { return &v }

func TestDayTruncatesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := Day(time.Date(2025, 3, 2, 1, 0, 0, 0, loc))
	assert.Equal(t, testDay, got)
}

func TestViewIdentityFallbacks(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "v:s1", ViewFact{ID: id, VisitorKey: sp("s1"), UserID: sp("u1")}.Identity())
	assert.Equal(t, "u:u1", ViewFact{ID: id, UserID: sp("u1")}.Identity())
	assert.Equal(t, "i:"+id.String(), ViewFact{ID: id}.Identity())
}

func TestComputeSiteZeroActivity(t *testing.T) {
	row := ComputeSite(testDay, 0, 0, nil, at(23, 0))
	assert.Zero(t, row.TotalRentals)
	assert.True(t, row.TotalRevenue.IsZero())
	assert.Zero(t, row.ConversionRate)
	assert.True(t, row.AvgOrderValue.IsZero())
}

func TestComputeSiteRates(t *testing.T) {
	rentals := []RentalFact{
		{ID: uuid.New(), TotalPrice: decimal.NewFromInt(30)},
		{ID: uuid.New(), TotalPrice: decimal.NewFromInt(15)},
	}
	row := ComputeSite(testDay, 7, 20, rentals, at(23, 0))
	assert.EqualValues(t, 7, row.TotalVisitors)
	assert.EqualValues(t, 2, row.TotalRentals)
	assert.Equal(t, "45.00", row.TotalRevenue.StringFixed(2))
	assert.Equal(t, "22.50", row.AvgOrderValue.StringFixed(2))
	assert.InDelta(t, 10.0, row.ConversionRate, 1e-9)
}

func TestAttributeLastTouch(t *testing.T) {
	item := uuid.New()
	early := ViewFact{ID: uuid.New(), ItemID: item, Source: enums.TrafficSourceEmail, ViewedAt: at(9, 0)}
	late := ViewFact{ID: uuid.New(), ItemID: item, Source: enums.TrafficSourceSocial, ViewedAt: at(11, 0)}
	afterRental := ViewFact{ID: uuid.New(), ItemID: item, Source: enums.TrafficSourcePaid, ViewedAt: at(15, 0)}
	rental := RentalFact{ID: uuid.New(), ItemID: item, CustomerID: "cust", CreatedAt: at(12, 0)}
	orphan := RentalFact{ID: uuid.New(), ItemID: uuid.New(), CustomerID: "cust", CreatedAt: at(12, 0)}

	touches := Attribute([]ViewFact{early, late, afterRental}, []RentalFact{rental, orphan})
	require.Contains(t, touches, rental.ID)
	assert.Equal(t, late.ID, touches[rental.ID].ID)
	assert.NotContains(t, touches, orphan.ID)
}

func TestAttributePrefersCustomerOwnView(t *testing.T) {
	item := uuid.New()
	own := ViewFact{ID: uuid.New(), ItemID: item, UserID: sp("cust"), Source: enums.TrafficSourceEmail, ViewedAt: at(8, 0)}
	other := ViewFact{ID: uuid.New(), ItemID: item, UserID: sp("someone"), Source: enums.TrafficSourceSocial, ViewedAt: at(10, 0)}
	rental := RentalFact{ID: uuid.New(), ItemID: item, CustomerID: "cust", CreatedAt: at(12, 0)}

	touches := Attribute([]ViewFact{own, other}, []RentalFact{rental})
	assert.Equal(t, own.ID, touches[rental.ID].ID)
}

func TestComputeTrafficSourcesCoversEverySource(t *testing.T) {
	item := uuid.New()
	views := []ViewFact{
		{ID: uuid.New(), ItemID: item, VisitorKey: sp("a"), Source: enums.TrafficSourceOrganic, Device: enums.DeviceDesktop, ViewedAt: at(9, 0)},
		{ID: uuid.New(), ItemID: item, VisitorKey: sp("a"), Source: enums.TrafficSourceOrganic, Device: enums.DeviceDesktop, ViewedAt: at(9, 5)},
		{ID: uuid.New(), ItemID: item, VisitorKey: sp("b"), Source: enums.TrafficSourceOrganic, Device: enums.DeviceMobile, ViewedAt: at(9, 10)},
		{ID: uuid.New(), ItemID: item, Source: enums.TrafficSourcePaid, Device: enums.DeviceMobile, ViewedAt: at(10, 0)},
	}
	rentals := []RentalFact{{ID: uuid.New(), ItemID: item, CustomerID: "x", TotalPrice: decimal.NewFromInt(40), CreatedAt: at(9, 30)}}

	rows := ComputeTrafficSources(testDay, views, rentals, at(23, 0))
	require.Len(t, rows, len(enums.TrafficSources()))
	byKey := map[enums.TrafficSource]int{}
	for i, r := range rows {
		byKey[r.Source] = i
	}
	organic := rows[byKey[enums.TrafficSourceOrganic]]
	assert.EqualValues(t, 2, organic.Visitors)
	assert.EqualValues(t, 3, organic.PageViews)
	assert.EqualValues(t, 1, organic.Rentals)
	assert.Equal(t, "40.00", organic.Revenue.StringFixed(2))
	assert.InDelta(t, 100.0/3.0, organic.ConversionRate, 1e-9)

	paid := rows[byKey[enums.TrafficSourcePaid]]
	assert.EqualValues(t, 1, paid.Visitors)
	assert.Zero(t, paid.Rentals)

	direct := rows[byKey[enums.TrafficSourceDirect]]
	assert.Zero(t, direct.PageViews)
	assert.Zero(t, direct.ConversionRate)
}

func TestComputeDevicesUsesAttributedView(t *testing.T) {
	item := uuid.New()
	views := []ViewFact{
		{ID: uuid.New(), ItemID: item, Source: enums.TrafficSourceDirect, Device: enums.DeviceTablet, ViewedAt: at(9, 0)},
	}
	rentals := []RentalFact{{ID: uuid.New(), ItemID: item, TotalPrice: decimal.NewFromInt(12), CreatedAt: at(9, 1)}}
	rows := ComputeDevices(testDay, views, rentals, at(23, 0))
	require.Len(t, rows, len(enums.DeviceTypes()))
	for _, r := range rows {
		if r.Device == enums.DeviceTablet {
			assert.EqualValues(t, 1, r.Rentals)
			assert.Equal(t, "12.00", r.AvgOrderValue.StringFixed(2))
		} else {
			assert.Zero(t, r.Rentals)
		}
	}
}

func TestComputeCategoriesIncludesStaleRows(t *testing.T) {
	active := uuid.New()
	stale := uuid.New()
	item := uuid.New()
	views := []ViewFact{
		{ID: uuid.New(), ItemID: item, CategoryID: &active, VisitorKey: sp("a"), ViewedAt: at(9, 0)},
		{ID: uuid.New(), ItemID: uuid.New(), ViewedAt: at(9, 0)},
	}
	rentals := []RentalFact{{ID: uuid.New(), ItemID: item, CategoryID: &active, TotalPrice: decimal.NewFromInt(30), CreatedAt: at(8, 0)}}

	rows := ComputeCategories(testDay, views, rentals, []uuid.UUID{stale, active}, at(23, 0))
	require.Len(t, rows, 2)
	for _, r := range rows {
		switch r.CategoryID {
		case active:
			assert.EqualValues(t, 1, r.Views)
			assert.EqualValues(t, 1, r.Rentals)
			assert.InDelta(t, 100.0, r.ConversionRate, 1e-9)
		case stale:
			assert.Zero(t, r.Views)
			assert.Zero(t, r.Rentals)
			assert.True(t, r.Revenue.IsZero())
		}
	}
}
