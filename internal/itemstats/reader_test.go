package itemstats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/pkg/db/dbtest"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
)

func TestReaderZeroActivity(t *testing.T) {
	conn := dbtest.Open(t)
	item := dbtest.Item(t, conn)
	reader := NewReader(conn, nil)

	m, err := reader.Snapshot(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Zero(t, m.TotalRentals)
	assert.True(t, m.TotalRevenue.IsZero())
	assert.Zero(t, m.AverageRating)
	assert.Zero(t, m.ViewCount)
	assert.Zero(t, m.ConversionRate)
	assert.Nil(t, m.UtilizationRate)
}

func TestReaderRevenueAndRatingAreIndependent(t *testing.T) {
	conn := dbtest.Open(t)
	item := dbtest.Item(t, conn)
	dbtest.Insert(t, conn,
		&models.Review{ItemID: item.ID, CustomerID: "a", Rating: 4, CreatedAt: time.Now().UTC()},
		&models.Review{ItemID: item.ID, CustomerID: "b", Rating: 5, CreatedAt: time.Now().UTC()},
	)
	reader := NewReader(conn, nil)
	ctx := context.Background()

	revenue, err := reader.TotalRevenue(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, revenue.IsZero())

	rating, err := reader.AverageRating(ctx, item.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, rating, 1e-9)
}

func TestReaderSnapshot(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2025, 2, 11, 10, 0, 0, 0, time.UTC)
	profile := dbtest.Profile(t, conn, func(p *models.ItemManagementProfile) {
		p.CreatedAt = now.AddDate(0, 0, -10)
	})
	item := dbtest.Item(t, conn, func(i *models.Item) { i.ManagementProfileID = &profile.ID })
	sibling := dbtest.Item(t, conn, func(i *models.Item) { i.ManagementProfileID = &profile.ID })

	start := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	dbtest.Insert(t, conn,
		&models.Rental{ItemID: item.ID, CustomerID: "c", StartDate: start, EndDate: start.AddDate(0, 0, 2),
			TotalPrice: decimal.NewFromInt(20), Status: enums.RentalStatusActive, CreatedAt: now},
		&models.Rental{ItemID: sibling.ID, CustomerID: "d", StartDate: start, EndDate: start.AddDate(0, 0, 3),
			TotalPrice: decimal.NewFromInt(30), Status: enums.RentalStatusActive, CreatedAt: now},
	)
	for i := 0; i < 4; i++ {
		dbtest.Insert(t, conn, &models.ItemView{ItemID: item.ID, Source: enums.TrafficSourceDirect, Device: enums.DeviceDesktop, ViewedAt: now})
	}

	reader := NewReader(conn, func() time.Time { return now })
	m, err := reader.Snapshot(context.Background(), item.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.TotalRentals)
	assert.Equal(t, "20.00", m.TotalRevenue.StringFixed(2))
	assert.EqualValues(t, 4, m.ViewCount)
	assert.InDelta(t, 25.0, m.ConversionRate, 1e-9)
	require.NotNil(t, m.UtilizationRate)
	// both profile rentals are running: (2 + 3) / 10 days
	assert.InDelta(t, 50.0, *m.UtilizationRate, 1e-9)
}

func TestUtilizationRateCountsDaysFromProfileCreation(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2025, 2, 11, 10, 0, 0, 0, time.UTC)
	profile := dbtest.Profile(t, conn, func(p *models.ItemManagementProfile) {
		p.CreatedAt = now.AddDate(0, 0, -20)
	})
	item := dbtest.Item(t, conn, func(i *models.Item) {
		i.ManagementProfileID = &profile.ID
		i.CreatedAt = now.AddDate(0, 0, -2)
	})
	start := now.AddDate(0, 0, -1)
	dbtest.Insert(t, conn, &models.Rental{ItemID: item.ID, CustomerID: "c", StartDate: start, EndDate: start.AddDate(0, 0, 4),
		TotalPrice: decimal.NewFromInt(40), Status: enums.RentalStatusActive, CreatedAt: start})

	rate, err := NewReader(conn, nil).UtilizationRate(context.Background(), profile.ID, now)
	require.NoError(t, err)
	// 4 rented days over the profile's 20 days, not the item's 2
	assert.InDelta(t, 20.0, rate, 1e-9)
}

func TestReaderSnapshotUnknownItem(t *testing.T) {
	reader := NewReader(dbtest.Open(t), nil)
	_, err := reader.Snapshot(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
