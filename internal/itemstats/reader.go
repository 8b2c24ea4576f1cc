package itemstats

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/internal/repo"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
)

// Metrics is the full per-item snapshot served by the item metrics endpoint.
type Metrics struct {
	ItemID          uuid.UUID       `json:"item_id"`
	TotalRentals    int64           `json:"total_rentals"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	AverageRating   float64         `json:"average_rating"`
	ViewCount       int64           `json:"view_count"`
	ConversionRate  float64         `json:"conversion_rate"`
	UtilizationRate *float64        `json:"utilization_rate,omitempty"`
}

// Reader answers per-item metric questions straight from the event tables.
// It holds no state beyond the connection and is safe for concurrent use.
type Reader struct {
	repo.Base
	now func() time.Time
}

func NewReader(db *gorm.DB, now func() time.Time) *Reader {
	if now == nil {
		now = time.Now
	}
	return &Reader{Base: repo.NewBase(db), now: now}
}

func (r *Reader) TotalRentals(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Rental{}).Where("item_id = ?", itemID).Count(&count).Error
	return count, err
}

func (r *Reader) TotalRevenue(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	var prices []decimal.Decimal
	if err := r.DB(ctx).Model(&models.Rental{}).Where("item_id = ?", itemID).Pluck("total_price", &prices).Error; err != nil {
		return decimal.Zero, err
	}
	return SumRevenue(prices), nil
}

func (r *Reader) AverageRating(ctx context.Context, itemID uuid.UUID) (float64, error) {
	var avg sql.NullFloat64
	row := r.DB(ctx).Model(&models.Review{}).Select("AVG(rating)").Where("item_id = ?", itemID).Row()
	if err := row.Scan(&avg); err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

func (r *Reader) ViewCount(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ItemView{}).Where("item_id = ?", itemID).Count(&count).Error
	return count, err
}

func (r *Reader) ConversionRate(ctx context.Context, itemID uuid.UUID) (float64, error) {
	rentals, err := r.TotalRentals(ctx, itemID)
	if err != nil {
		return 0, err
	}
	views, err := r.ViewCount(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return ConversionRate(rentals, views), nil
}

// UtilizationRate evaluates the profile's utilization at now over the
// rentals of every item attached to it. Elapsed days count from the
// profile's creation, not from any item's.
func (r *Reader) UtilizationRate(ctx context.Context, profileID uuid.UUID, now time.Time) (float64, error) {
	var profile models.ItemManagementProfile
	if err := r.DB(ctx).Where("id = ?", profileID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "management profile not found")
		}
		return 0, err
	}
	var rentals []models.Rental
	err := r.DB(ctx).
		Joins("JOIN items ON items.id = rentals.item_id").
		Where("items.management_profile_id = ?", profileID).
		Find(&rentals).Error
	if err != nil {
		return 0, err
	}
	return UtilizationRate(rentals, profile.CreatedAt, now), nil
}

// Snapshot gathers every metric for an item concurrently.
func (r *Reader) Snapshot(ctx context.Context, itemID uuid.UUID) (Metrics, error) {
	var item models.Item
	if err := r.DB(ctx).Select("id", "management_profile_id").Where("id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Metrics{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item not found")
		}
		return Metrics{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}

	out := Metrics{ItemID: itemID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalRentals, err = r.TotalRentals(gctx, itemID)
		return err
	})
	g.Go(func() (err error) {
		out.TotalRevenue, err = r.TotalRevenue(gctx, itemID)
		return err
	})
	g.Go(func() (err error) {
		out.AverageRating, err = r.AverageRating(gctx, itemID)
		return err
	})
	g.Go(func() (err error) {
		out.ViewCount, err = r.ViewCount(gctx, itemID)
		return err
	})
	if item.ManagementProfileID != nil {
		profileID := *item.ManagementProfileID
		g.Go(func() error {
			rate, err := r.UtilizationRate(gctx, profileID, r.now())
			if err != nil {
				return err
			}
			out.UtilizationRate = &rate
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return Metrics{}, typed
		}
		return Metrics{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute item metrics")
	}
	out.ConversionRate = ConversionRate(out.TotalRentals, out.ViewCount)
	return out, nil
}
