package reporting

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/internal/itemstats"
	"github.com/rentwise/rentwise-backend/internal/repo"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	"github.com/rentwise/rentwise-backend/pkg/pagination"
)

// Repository runs the read-only queries behind reporting.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) ListItems(ctx context.Context, f ItemFilter, cursor *pagination.Cursor) ([]models.Item, error) {
	q := r.DB(ctx).Model(&models.Item{}).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
	if f.CategoryID != nil {
		q = q.Where("items.category_id = ?", *f.CategoryID)
	}
	if f.OwnerID != nil {
		q = q.Where("items.owner_id = ?", *f.OwnerID)
	}
	if f.Status != nil {
		q = q.Where("items.status = ?", *f.Status)
	}
	if f.RentalZone != nil {
		q = q.Joins("JOIN item_management_profiles ON item_management_profiles.id = items.management_profile_id").
			Where("item_management_profiles.rental_zone = ?", *f.RentalZone)
	}
	var items []models.Item
	err := q.Scopes(pagination.Keyset(cursor, f.Limit, "items")).Find(&items).Error
	return items, err
}

func statsWindow(q *gorm.DB, r DateRange) *gorm.DB {
	from, to := r.bounds()
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date < ?", *to)
	}
	return q
}

func (r *Repository) SiteStats(ctx context.Context, rng DateRange) ([]models.DailySiteStat, error) {
	var rows []models.DailySiteStat
	err := statsWindow(r.DB(ctx), rng).Order("date DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) TrafficSourceStats(ctx context.Context, rng DateRange, source *enums.TrafficSource) ([]models.TrafficSourceStat, error) {
	q := statsWindow(r.DB(ctx), rng)
	if source != nil {
		q = q.Where("source = ?", *source)
	}
	var rows []models.TrafficSourceStat
	err := q.Order("date DESC").Order("source ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) DeviceStats(ctx context.Context, rng DateRange, device *enums.DeviceType) ([]models.DeviceStat, error) {
	q := statsWindow(r.DB(ctx), rng)
	if device != nil {
		q = q.Where("device = ?", *device)
	}
	var rows []models.DeviceStat
	err := q.Order("date DESC").Order("device ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) CategoryStats(ctx context.Context, rng DateRange, categoryID *uuid.UUID) ([]models.CategoryStat, error) {
	q := statsWindow(r.DB(ctx), rng)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var rows []models.CategoryStat
	err := q.Order("date DESC").Order("category_id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ItemExists(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Item{}).Where("id = ?", itemID).Count(&count).Error
	return count > 0, err
}

func window(q *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where(column+" >= ?", *from)
	}
	if to != nil {
		q = q.Where(column+" < ?", *to)
	}
	return q
}

func (r *Repository) ItemActivity(ctx context.Context, itemID uuid.UUID, rng DateRange) (ItemActivity, error) {
	from, to := rng.bounds()
	out := ItemActivity{ItemID: itemID, Revenue: decimal.Zero}

	if err := window(r.DB(ctx).Model(&models.ItemView{}).Where("item_id = ?", itemID), "viewed_at", from, to).
		Count(&out.Views).Error; err != nil {
		return out, err
	}

	var prices []decimal.Decimal
	if err := window(r.DB(ctx).Model(&models.Rental{}).Where("item_id = ?", itemID), "created_at", from, to).
		Pluck("total_price", &prices).Error; err != nil {
		return out, err
	}
	out.Rentals = int64(len(prices))
	out.Revenue = itemstats.SumRevenue(prices)

	var agg struct {
		Count int64
		Avg   sql.NullFloat64
	}
	if err := window(r.DB(ctx).Model(&models.Review{}).Where("item_id = ?", itemID), "created_at", from, to).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Scan(&agg).Error; err != nil {
		return out, err
	}
	out.Reviews = agg.Count
	if agg.Avg.Valid {
		out.AverageRating = agg.Avg.Float64
	}
	return out, nil
}
