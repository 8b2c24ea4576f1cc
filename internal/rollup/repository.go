package rollup

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentwise/rentwise-backend/pkg/db/models"
)

var (
	siteColumns      = []string{"total_visitors", "total_page_views", "total_rentals", "total_revenue", "avg_order_value", "conversion_rate"}
	dimensionColumns = []string{"visitors", "page_views", "rentals", "revenue", "avg_order_value", "conversion_rate"}
	categoryColumns  = []string{"visitors", "views", "rentals", "revenue", "avg_order_value", "conversion_rate"}
)

// overwrite assigns the recomputed metrics and moves computed_at only when one
// of them differs from the stored row, so an unchanged recompute leaves the
// row untouched.
func overwrite(table string, columns []string) clause.Set {
	changed := make([]string, len(columns))
	for i, col := range columns {
		changed[i] = fmt.Sprintf("%s.%s <> excluded.%s", table, col, col)
	}
	set := clause.AssignmentColumns(columns)
	return append(set, clause.Assignment{
		Column: clause.Column{Name: "computed_at"},
		Value: gorm.Expr(fmt.Sprintf("CASE WHEN %s THEN excluded.computed_at ELSE %s.computed_at END",
			strings.Join(changed, " OR "), table)),
	})
}

// Repository reads the day's facts and writes rollup rows. Every method runs
// on the caller's transaction so reads and the upsert share one snapshot.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) CountVisitorsTx(tx *gorm.DB, from, to time.Time) (int64, error) {
	var count int64
	err := tx.Model(&models.Visitor{}).
		Where("last_seen_at >= ? AND last_seen_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountViewsTx(tx *gorm.DB, from, to time.Time) (int64, error) {
	var count int64
	err := tx.Model(&models.ItemView{}).
		Where("viewed_at >= ? AND viewed_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *Repository) LoadViewsTx(tx *gorm.DB, from, to time.Time) ([]ViewFact, error) {
	var views []ViewFact
	err := tx.Table("item_views").
		Select("item_views.id, item_views.item_id, items.category_id, item_views.user_id, " +
			"item_views.visitor_key, item_views.source, item_views.device, item_views.viewed_at").
		Joins("LEFT JOIN items ON items.id = item_views.item_id").
		Where("item_views.viewed_at >= ? AND item_views.viewed_at < ?", from, to).
		Order("item_views.viewed_at").
		Scan(&views).Error
	return views, err
}

func (r *Repository) LoadRentalsTx(tx *gorm.DB, from, to time.Time) ([]RentalFact, error) {
	var rentals []RentalFact
	err := tx.Table("rentals").
		Select("rentals.id, rentals.item_id, items.category_id, rentals.customer_id, rentals.total_price, rentals.created_at").
		Joins("LEFT JOIN items ON items.id = rentals.item_id").
		Where("rentals.created_at >= ? AND rentals.created_at < ?", from, to).
		Order("rentals.created_at").
		Scan(&rentals).Error
	return rentals, err
}

// CategoryIDsTx lists categories that already have a row for day.
func (r *Repository) CategoryIDsTx(tx *gorm.DB, day time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.Model(&models.CategoryStat{}).Where("date = ?", day).Pluck("category_id", &ids).Error
	return ids, err
}

func (r *Repository) UpsertSiteTx(tx *gorm.DB, row *models.DailySiteStat) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: overwrite("daily_site_stats", siteColumns),
	}).Create(row).Error
}

func (r *Repository) UpsertTrafficSourcesTx(tx *gorm.DB, rows []models.TrafficSourceStat) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "source"}},
		DoUpdates: overwrite("traffic_source_stats", dimensionColumns),
	}).Create(&rows).Error
}

func (r *Repository) UpsertDevicesTx(tx *gorm.DB, rows []models.DeviceStat) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "device"}},
		DoUpdates: overwrite("device_stats", dimensionColumns),
	}).Create(&rows).Error
}

func (r *Repository) UpsertCategoriesTx(tx *gorm.DB, rows []models.CategoryStat) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "category_id"}},
		DoUpdates: overwrite("category_stats", categoryColumns),
	}).Create(&rows).Error
}
