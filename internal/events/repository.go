package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentwise/rentwise-backend/internal/repo"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
)

const maxListLimit = 500

// ErrItemNotFound is returned when an event references an unknown item.
var ErrItemNotFound = errors.New("item not found")

// Repository is the append-only store for behavioral events. There are no
// update or delete paths for views, cart activity, rentals or reviews.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// TouchVisitorTx creates the visitor on first sight and otherwise only moves
// last_seen_at forward. IP and user agent keep their first-seen values.
func (r *Repository) TouchVisitorTx(tx *gorm.DB, visitor models.Visitor) error {
	if visitor.FirstSeenAt.IsZero() {
		visitor.FirstSeenAt = visitor.LastSeenAt
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.Set{{
			Column: clause.Column{Name: "last_seen_at"},
			Value: gorm.Expr("CASE WHEN excluded.last_seen_at > visitors.last_seen_at " +
				"THEN excluded.last_seen_at ELSE visitors.last_seen_at END"),
		}},
	}).Create(&visitor).Error
}

func (r *Repository) ensureItemTx(tx *gorm.DB, itemID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Item{}).Where("id = ?", itemID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) InsertItemViewTx(tx *gorm.DB, view *models.ItemView) error {
	if err := r.ensureItemTx(tx, view.ItemID); err != nil {
		return err
	}
	return tx.Create(view).Error
}

func (r *Repository) InsertCartActivityTx(tx *gorm.DB, activity *models.CartActivity) error {
	if err := r.ensureItemTx(tx, activity.ItemID); err != nil {
		return err
	}
	return tx.Create(activity).Error
}

func (r *Repository) InsertRentalTx(tx *gorm.DB, rental *models.Rental) error {
	if err := r.ensureItemTx(tx, rental.ItemID); err != nil {
		return err
	}
	return tx.Create(rental).Error
}

func (r *Repository) FindRentalTx(tx *gorm.DB, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := tx.Where("id = ?", id).First(&rental).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *Repository) SetRentalStatusTx(tx *gorm.DB, id uuid.UUID, status enums.RentalStatus) error {
	return tx.Model(&models.Rental{}).Where("id = ?", id).Update("status", status).Error
}

func (r *Repository) InsertReviewTx(tx *gorm.DB, review *models.Review) error {
	if err := r.ensureItemTx(tx, review.ItemID); err != nil {
		return err
	}
	return tx.Create(review).Error
}

func (r *Repository) GetVisitor(ctx context.Context, key string) (*models.Visitor, error) {
	var visitor models.Visitor
	if err := r.DB(ctx).Where("session_key = ?", key).First(&visitor).Error; err != nil {
		return nil, err
	}
	return &visitor, nil
}

func (r *Repository) GetRental(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := r.DB(ctx).Where("id = ?", id).First(&rental).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *Repository) ListItemViews(ctx context.Context, f Filter) ([]models.ItemView, error) {
	var rows []models.ItemView
	q := applyFilter(r.DB(ctx), f, "viewed_at")
	if f.VisitorKey != nil {
		q = q.Where("visitor_key = ?", *f.VisitorKey)
	}
	err := q.Order("viewed_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListCartActivities(ctx context.Context, f Filter) ([]models.CartActivity, error) {
	var rows []models.CartActivity
	q := applyFilter(r.DB(ctx), f, "occurred_at")
	if f.VisitorKey != nil {
		q = q.Where("visitor_key = ?", *f.VisitorKey)
	}
	err := q.Order("occurred_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListRentals(ctx context.Context, f Filter) ([]models.Rental, error) {
	var rows []models.Rental
	q := applyFilter(r.DB(ctx), f, "created_at")
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListReviews(ctx context.Context, f Filter) ([]models.Review, error) {
	var rows []models.Review
	q := applyFilter(r.DB(ctx), f, "created_at")
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func applyFilter(q *gorm.DB, f Filter, timeColumn string) *gorm.DB {
	if f.ItemID != nil {
		q = q.Where("item_id = ?", *f.ItemID)
	}
	if f.From != nil {
		q = q.Where(timeColumn+" >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where(timeColumn+" < ?", f.To.UTC())
	}
	return q.Limit(normalizeLimit(f.Limit))
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func utc(t time.Time, fallback func() time.Time) time.Time {
	if t.IsZero() {
		return fallback().UTC()
	}
	return t.UTC()
}
