package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentwise/rentwise-backend/internal/repo"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/pagination"
)

// Repository persists catalog records: items, categories, profiles, images
// and wishlist entries.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) FindItem(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.Conn(ctx, tx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItemTx(tx *gorm.DB, item *models.Item) error {
	return tx.Omit(clause.Associations).Create(item).Error
}

func (r *Repository) UpdateItemTx(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.Item{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) (int64, error) {
	var affected int64
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&models.ItemImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&models.WishlistEntry{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Item{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// ReplaceImagesTx drops every image of the item and inserts images instead.
func (r *Repository) ReplaceImagesTx(tx *gorm.DB, itemID uuid.UUID, images []models.ItemImage) error {
	if err := tx.Where("item_id = ?", itemID).Delete(&models.ItemImage{}).Error; err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}
	return tx.Create(&images).Error
}

func (r *Repository) ListImages(ctx context.Context, itemID uuid.UUID) ([]models.ItemImage, error) {
	var images []models.ItemImage
	err := r.DB(ctx).Where("item_id = ?", itemID).Order("position ASC").Order("created_at ASC").Find(&images).Error
	return images, err
}

func (r *Repository) FindImage(ctx context.Context, id uuid.UUID) (*models.ItemImage, error) {
	var image models.ItemImage
	if err := r.DB(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *Repository) CreateImage(ctx context.Context, image *models.ItemImage) error {
	return r.DB(ctx).Create(image).Error
}

func (r *Repository) UpdateImage(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).Model(&models.ItemImage{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.ItemImage{})
	return res.RowsAffected, res.Error
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Create(category).Error
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.DB(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *Repository) RenameCategory(ctx context.Context, id uuid.UUID, name string) error {
	return r.DB(ctx).Model(&models.Category{}).Where("id = ?", id).Update("name", name).Error
}

// DeleteCategory detaches the category from its items and drops its rollup
// rows before removing it.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	var affected int64
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Item{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.CategoryStat{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Category{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

func (r *Repository) CategoryExists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	var count int64
	err := r.Conn(ctx, tx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateProfileTx(tx *gorm.DB, profile *models.ItemManagementProfile) error {
	return tx.Create(profile).Error
}

func (r *Repository) FindProfile(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ItemManagementProfile, error) {
	var profile models.ItemManagementProfile
	if err := r.Conn(ctx, tx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) ListProfiles(ctx context.Context, params pagination.Params) ([]models.ItemManagementProfile, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	var profiles []models.ItemManagementProfile
	err = r.DB(ctx).Scopes(pagination.Keyset(cursor, params.Limit, "")).Find(&profiles).Error
	return profiles, err
}

func (r *Repository) UpdateProfileTx(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.ItemManagementProfile{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) DeleteProfile(ctx context.Context, id uuid.UUID) (int64, error) {
	var affected int64
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Item{}).Where("management_profile_id = ?", id).Update("management_profile_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.ItemManagementProfile{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// AddWishlistEntry inserts the entry and ignores duplicates.
func (r *Repository) AddWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(entry).Error
}

func (r *Repository) RemoveWishlistEntry(ctx context.Context, userID string, itemID uuid.UUID) error {
	return r.DB(ctx).Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.WishlistEntry{}).Error
}

func (r *Repository) ListWishlist(ctx context.Context, userID string, params pagination.Params) ([]models.WishlistEntry, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	var entries []models.WishlistEntry
	err = r.DB(ctx).Where("user_id = ?", userID).
		Scopes(pagination.Keyset(cursor, params.Limit, "")).
		Find(&entries).Error
	return entries, err
}
