package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/enums"
)

// Category groups items for browsing and category stats.
type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null;uniqueIndex:categories_name_key" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Item is a rentable piece of equipment listed by an owner.
type Item struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                string           `gorm:"column:name;type:varchar(100);not null" json:"name"`
	ShortDescription    string           `gorm:"column:short_description;type:varchar(100);not null;default:''" json:"short_description"`
	DetailedDescription string           `gorm:"column:detailed_description;type:text;not null;default:''" json:"detailed_description"`
	Brand               *string          `gorm:"column:brand;type:varchar(255)" json:"brand"`
	Location            *string          `gorm:"column:location;type:varchar(255)" json:"location"`
	RentalLocation      string           `gorm:"column:rental_location;type:varchar(255);not null;default:''" json:"rental_location"`
	State               string           `gorm:"column:state;type:varchar(50);not null;default:'open'" json:"state"`
	Status              enums.ItemStatus `gorm:"column:status;type:varchar(20);not null;default:'draft';index:items_status_idx" json:"status"`
	PricePerDay         decimal.Decimal  `gorm:"column:price_per_day;type:numeric(12,2);not null" json:"price_per_day"`
	CategoryID          *uuid.UUID       `gorm:"column:category_id;type:uuid;index:items_category_id_idx" json:"category_id"`
	ManagementProfileID *uuid.UUID       `gorm:"column:management_profile_id;type:uuid;index:items_management_profile_id_idx" json:"management_profile_id"`
	OwnerID             *string          `gorm:"column:owner_id;type:varchar(255);index:items_owner_id_idx" json:"owner_id"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Images []ItemImage `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// ItemManagementProfile holds the operational details shared by managed items.
type ItemManagementProfile struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                string              `gorm:"column:name;type:varchar(255);not null" json:"name"`
	LastMaintenance     *time.Time          `gorm:"column:last_maintenance;type:date" json:"last_maintenance"`
	Condition           string              `gorm:"column:condition;type:varchar(50);not null;default:'open'" json:"condition"`
	RentalLocation      string              `gorm:"column:rental_location;type:varchar(255);not null;default:''" json:"rental_location"`
	Deposit             decimal.NullDecimal `gorm:"column:deposit;type:numeric(12,2)" json:"deposit"`
	Availability        *enums.Availability `gorm:"column:availability;type:varchar(20)" json:"availability"`
	RentalZone          *string             `gorm:"column:rental_zone;type:varchar(255);index:item_management_profiles_rental_zone_idx" json:"rental_zone"`
	Location            *string             `gorm:"column:location;type:varchar(255)" json:"location"`
	ContractDocumentKey *string             `gorm:"column:contract_document_key;type:varchar(512)" json:"contract_document_key"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (p *ItemManagementProfile) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ItemImage references an uploaded image by URL or storage key.
type ItemImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null;index:item_images_item_id_idx" json:"item_id"`
	URL       string    `gorm:"column:url;type:varchar(1024);not null" json:"url"`
	Alt       string    `gorm:"column:alt;type:varchar(255);not null;default:''" json:"alt"`
	Position  int       `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *ItemImage) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// WishlistEntry links a user to an item they saved.
type WishlistEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null;uniqueIndex:wishlist_entries_user_item_key" json:"item_id"`
	UserID    string    `gorm:"column:user_id;type:varchar(255);not null;index:wishlist_entries_user_id_idx;uniqueIndex:wishlist_entries_user_item_key" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (w *WishlistEntry) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
