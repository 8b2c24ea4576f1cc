package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/enums"
)

// Visitor is an anonymous browsing session keyed by its session key.
type Visitor struct {
	SessionKey  string    `gorm:"column:session_key;type:varchar(40);primaryKey" json:"session_key"`
	IPAddress   string    `gorm:"column:ip_address;type:varchar(45);not null;default:''" json:"ip_address"`
	UserAgent   string    `gorm:"column:user_agent;type:text;not null;default:''" json:"user_agent"`
	FirstSeenAt time.Time `gorm:"column:first_seen_at;not null" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at;not null;index:visitors_last_seen_at_idx" json:"last_seen_at"`
}

// ItemView records one view of an item page.
type ItemView struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID     uuid.UUID           `gorm:"column:item_id;type:uuid;not null;index:item_views_item_id_idx" json:"item_id"`
	UserID     *string             `gorm:"column:user_id;type:varchar(255)" json:"user_id"`
	VisitorKey *string             `gorm:"column:visitor_key;type:varchar(40)" json:"visitor_key"`
	Source     enums.TrafficSource `gorm:"column:source;type:varchar(20);not null" json:"source"`
	Device     enums.DeviceType    `gorm:"column:device;type:varchar(10);not null" json:"device"`
	ViewedAt   time.Time           `gorm:"column:viewed_at;not null;index:item_views_viewed_at_idx" json:"viewed_at"`
}

func (v *ItemView) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// CartActivity records an add or remove against a visitor's cart.
type CartActivity struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VisitorKey string           `gorm:"column:visitor_key;type:varchar(40);not null;index:cart_activities_visitor_key_idx" json:"visitor_key"`
	ItemID     uuid.UUID        `gorm:"column:item_id;type:uuid;not null;index:cart_activities_item_id_idx" json:"item_id"`
	Action     enums.CartAction `gorm:"column:action;type:varchar(10);not null" json:"action"`
	OccurredAt time.Time        `gorm:"column:occurred_at;not null;index:cart_activities_occurred_at_idx" json:"occurred_at"`
}

func (c *CartActivity) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Rental is a booking of an item for an inclusive range of days.
type Rental struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID        uuid.UUID          `gorm:"column:item_id;type:uuid;not null;index:rentals_item_id_idx" json:"item_id"`
	CustomerID    string             `gorm:"column:customer_id;type:varchar(255);not null" json:"customer_id"`
	StartDate     time.Time          `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate       time.Time          `gorm:"column:end_date;type:date;not null" json:"end_date"`
	TotalPrice    decimal.Decimal    `gorm:"column:total_price;type:numeric(12,2);not null" json:"total_price"`
	Status        enums.RentalStatus `gorm:"column:status;type:varchar(10);not null;default:'pending'" json:"status"`
	PaymentMethod *string            `gorm:"column:payment_method;type:varchar(20)" json:"payment_method"`
	TransactionID *string            `gorm:"column:transaction_id;type:varchar(100)" json:"transaction_id"`
	CreatedAt     time.Time          `gorm:"column:created_at;not null;index:rentals_created_at_idx" json:"created_at"`
}

func (r *Rental) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// DurationDays is the whole number of days between start and end.
func (r Rental) DurationDays() int {
	return int(r.EndDate.Sub(r.StartDate).Hours() / 24)
}

// Review is a customer's rating of an item.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;not null;index:reviews_item_id_idx" json:"item_id"`
	CustomerID string    `gorm:"column:customer_id;type:varchar(255);not null" json:"customer_id"`
	Rating     int       `gorm:"column:rating;not null" json:"rating"`
	Comment    *string   `gorm:"column:comment;type:text" json:"comment"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
