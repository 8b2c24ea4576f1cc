package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/pkg/enums"
)

const maxSessionKeyLen = 40

// VisitorInput identifies a browsing session and where it came from.
type VisitorInput struct {
	SessionKey string
	IPAddress  string
	UserAgent  string
	SeenAt     time.Time
}

// ItemViewInput describes one item page view. VisitorKey, when set, also
// refreshes that visitor's last-seen time.
type ItemViewInput struct {
	ItemID     uuid.UUID
	UserID     *string
	VisitorKey *string
	Source     enums.TrafficSource
	Device     enums.DeviceType
	ViewedAt   time.Time
}

// CartActivityInput records a cart add or remove by a visitor.
type CartActivityInput struct {
	VisitorKey string
	ItemID     uuid.UUID
	Action     enums.CartAction
	OccurredAt time.Time
}

// RentalInput books an item for the inclusive range [StartDate, EndDate].
type RentalInput struct {
	ItemID        uuid.UUID
	CustomerID    string
	StartDate     time.Time
	EndDate       time.Time
	TotalPrice    decimal.Decimal
	Status        enums.RentalStatus
	PaymentMethod *string
	TransactionID *string
	CreatedAt     time.Time
}

// ReviewInput is a customer's rating of an item.
type ReviewInput struct {
	ItemID     uuid.UUID
	CustomerID string
	Rating     int
	Comment    *string
	CreatedAt  time.Time
}

// Filter narrows event listings. Zero values mean no constraint; From is
// inclusive and To exclusive.
type Filter struct {
	ItemID     *uuid.UUID
	VisitorKey *string
	CustomerID *string
	From       *time.Time
	To         *time.Time
	Limit      int
}
