package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/pkg/enums"
)

// ItemInput creates an item. Profile, when set, creates a management profile
// attached to the new item.
type ItemInput struct {
	Name                string
	ShortDescription    string
	DetailedDescription string
	Brand               *string
	Location            *string
	RentalLocation      string
	State               string
	Status              enums.ItemStatus
	PricePerDay         decimal.Decimal
	CategoryID          *uuid.UUID
	OwnerID             *string
	ManagementProfileID *uuid.UUID
	Profile             *ProfileInput
	Images              []ImageInput
}

// ItemPatch updates an item. Nil fields are left untouched; a non-nil Images
// slice replaces every image of the item.
type ItemPatch struct {
	Name                *string
	ShortDescription    *string
	DetailedDescription *string
	Brand               *string
	Location            *string
	RentalLocation      *string
	State               *string
	PricePerDay         *decimal.Decimal
	CategoryID          *uuid.UUID
	ClearCategory       bool
	OwnerID             *string
	Profile             *ProfileInput
	Images              []ImageInput
}

// ProfileInput carries management profile fields. For updates nil fields
// are left untouched.
type ProfileInput struct {
	Name                *string
	LastMaintenance     *time.Time
	Condition           *string
	RentalLocation      *string
	Deposit             *decimal.Decimal
	Availability        *enums.Availability
	RentalZone          *string
	Location            *string
	ContractDocumentKey *string
}

// ImageInput references an already uploaded image by URL or storage key.
type ImageInput struct {
	URL      string
	Alt      string
	Position *int
}

// ImagePatch updates a single image.
type ImagePatch struct {
	URL      *string
	Alt      *string
	Position *int
}
