package outbox

import "github.com/google/uuid"

// ReviewCreated is queued when a customer reviews an item. The owner's contact
// address is resolved at publish time, never on the request path.
type ReviewCreated struct {
	ReviewID uuid.UUID `json:"review_id"`
	ItemID   uuid.UUID `json:"item_id"`
	OwnerRef string    `json:"owner_ref"`
	Rating   int       `json:"rating"`
}
