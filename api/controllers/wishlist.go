package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rentwise/rentwise-backend/api/responses"
	"github.com/rentwise/rentwise-backend/api/validators"
	"github.com/rentwise/rentwise-backend/internal/catalog"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type wishlistPayload struct {
	UserID string    `json:"user_id" validate:"required,max=255"`
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// WishlistList returns the paginated wishlist of the user query parameter.
func WishlistList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		user := queryString(r, "user")
		if user == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Validation("missing query parameter", map[string]string{"user": "is required"}))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ListWishlist(ctx, *user, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// WishlistAdd saves an item for a user. Saving the same item twice is a
// no-op.
func WishlistAdd(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		var payload wishlistPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.AddToWishlist(ctx, payload.UserID, payload.ItemID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, map[string]string{"status": "ok"})
	}
}

// WishlistRemove deletes the item named in the path from the user's
// wishlist.
func WishlistRemove(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		itemID, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		user := queryString(r, "user")
		if user == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Validation("missing query parameter", map[string]string{"user": "is required"}))
			return
		}
		if err := svc.RemoveFromWishlist(ctx, *user, itemID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
