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

type imageCreatePayload struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	URL      string    `json:"url" validate:"required,max=1024"`
	Alt      string    `json:"alt" validate:"max=255"`
	Position *int      `json:"position" validate:"required,gte=0"`
}

type imageUpdatePayload struct {
	URL      *string `json:"url" validate:"omitempty,max=1024"`
	Alt      *string `json:"alt" validate:"omitempty,max=255"`
	Position *int    `json:"position" validate:"omitempty,gte=0"`
}

// ImageList returns the images of the item named by the item query
// parameter in display order.
func ImageList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		itemID, err := validators.ParseQueryUUID(r, "item")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if itemID == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Validation("missing query parameter", map[string]string{"item": "is required"}))
			return
		}
		images, err := svc.ListImages(ctx, *itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, images)
	}
}

func ImageCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		var payload imageCreatePayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		image, err := svc.AddImage(ctx, payload.ItemID, catalog.ImageInput{
			URL:      payload.URL,
			Alt:      payload.Alt,
			Position: payload.Position,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, image)
	}
}

func ImageGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		image, err := svc.GetImage(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, image)
	}
}

func ImageUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload imageUpdatePayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		image, err := svc.UpdateImage(ctx, id, catalog.ImagePatch{
			URL:      payload.URL,
			Alt:      payload.Alt,
			Position: payload.Position,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, image)
	}
}

func ImageDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "imageID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteImage(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
