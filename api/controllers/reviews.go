package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rentwise/rentwise-backend/api/responses"
	"github.com/rentwise/rentwise-backend/api/validators"
	"github.com/rentwise/rentwise-backend/internal/events"
	"github.com/rentwise/rentwise-backend/internal/reviews"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type reviewPayload struct {
	ItemID     uuid.UUID `json:"item_id" validate:"required"`
	CustomerID string    `json:"customer_id" validate:"required,max=255"`
	Rating     int       `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    *string   `json:"comment" validate:"omitempty,max=2000"`
}

type reviewPatchPayload struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// ReviewCreate stores the review and queues the owner notification; it never
// waits on delivery.
func ReviewCreate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("review"))
			return
		}
		var payload reviewPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		review, err := svc.Create(ctx, events.ReviewInput{
			ItemID:     payload.ItemID,
			CustomerID: payload.CustomerID,
			Rating:     payload.Rating,
			Comment:    payload.Comment,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, review)
	}
}

func ReviewGet(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("review"))
			return
		}
		id, err := validators.PathUUID(r, "reviewID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		review, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

func ReviewList(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("review"))
			return
		}
		filter, err := eventFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.List(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ReviewUpdate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("review"))
			return
		}
		id, err := validators.PathUUID(r, "reviewID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload reviewPatchPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		review, err := svc.Update(ctx, id, reviews.Patch{Rating: payload.Rating, Comment: payload.Comment})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

func ReviewDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("review"))
			return
		}
		id, err := validators.PathUUID(r, "reviewID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
