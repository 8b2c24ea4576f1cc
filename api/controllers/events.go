package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/api/middleware"
	"github.com/rentwise/rentwise-backend/api/responses"
	"github.com/rentwise/rentwise-backend/api/validators"
	"github.com/rentwise/rentwise-backend/internal/events"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type visitorPayload struct {
	SessionKey string `json:"session_key" validate:"max=40"`
}

type itemViewPayload struct {
	ItemID     uuid.UUID  `json:"item_id" validate:"required"`
	UserID     *string    `json:"user_id" validate:"omitempty,max=255"`
	VisitorKey *string    `json:"visitor_key" validate:"omitempty,max=40"`
	Source     string     `json:"source" validate:"required"`
	Device     string     `json:"device" validate:"required"`
	ViewedAt   *time.Time `json:"viewed_at"`
}

type cartActivityPayload struct {
	VisitorKey string     `json:"visitor_key" validate:"required,max=40"`
	ItemID     uuid.UUID  `json:"item_id" validate:"required"`
	Action     string     `json:"action" validate:"required,oneof=add remove"`
	OccurredAt *time.Time `json:"occurred_at"`
}

type rentalPayload struct {
	ItemID        uuid.UUID       `json:"item_id" validate:"required"`
	CustomerID    string          `json:"customer_id" validate:"required,max=255"`
	StartDate     string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	TotalPrice    decimal.Decimal `json:"total_price" validate:"money"`
	Status        string          `json:"status" validate:"omitempty,oneof=pending confirmed active completed cancelled"`
	PaymentMethod *string         `json:"payment_method" validate:"omitempty,max=20"`
	TransactionID *string         `json:"transaction_id" validate:"omitempty,max=100"`
}

type rentalStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed active completed cancelled"`
}

// VisitorCreate registers or refreshes a browsing session. The client
// address and user agent come from the request itself.
func VisitorCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		var payload visitorPayload
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		visitor, err := svc.UpsertVisitor(ctx, events.VisitorInput{
			SessionKey: payload.SessionKey,
			IPAddress:  middleware.ClientIP(r),
			UserAgent:  r.UserAgent(),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, visitor)
	}
}

func VisitorGet(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		visitor, err := svc.GetVisitor(ctx, chi.URLParam(r, "sessionKey"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, visitor)
	}
}

func ItemViewCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		var payload itemViewPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		fields := map[string]string{}
		source, err := enums.ParseTrafficSource(payload.Source)
		if err != nil {
			fields["source"] = "must be one of organic, direct, social, email, referral, paid"
		}
		device, err := enums.ParseDeviceType(payload.Device)
		if err != nil {
			fields["device"] = "must be one of desktop, mobile, tablet"
		}
		if len(fields) > 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.Validation("invalid item view", fields))
			return
		}
		input := events.ItemViewInput{
			ItemID:     payload.ItemID,
			UserID:     payload.UserID,
			VisitorKey: payload.VisitorKey,
			Source:     source,
			Device:     device,
		}
		if payload.ViewedAt != nil {
			input.ViewedAt = *payload.ViewedAt
		}
		view, err := svc.RecordItemView(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, view)
	}
}

func ItemViewList(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		filter, err := eventFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		views, err := svc.ListItemViews(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

func CartActivityCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		var payload cartActivityPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		action, err := enums.ParseCartAction(payload.Action)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Validation("invalid cart activity", map[string]string{"action": "must be add or remove"}))
			return
		}
		input := events.CartActivityInput{
			VisitorKey: payload.VisitorKey,
			ItemID:     payload.ItemID,
			Action:     action,
		}
		if payload.OccurredAt != nil {
			input.OccurredAt = *payload.OccurredAt
		}
		activity, err := svc.RecordCartActivity(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, activity)
	}
}

func CartActivityList(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		filter, err := eventFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		activities, err := svc.ListCartActivities(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, activities)
	}
}

// RentalCreate books an item. Dates are calendar days and the range is
// inclusive.
func RentalCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		var payload rentalPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		start, _ := time.ParseInLocation(time.DateOnly, payload.StartDate, time.UTC)
		end, _ := time.ParseInLocation(time.DateOnly, payload.EndDate, time.UTC)
		rental, err := svc.RecordRental(ctx, events.RentalInput{
			ItemID:        payload.ItemID,
			CustomerID:    payload.CustomerID,
			StartDate:     start,
			EndDate:       end,
			TotalPrice:    payload.TotalPrice,
			Status:        enums.RentalStatus(payload.Status),
			PaymentMethod: payload.PaymentMethod,
			TransactionID: payload.TransactionID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, rental)
	}
}

func RentalGet(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		id, err := validators.PathUUID(r, "rentalID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rental, err := svc.GetRental(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rental)
	}
}

func RentalList(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		filter, err := eventFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rentals, err := svc.ListRentals(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rentals)
	}
}

// RentalUpdateStatus moves a rental along its lifecycle; backwards moves are
// rejected with a state conflict.
func RentalUpdateStatus(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("event"))
			return
		}
		id, err := validators.PathUUID(r, "rentalID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload rentalStatusPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rental, err := svc.UpdateRentalStatus(ctx, id, enums.RentalStatus(payload.Status))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rental)
	}
}
