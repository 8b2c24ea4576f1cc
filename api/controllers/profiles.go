package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/api/responses"
	"github.com/rentwise/rentwise-backend/api/validators"
	"github.com/rentwise/rentwise-backend/internal/catalog"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type profilePayload struct {
	Name                *string          `json:"name" validate:"omitempty,max=255"`
	LastMaintenance     *string          `json:"last_maintenance" validate:"omitempty,datetime=2006-01-02"`
	Condition           *string          `json:"condition" validate:"omitempty,max=50"`
	RentalLocation      *string          `json:"rental_location" validate:"omitempty,max=255"`
	Deposit             *decimal.Decimal `json:"deposit" validate:"omitempty,money"`
	Availability        *string          `json:"availability" validate:"omitempty,oneof=available unavailable"`
	RentalZone          *string          `json:"rental_zone" validate:"omitempty,max=255"`
	Location            *string          `json:"location" validate:"omitempty,max=255"`
	ContractDocumentKey *string          `json:"contract_document_key" validate:"omitempty,max=512"`
}

func (p profilePayload) toInput() (catalog.ProfileInput, error) {
	in := catalog.ProfileInput{
		Name:                p.Name,
		Condition:           p.Condition,
		RentalLocation:      p.RentalLocation,
		Deposit:             p.Deposit,
		RentalZone:          p.RentalZone,
		Location:            p.Location,
		ContractDocumentKey: p.ContractDocumentKey,
	}
	if p.LastMaintenance != nil && *p.LastMaintenance != "" {
		day, err := time.ParseInLocation(time.DateOnly, *p.LastMaintenance, time.UTC)
		if err != nil {
			return in, pkgerrors.Validation("invalid profile", map[string]string{"last_maintenance": "must be YYYY-MM-DD"})
		}
		in.LastMaintenance = &day
	}
	if p.Availability != nil && *p.Availability != "" {
		availability, err := enums.ParseAvailability(*p.Availability)
		if err != nil {
			return in, pkgerrors.Validation("invalid profile", map[string]string{"availability": "must be available or unavailable"})
		}
		in.Availability = &availability
	}
	return in, nil
}

func ProfileList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ListProfiles(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ProfileCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		input, err := decodeProfile(w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		profile, err := svc.CreateProfile(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, profile)
	}
}

func ProfileGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "profileID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		profile, err := svc.GetProfile(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func ProfileUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "profileID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := decodeProfile(w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		profile, err := svc.UpdateProfile(ctx, id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// ProfileSetAvailability backs the available and unavailable actions.
func ProfileSetAvailability(svc catalog.Service, availability enums.Availability, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "profileID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		profile, err := svc.SetAvailability(ctx, id, availability)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func ProfileDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "profileID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteProfile(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func decodeProfile(w http.ResponseWriter, r *http.Request) (catalog.ProfileInput, error) {
	var payload profilePayload
	if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
		return catalog.ProfileInput{}, err
	}
	return payload.toInput()
}
