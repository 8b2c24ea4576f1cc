package controllers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rentwise/rentwise-backend/api/responses"
	"github.com/rentwise/rentwise-backend/api/validators"
	"github.com/rentwise/rentwise-backend/internal/catalog"
	"github.com/rentwise/rentwise-backend/internal/itemstats"
	"github.com/rentwise/rentwise-backend/internal/reporting"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

const maxItemFormBytes = 16 << 20

// ItemMetricsReader serves the per-item metric snapshot.
type ItemMetricsReader interface {
	Snapshot(ctx context.Context, itemID uuid.UUID) (itemstats.Metrics, error)
}

// ItemList returns items newest first, filtered by category, owner, rental
// zone and status.
func ItemList(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("reporting"))
			return
		}

		categoryID, err := validators.ParseQueryUUID(r, "category")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter := reporting.ItemFilter{
			CategoryID: categoryID,
			OwnerID:    queryString(r, "user"),
			RentalZone: queryString(r, "rental_zone"),
			Cursor:     page.Cursor,
			Limit:      page.Limit,
		}
		if raw := queryString(r, "status"); raw != nil {
			status, err := enums.ParseItemStatus(*raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Validation("invalid query parameter", map[string]string{"status": "must be draft or published"}))
				return
			}
			filter.Status = &status
		}

		items, err := svc.ListItems(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ItemCreate accepts a multipart or urlencoded item form, including nested
// management profile and image keys.
func ItemCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		form, err := readItemForm(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.CreateItem(ctx, form.CreateInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, item)
	}
}

func ItemGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.GetItem(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ItemUpdate applies the fields present in the form. Sending any image keys
// replaces the item's image set.
func ItemUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		form, err := readItemForm(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.UpdateItem(ctx, id, form.Patch())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ItemDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteItem(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ItemSetStatus backs the draft and publish actions.
func ItemSetStatus(svc catalog.Service, status enums.ItemStatus, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.SetStatus(ctx, id, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ItemMetrics returns rentals, revenue, rating, views, conversion and, for
// managed items, utilization.
func ItemMetrics(reader ItemMetricsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reader == nil {
			responses.WriteError(ctx, logg, w, unavailable("item metrics"))
			return
		}
		id, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithItemID(ctx, id.String())
		}
		metrics, err := reader.Snapshot(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, metrics)
	}
}

// ItemActivity summarizes an item's views, rentals and reviews between the
// from and to days.
func ItemActivity(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("reporting"))
			return
		}
		id, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rng, err := dateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		activity, err := svc.ItemActivity(ctx, id, rng)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, activity)
	}
}

func readItemForm(r *http.Request) (catalog.ItemForm, error) {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxItemFormBytes); err != nil {
			return catalog.ItemForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
		}
		return catalog.ParseItemForm(r.MultipartForm)
	}
	if err := r.ParseForm(); err != nil {
		return catalog.ItemForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	return catalog.ParseItemForm(&multipart.Form{Value: r.PostForm})
}
