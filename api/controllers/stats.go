package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/rentwise/rentwise-backend/api/responses"
	"github.com/rentwise/rentwise-backend/api/validators"
	"github.com/rentwise/rentwise-backend/internal/reporting"
	"github.com/rentwise/rentwise-backend/internal/rollup"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

// RollupRunner recomputes every stats family for one day.
type RollupRunner interface {
	Run(ctx context.Context, date time.Time) (rollup.Result, error)
}

type rollupResponse struct {
	Date     string                `json:"date"`
	Status   string                `json:"status"`
	Families []rollup.FamilyResult `json:"families"`
}

func SiteStats(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("reporting"))
			return
		}
		rng, err := dateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.SiteStats(ctx, rng)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func TrafficSourceStats(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("reporting"))
			return
		}
		rng, err := dateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var source *enums.TrafficSource
		if raw := queryString(r, "source"); raw != nil {
			parsed, err := enums.ParseTrafficSource(*raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Validation("invalid query parameter", map[string]string{"source": "must be one of organic, direct, social, email, referral, paid"}))
				return
			}
			source = &parsed
		}
		rows, err := svc.TrafficSourceStats(ctx, rng, source)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func DeviceStats(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("reporting"))
			return
		}
		rng, err := dateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var device *enums.DeviceType
		if raw := queryString(r, "device"); raw != nil {
			parsed, err := enums.ParseDeviceType(*raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Validation("invalid query parameter", map[string]string{"device": "must be one of desktop, mobile, tablet"}))
				return
			}
			device = &parsed
		}
		rows, err := svc.DeviceStats(ctx, rng, device)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func CategoryStats(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("reporting"))
			return
		}
		rng, err := dateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "category")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.CategoryStats(ctx, rng, categoryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// RollupTrigger recomputes the stats for the date query parameter, or today
// in UTC when absent. Partially failed runs answer 207 with per-family
// outcomes; a run where every family failed is an error.
func RollupTrigger(engine RollupRunner, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if engine == nil {
			responses.WriteError(ctx, logg, w, unavailable("rollup"))
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		day := rollup.Day(now())
		if date != nil {
			day = *date
		}

		res, err := engine.Run(ctx, day)
		body := rollupResponse{
			Date:     rollup.Day(day).Format(time.DateOnly),
			Status:   res.Status(),
			Families: res.Families,
		}
		switch {
		case err == nil:
			responses.WriteSuccess(w, body)
		case body.Status == rollup.StatusPartial:
			responses.WriteSuccessStatus(w, http.StatusMultiStatus, body)
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rollup failed"))
		}
	}
}
