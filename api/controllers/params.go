package controllers

import (
	"net/http"
	"strings"

	"github.com/rentwise/rentwise-backend/api/validators"
	"github.com/rentwise/rentwise-backend/internal/events"
	"github.com/rentwise/rentwise-backend/internal/reporting"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/pagination"
)

const maxListLimit = 500

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

func queryString(r *http.Request, key string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	return &raw
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}

// dateRange reads the from/to day bounds used by every stats listing.
func dateRange(r *http.Request) (reporting.DateRange, error) {
	var rng reporting.DateRange
	from, err := validators.ParseQueryDate(r, "from")
	if err != nil {
		return rng, err
	}
	to, err := validators.ParseQueryDate(r, "to")
	if err != nil {
		return rng, err
	}
	if from != nil {
		rng.From = *from
	}
	if to != nil {
		rng.To = *to
	}
	return rng, rng.Validate()
}

func eventFilter(r *http.Request) (events.Filter, error) {
	var filter events.Filter
	itemID, err := validators.ParseQueryUUID(r, "item")
	if err != nil {
		return filter, err
	}
	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filter, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filter, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxListLimit)
	if err != nil {
		return filter, err
	}
	filter.ItemID = itemID
	filter.VisitorKey = queryString(r, "visitor")
	filter.CustomerID = queryString(r, "customer")
	filter.From = from
	filter.To = to
	filter.Limit = limit
	return filter, nil
}
