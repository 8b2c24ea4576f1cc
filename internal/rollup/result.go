package rollup

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Family names one rollup table family recomputed by the engine.
type Family string

const (
	FamilySite          Family = "site"
	FamilyTrafficSource Family = "traffic_source"
	FamilyDevice        Family = "device"
	FamilyCategory      Family = "category"
)

// Families lists every family in the order the engine runs them.
func Families() []Family {
	return []Family{FamilySite, FamilyTrafficSource, FamilyDevice, FamilyCategory}
}

// Run status values reported per family and for the whole run.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// FamilyResult is the outcome of recomputing one family for one day.
type FamilyResult struct {
	Family Family `json:"family"`
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`

	err error
}

// Result collects the per-family outcomes of a single day's run.
type Result struct {
	Date     time.Time      `json:"date"`
	Families []FamilyResult `json:"families"`
}

// Status is ok when every family succeeded, failed when none did and
// partial otherwise.
func (r Result) Status() string {
	failed := 0
	for _, f := range r.Families {
		if f.Status == StatusFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusOK
	case failed == len(r.Families):
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Err combines every family failure, or nil.
func (r Result) Err() error {
	var combined error
	for _, f := range r.Families {
		if f.err != nil {
			combined = multierr.Append(combined, fmt.Errorf("%s rollup for %s: %w", f.Family, r.Date.Format(time.DateOnly), f.err))
		}
	}
	return combined
}

func (r *Result) add(family Family, rows int, err error) {
	res := FamilyResult{Family: family, Status: StatusOK, Rows: rows}
	if err != nil {
		res.Status = StatusFailed
		res.Rows = 0
		res.Error = err.Error()
		res.err = err
	}
	r.Families = append(r.Families, res)
}
