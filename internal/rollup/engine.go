package rollup

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/bigquery"
	"github.com/rentwise/rentwise-backend/pkg/db"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/metrics"
)

// MaxBackfillDays bounds a single Backfill call.
const MaxBackfillDays = 366

// SiteStatExporter ships a recomputed site row to the warehouse.
type SiteStatExporter interface {
	ExportSiteStat(ctx context.Context, row bigquery.SiteStatRow) error
}

// EngineParams groups dependencies for the rollup engine.
type EngineParams struct {
	DB       *db.Client
	Logger   *logger.Logger
	Metrics  *metrics.RollupMetrics
	Exporter SiteStatExporter
	Now      func() time.Time
}

// Engine recomputes the daily rollup tables from raw events. Runs for the
// same family and day are serialized; the last to commit saw every event
// committed before it started reading.
type Engine struct {
	db       *db.Client
	repo     *Repository
	logg     *logger.Logger
	metrics  *metrics.RollupMetrics
	exporter SiteStatExporter
	now      func() time.Time
	locks    *keyedMutex
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Engine{
		db:       params.DB,
		repo:     NewRepository(),
		logg:     params.Logger,
		metrics:  params.Metrics,
		exporter: params.Exporter,
		now:      params.Now,
		locks:    newKeyedMutex(),
	}, nil
}

// Run recomputes every family for the UTC day containing date. A failing
// family does not stop the others; the returned error combines failures and
// the Result reports each family's outcome.
func (e *Engine) Run(ctx context.Context, date time.Time) (Result, error) {
	day := Day(date)
	ctx = e.logg.WithRollupDate(ctx, day)
	res := Result{Date: day}

	var site *models.DailySiteStat
	for _, family := range Families() {
		fctx := e.logg.WithField(ctx, "family", string(family))
		if err := ctx.Err(); err != nil {
			res.add(family, 0, err)
			continue
		}
		rows, row, err := e.runFamily(fctx, family, day)
		if err != nil {
			e.logg.Error(fctx, "rollup family failed", err)
		}
		if row != nil {
			site = row
		}
		res.add(family, rows, err)
	}

	if site != nil && e.exporter != nil {
		if err := e.exporter.ExportSiteStat(ctx, siteRow(*site)); err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "site stat export failed")
		}
	}

	e.logg.Info(e.logg.WithField(ctx, "status", res.Status()), "rollup run finished")
	return res, res.Err()
}

// Backfill runs the engine for every day in [from, to].
func (e *Engine) Backfill(ctx context.Context, from, to time.Time) ([]Result, error) {
	start, end := Day(from), Day(to)
	if end.Before(start) {
		return nil, pkgerrors.Validation("invalid backfill range", map[string]string{"to": "must not be before from"})
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxBackfillDays {
		return nil, pkgerrors.Validation("invalid backfill range", map[string]string{
			"to": fmt.Sprintf("range must cover at most %d days", MaxBackfillDays),
		})
	}

	var (
		results []Result
		errs    error
	)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return results, multierr.Append(errs, err)
		}
		res, err := e.Run(ctx, day)
		results = append(results, res)
		errs = multierr.Append(errs, err)
	}
	return results, errs
}

func (e *Engine) runFamily(ctx context.Context, family Family, day time.Time) (int, *models.DailySiteStat, error) {
	key := fmt.Sprintf("rollup:%s:%s", family, day.Format(time.DateOnly))
	release := e.locks.Lock(key)
	defer release()

	started := time.Now()
	var (
		rows int
		site *models.DailySiteStat
	)
	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := db.AdvisoryXactLock(tx, key); err != nil {
			return err
		}
		var err error
		switch family {
		case FamilySite:
			site, err = e.recomputeSite(tx, day)
			if site != nil {
				rows = 1
			}
		case FamilyTrafficSource:
			rows, err = e.recomputeTrafficSources(tx, day)
		case FamilyDevice:
			rows, err = e.recomputeDevices(tx, day)
		case FamilyCategory:
			rows, err = e.recomputeCategories(tx, day)
		default:
			err = fmt.Errorf("unknown rollup family %q", family)
		}
		return err
	})

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeFailed
		rows, site = 0, nil
	}
	e.metrics.ObserveFamily(string(family), outcome, rows, time.Since(started))
	return rows, site, err
}

func (e *Engine) recomputeSite(tx *gorm.DB, day time.Time) (*models.DailySiteStat, error) {
	from, to := day, day.AddDate(0, 0, 1)
	visitors, err := e.repo.CountVisitorsTx(tx, from, to)
	if err != nil {
		return nil, err
	}
	views, err := e.repo.CountViewsTx(tx, from, to)
	if err != nil {
		return nil, err
	}
	rentals, err := e.repo.LoadRentalsTx(tx, from, to)
	if err != nil {
		return nil, err
	}
	row := ComputeSite(day, visitors, views, rentals, e.now())
	if err := e.repo.UpsertSiteTx(tx, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (e *Engine) loadFacts(tx *gorm.DB, day time.Time) ([]ViewFact, []RentalFact, error) {
	from, to := day, day.AddDate(0, 0, 1)
	views, err := e.repo.LoadViewsTx(tx, from, to)
	if err != nil {
		return nil, nil, err
	}
	rentals, err := e.repo.LoadRentalsTx(tx, from, to)
	if err != nil {
		return nil, nil, err
	}
	return views, rentals, nil
}

func (e *Engine) recomputeTrafficSources(tx *gorm.DB, day time.Time) (int, error) {
	views, rentals, err := e.loadFacts(tx, day)
	if err != nil {
		return 0, err
	}
	rows := ComputeTrafficSources(day, views, rentals, e.now())
	return len(rows), e.repo.UpsertTrafficSourcesTx(tx, rows)
}

func (e *Engine) recomputeDevices(tx *gorm.DB, day time.Time) (int, error) {
	views, rentals, err := e.loadFacts(tx, day)
	if err != nil {
		return 0, err
	}
	rows := ComputeDevices(day, views, rentals, e.now())
	return len(rows), e.repo.UpsertDevicesTx(tx, rows)
}

func (e *Engine) recomputeCategories(tx *gorm.DB, day time.Time) (int, error) {
	views, rentals, err := e.loadFacts(tx, day)
	if err != nil {
		return 0, err
	}
	existing, err := e.repo.CategoryIDsTx(tx, day)
	if err != nil {
		return 0, err
	}
	rows := ComputeCategories(day, views, rentals, existing, e.now())
	return len(rows), e.repo.UpsertCategoriesTx(tx, rows)
}

func siteRow(s models.DailySiteStat) bigquery.SiteStatRow {
	return bigquery.SiteStatRow{
		Date:           civil.DateOf(s.Date),
		TotalVisitors:  s.TotalVisitors,
		TotalPageViews: s.TotalPageViews,
		TotalRentals:   s.TotalRentals,
		TotalRevenue:   s.TotalRevenue.StringFixed(2),
		AvgOrderValue:  s.AvgOrderValue.StringFixed(2),
		ConversionRate: s.ConversionRate,
		ComputedAt:     s.ComputedAt,
	}
}
