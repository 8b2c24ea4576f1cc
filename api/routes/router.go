package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rentwise/rentwise-backend/api/controllers"
	"github.com/rentwise/rentwise-backend/api/middleware"
	"github.com/rentwise/rentwise-backend/internal/catalog"
	"github.com/rentwise/rentwise-backend/internal/events"
	"github.com/rentwise/rentwise-backend/internal/reporting"
	"github.com/rentwise/rentwise-backend/internal/reviews"
	"github.com/rentwise/rentwise-backend/pkg/config"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/metrics"
	"github.com/rentwise/rentwise-backend/pkg/redis"
)

// Pinger is a dependency the readiness probe can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies carries everything the router mounts. Nil pingers are left
// out of the readiness probe; a nil Redis disables idempotency and rate
// limiting.
type Dependencies struct {
	DB       Pinger
	Redis    *redis.Client
	PubSub   Pinger
	BigQuery Pinger

	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Catalog   catalog.Service
	Events    events.Service
	Reviews   reviews.Service
	Reporting reporting.Service
	ItemStats controllers.ItemMetricsReader
	Rollup    controllers.RollupRunner
	Now       func() time.Time
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	var idempotencyStore middleware.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.HTTP.CORSOrigins),
		middleware.Idempotency(idempotencyStore, cfg.HTTP.IdempotencyTTL, logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks(deps)...))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	ingest := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		policy := middleware.NewRateLimitPolicy("ingest", cfg.HTTP.IngestWindow, cfg.HTTP.IngestLimit)
		ingest = middleware.RateLimit(policy, deps.Redis, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemList(deps.Reporting, logg))
			r.Post("/", controllers.ItemCreate(deps.Catalog, logg))
			r.Route("/{itemID}", func(r chi.Router) {
				r.Get("/", controllers.ItemGet(deps.Catalog, logg))
				r.Put("/", controllers.ItemUpdate(deps.Catalog, logg))
				r.Patch("/", controllers.ItemUpdate(deps.Catalog, logg))
				r.Delete("/", controllers.ItemDelete(deps.Catalog, logg))
				r.Post("/draft", controllers.ItemSetStatus(deps.Catalog, enums.ItemStatusDraft, logg))
				r.Post("/publish", controllers.ItemSetStatus(deps.Catalog, enums.ItemStatusPublished, logg))
				r.Get("/metrics", controllers.ItemMetrics(deps.ItemStats, logg))
				r.Get("/activity", controllers.ItemActivity(deps.Reporting, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(deps.Catalog, logg))
			r.Post("/", controllers.CategoryCreate(deps.Catalog, logg))
			r.Get("/{categoryID}", controllers.CategoryGet(deps.Catalog, logg))
			r.Put("/{categoryID}", controllers.CategoryRename(deps.Catalog, logg))
			r.Delete("/{categoryID}", controllers.CategoryDelete(deps.Catalog, logg))
		})

		r.Route("/item-management-profiles", func(r chi.Router) {
			r.Get("/", controllers.ProfileList(deps.Catalog, logg))
			r.Post("/", controllers.ProfileCreate(deps.Catalog, logg))
			r.Get("/{profileID}", controllers.ProfileGet(deps.Catalog, logg))
			r.Patch("/{profileID}", controllers.ProfileUpdate(deps.Catalog, logg))
			r.Delete("/{profileID}", controllers.ProfileDelete(deps.Catalog, logg))
			r.Post("/{profileID}/available", controllers.ProfileSetAvailability(deps.Catalog, enums.AvailabilityAvailable, logg))
			r.Post("/{profileID}/unavailable", controllers.ProfileSetAvailability(deps.Catalog, enums.AvailabilityUnavailable, logg))
		})

		r.Route("/images", func(r chi.Router) {
			r.Get("/", controllers.ImageList(deps.Catalog, logg))
			r.Post("/", controllers.ImageCreate(deps.Catalog, logg))
			r.Get("/{imageID}", controllers.ImageGet(deps.Catalog, logg))
			r.Patch("/{imageID}", controllers.ImageUpdate(deps.Catalog, logg))
			r.Delete("/{imageID}", controllers.ImageDelete(deps.Catalog, logg))
		})

		r.Route("/wishlist-entries", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(deps.Catalog, logg))
			r.Post("/", controllers.WishlistAdd(deps.Catalog, logg))
			r.Delete("/{itemID}", controllers.WishlistRemove(deps.Catalog, logg))
		})

		r.Route("/visitors", func(r chi.Router) {
			r.With(ingest).Post("/", controllers.VisitorCreate(deps.Events, logg))
			r.Get("/{sessionKey}", controllers.VisitorGet(deps.Events, logg))
		})

		r.Route("/item-views", func(r chi.Router) {
			r.Get("/", controllers.ItemViewList(deps.Events, logg))
			r.With(ingest).Post("/", controllers.ItemViewCreate(deps.Events, logg))
		})

		r.Route("/cart-activities", func(r chi.Router) {
			r.Get("/", controllers.CartActivityList(deps.Events, logg))
			r.With(ingest).Post("/", controllers.CartActivityCreate(deps.Events, logg))
		})

		r.Route("/rentals", func(r chi.Router) {
			r.Get("/", controllers.RentalList(deps.Events, logg))
			r.Post("/", controllers.RentalCreate(deps.Events, logg))
			r.Get("/{rentalID}", controllers.RentalGet(deps.Events, logg))
			r.Patch("/{rentalID}/status", controllers.RentalUpdateStatus(deps.Events, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", controllers.ReviewList(deps.Reviews, logg))
			r.Post("/", controllers.ReviewCreate(deps.Reviews, logg))
			r.Get("/{reviewID}", controllers.ReviewGet(deps.Reviews, logg))
			r.Patch("/{reviewID}", controllers.ReviewUpdate(deps.Reviews, logg))
			r.Delete("/{reviewID}", controllers.ReviewDelete(deps.Reviews, logg))
		})

		r.Get("/site-stats", controllers.SiteStats(deps.Reporting, logg))
		r.Post("/site-stats/rollup", controllers.RollupTrigger(deps.Rollup, deps.Now, logg))
		r.Get("/traffic-source-stats", controllers.TrafficSourceStats(deps.Reporting, logg))
		r.Get("/device-stats", controllers.DeviceStats(deps.Reporting, logg))
		r.Get("/category-stats", controllers.CategoryStats(deps.Reporting, logg))
	})

	return r
}

func readyChecks(deps Dependencies) []controllers.ReadyCheck {
	var checks []controllers.ReadyCheck
	add := func(name string, p Pinger) {
		if p != nil {
			checks = append(checks, controllers.ReadyCheck{Name: name, Ping: p.Ping})
		}
	}
	add("database", deps.DB)
	if deps.Redis != nil {
		add("redis", deps.Redis)
	}
	add("pubsub", deps.PubSub)
	add("bigquery", deps.BigQuery)
	return checks
}
