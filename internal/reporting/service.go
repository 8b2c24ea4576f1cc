package reporting

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/pagination"
)

// Service is the read-only reporting facade over items, events and rollups.
type Service interface {
	ListItems(ctx context.Context, filter ItemFilter) (pagination.Page[models.Item], error)
	SiteStats(ctx context.Context, rng DateRange) ([]models.DailySiteStat, error)
	TrafficSourceStats(ctx context.Context, rng DateRange, source *enums.TrafficSource) ([]models.TrafficSourceStat, error)
	DeviceStats(ctx context.Context, rng DateRange, device *enums.DeviceType) ([]models.DeviceStat, error)
	CategoryStats(ctx context.Context, rng DateRange, categoryID *uuid.UUID) ([]models.CategoryStat, error)
	ItemActivity(ctx context.Context, itemID uuid.UUID, rng DateRange) (ItemActivity, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reporting repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListItems(ctx context.Context, filter ItemFilter) (pagination.Page[models.Item], error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return pagination.Page[models.Item]{}, pkgerrors.Validation("invalid cursor", map[string]string{"cursor": err.Error()})
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return pagination.Page[models.Item]{}, pkgerrors.Validation("invalid item filter", map[string]string{"status": "must be draft or published"})
	}
	items, err := s.repo.ListItems(ctx, filter, cursor)
	if err != nil {
		return pagination.Page[models.Item]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	return pagination.Paginate(items, filter.Limit, func(it models.Item) pagination.Cursor {
		return pagination.Cursor{CreatedAt: it.CreatedAt, ID: it.ID}
	}), nil
}

func (s *service) SiteStats(ctx context.Context, rng DateRange) ([]models.DailySiteStat, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.SiteStats(ctx, rng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list site stats")
	}
	return rows, nil
}

func (s *service) TrafficSourceStats(ctx context.Context, rng DateRange, source *enums.TrafficSource) ([]models.TrafficSourceStat, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if source != nil && !source.IsValid() {
		return nil, pkgerrors.Validation("invalid traffic source", map[string]string{"source": "unknown traffic source"})
	}
	rows, err := s.repo.TrafficSourceStats(ctx, rng, source)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list traffic source stats")
	}
	return rows, nil
}

func (s *service) DeviceStats(ctx context.Context, rng DateRange, device *enums.DeviceType) ([]models.DeviceStat, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if device != nil && !device.IsValid() {
		return nil, pkgerrors.Validation("invalid device", map[string]string{"device": "unknown device type"})
	}
	rows, err := s.repo.DeviceStats(ctx, rng, device)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list device stats")
	}
	return rows, nil
}

func (s *service) CategoryStats(ctx context.Context, rng DateRange, categoryID *uuid.UUID) ([]models.CategoryStat, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.CategoryStats(ctx, rng, categoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list category stats")
	}
	return rows, nil
}

func (s *service) ItemActivity(ctx context.Context, itemID uuid.UUID, rng DateRange) (ItemActivity, error) {
	if err := rng.Validate(); err != nil {
		return ItemActivity{}, err
	}
	ok, err := s.repo.ItemExists(ctx, itemID)
	if err != nil {
		return ItemActivity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}
	if !ok {
		return ItemActivity{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	activity, err := s.repo.ItemActivity(ctx, itemID, rng)
	if err != nil {
		return ItemActivity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item activity")
	}
	return activity, nil
}
