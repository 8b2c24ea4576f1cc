package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/internal/events"
	"github.com/rentwise/rentwise-backend/pkg/db"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/outbox"
)

// ServiceParams groups dependencies for the review service.
type ServiceParams struct {
	DB     *db.Client
	Events events.Service
	Outbox *outbox.Service
	Logger *logger.Logger
}

// Patch edits a review's rating or comment.
type Patch struct {
	Rating  *int
	Comment *string
}

// Service creates and manages item reviews. Creating a review queues the
// owner notification in the same transaction; delivery happens out of band.
type Service interface {
	Create(ctx context.Context, input events.ReviewInput) (*models.Review, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Review, error)
	List(ctx context.Context, filter events.Filter) ([]models.Review, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	db     *db.Client
	events events.Service
	outbox *outbox.Service
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event service is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{db: params.DB, events: params.Events, outbox: params.Outbox, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, input events.ReviewInput) (*models.Review, error) {
	var review *models.Review
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		review, err = s.events.RecordReview(ctx, tx, input)
		if err != nil {
			return err
		}

		var item models.Item
		if err := tx.Select("id", "owner_id").Where("id = ?", review.ItemID).First(&item).Error; err != nil {
			return err
		}
		if item.OwnerID == nil || *item.OwnerID == "" {
			s.logg.Warn(s.logg.WithItemID(ctx, item.ID.String()), "review on item without owner; notification skipped")
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewCreated,
			AggregateType: enums.AggregateReview,
			AggregateID:   review.ID,
			Actor:         review.CustomerID,
			OccurredAt:    review.CreatedAt,
			Data: outbox.ReviewCreated{
				ReviewID: review.ID,
				ItemID:   review.ItemID,
				OwnerRef: *item.OwnerID,
				Rating:   review.Rating,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		s.logg.Error(ctx, "create review failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	return review, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := s.db.DB().WithContext(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	return &review, nil
}

func (s *service) List(ctx context.Context, filter events.Filter) ([]models.Review, error) {
	return s.events.ListReviews(ctx, filter)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*models.Review, error) {
	updates := map[string]any{}
	if patch.Rating != nil {
		if *patch.Rating < 1 || *patch.Rating > 5 {
			return nil, pkgerrors.Validation("invalid review", map[string]string{"rating": "must be between 1 and 5"})
		}
		updates["rating"] = *patch.Rating
	}
	if patch.Comment != nil {
		updates["comment"] = *patch.Comment
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.DB().WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review")
		}
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.DB().WithContext(ctx).Where("id = ?", id).Delete(&models.Review{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete review")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return nil
}
