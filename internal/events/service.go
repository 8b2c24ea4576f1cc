package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/db"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

// ServiceParams groups dependencies for the event store service.
type ServiceParams struct {
	DB     *db.Client
	Repo   *Repository
	Logger *logger.Logger
	Now    func() time.Time
}

// Service records behavioral events and serves them back for reads.
type Service interface {
	UpsertVisitor(ctx context.Context, input VisitorInput) (*models.Visitor, error)
	RecordItemView(ctx context.Context, input ItemViewInput) (*models.ItemView, error)
	RecordCartActivity(ctx context.Context, input CartActivityInput) (*models.CartActivity, error)
	RecordRental(ctx context.Context, input RentalInput) (*models.Rental, error)
	UpdateRentalStatus(ctx context.Context, id uuid.UUID, status enums.RentalStatus) (*models.Rental, error)
	RecordReview(ctx context.Context, tx *gorm.DB, input ReviewInput) (*models.Review, error)

	GetVisitor(ctx context.Context, key string) (*models.Visitor, error)
	GetRental(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	ListItemViews(ctx context.Context, filter Filter) ([]models.ItemView, error)
	ListCartActivities(ctx context.Context, filter Filter) ([]models.CartActivity, error)
	ListRentals(ctx context.Context, filter Filter) ([]models.Rental, error)
	ListReviews(ctx context.Context, filter Filter) ([]models.Review, error)
}

type service struct {
	db   *db.Client
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Repo == nil {
		params.Repo = NewRepository(params.DB.DB())
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{db: params.DB, repo: params.Repo, logg: params.Logger, now: params.Now}, nil
}

func (s *service) UpsertVisitor(ctx context.Context, input VisitorInput) (*models.Visitor, error) {
	key, err := sessionKey(input.SessionKey, true)
	if err != nil {
		return nil, err
	}
	seen := utc(input.SeenAt, s.now)
	visitor := models.Visitor{
		SessionKey:  key,
		IPAddress:   strings.TrimSpace(input.IPAddress),
		UserAgent:   input.UserAgent,
		FirstSeenAt: seen,
		LastSeenAt:  seen,
	}
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.TouchVisitorTx(tx, visitor)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert visitor")
	}
	return s.repo.GetVisitor(ctx, key)
}

func (s *service) RecordItemView(ctx context.Context, input ItemViewInput) (*models.ItemView, error) {
	fields := map[string]string{}
	if input.ItemID == uuid.Nil {
		fields["item_id"] = "required"
	}
	if !input.Source.IsValid() {
		fields["source"] = "must be one of organic, direct, social, email, referral, paid"
	}
	if !input.Device.IsValid() {
		fields["device"] = "must be one of desktop, mobile, tablet"
	}
	var visitorKey *string
	if input.VisitorKey != nil && strings.TrimSpace(*input.VisitorKey) != "" {
		key, err := sessionKey(*input.VisitorKey, false)
		if err != nil {
			fields["visitor_key"] = "must be at most 40 characters"
		} else {
			visitorKey = &key
		}
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid item view", fields)
	}

	view := &models.ItemView{
		ItemID:     input.ItemID,
		UserID:     trimmedPtr(input.UserID),
		VisitorKey: visitorKey,
		Source:     input.Source,
		Device:     input.Device,
		ViewedAt:   utc(input.ViewedAt, s.now),
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.InsertItemViewTx(tx, view); err != nil {
			return err
		}
		if visitorKey == nil {
			return nil
		}
		return s.repo.TouchVisitorTx(tx, models.Visitor{SessionKey: *visitorKey, LastSeenAt: view.ViewedAt})
	})
	if err != nil {
		return nil, s.mapWriteErr(ctx, err, "record item view")
	}
	return view, nil
}

func (s *service) RecordCartActivity(ctx context.Context, input CartActivityInput) (*models.CartActivity, error) {
	fields := map[string]string{}
	key, err := sessionKey(input.VisitorKey, false)
	if err != nil || key == "" {
		fields["visitor_key"] = "required, at most 40 characters"
	}
	if input.ItemID == uuid.Nil {
		fields["item_id"] = "required"
	}
	if !input.Action.IsValid() {
		fields["action"] = "must be add or remove"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid cart activity", fields)
	}

	activity := &models.CartActivity{
		VisitorKey: key,
		ItemID:     input.ItemID,
		Action:     input.Action,
		OccurredAt: utc(input.OccurredAt, s.now),
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.InsertCartActivityTx(tx, activity); err != nil {
			return err
		}
		return s.repo.TouchVisitorTx(tx, models.Visitor{SessionKey: key, LastSeenAt: activity.OccurredAt})
	})
	if err != nil {
		return nil, s.mapWriteErr(ctx, err, "record cart activity")
	}
	return activity, nil
}

func (s *service) RecordRental(ctx context.Context, input RentalInput) (*models.Rental, error) {
	fields := map[string]string{}
	if input.ItemID == uuid.Nil {
		fields["item_id"] = "required"
	}
	if strings.TrimSpace(input.CustomerID) == "" {
		fields["customer_id"] = "required"
	}
	if input.StartDate.IsZero() {
		fields["start_date"] = "required"
	}
	if input.EndDate.IsZero() {
		fields["end_date"] = "required"
	}
	start, end := dateOnly(input.StartDate), dateOnly(input.EndDate)
	if !input.StartDate.IsZero() && !input.EndDate.IsZero() && end.Before(start) {
		fields["end_date"] = "must not be before start_date"
	}
	if input.TotalPrice.IsNegative() {
		fields["total_price"] = "must be greater than or equal to 0"
	}
	status := input.Status
	if status == "" {
		status = enums.RentalStatusPending
	}
	if !status.IsValid() {
		fields["status"] = "must be one of pending, confirmed, active, completed, cancelled"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid rental", fields)
	}

	rental := &models.Rental{
		ItemID:        input.ItemID,
		CustomerID:    strings.TrimSpace(input.CustomerID),
		StartDate:     start,
		EndDate:       end,
		TotalPrice:    input.TotalPrice,
		Status:        status,
		PaymentMethod: trimmedPtr(input.PaymentMethod),
		TransactionID: trimmedPtr(input.TransactionID),
		CreatedAt:     utc(input.CreatedAt, s.now),
	}
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.InsertRentalTx(tx, rental)
	}); err != nil {
		return nil, s.mapWriteErr(ctx, err, "record rental")
	}
	return rental, nil
}

// UpdateRentalStatus advances a rental through its lifecycle. It is the only
// mutation of a recorded event; every other column stays as inserted.
func (s *service) UpdateRentalStatus(ctx context.Context, id uuid.UUID, status enums.RentalStatus) (*models.Rental, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Validation("invalid rental status", map[string]string{
			"status": "must be one of pending, confirmed, active, completed, cancelled",
		})
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rental, err := s.repo.FindRentalTx(tx, id)
		if err != nil {
			return err
		}
		if rental.Status == status {
			return nil
		}
		if !rental.Status.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental cannot move from "+rental.Status.String()+" to "+status.String())
		}
		return s.repo.SetRentalStatusTx(tx, id, status)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "rental not found")
		}
		return nil, s.mapWriteErr(ctx, err, "update rental status")
	}
	return s.GetRental(ctx, id)
}

// RecordReview inserts a review inside tx when given so callers can attach
// further writes to the same transaction.
func (s *service) RecordReview(ctx context.Context, tx *gorm.DB, input ReviewInput) (*models.Review, error) {
	fields := map[string]string{}
	if input.ItemID == uuid.Nil {
		fields["item_id"] = "required"
	}
	if strings.TrimSpace(input.CustomerID) == "" {
		fields["customer_id"] = "required"
	}
	if input.Rating < 1 || input.Rating > 5 {
		fields["rating"] = "must be between 1 and 5"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid review", fields)
	}

	review := &models.Review{
		ItemID:     input.ItemID,
		CustomerID: strings.TrimSpace(input.CustomerID),
		Rating:     input.Rating,
		Comment:    input.Comment,
		CreatedAt:  utc(input.CreatedAt, s.now),
	}
	var err error
	if tx != nil {
		err = s.repo.InsertReviewTx(tx, review)
	} else {
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.repo.InsertReviewTx(tx, review)
		})
	}
	if err != nil {
		return nil, s.mapWriteErr(ctx, err, "record review")
	}
	return review, nil
}

func (s *service) GetVisitor(ctx context.Context, key string) (*models.Visitor, error) {
	visitor, err := s.repo.GetVisitor(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, mapReadErr(err, "visitor")
	}
	return visitor, nil
}

func (s *service) GetRental(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	rental, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return nil, mapReadErr(err, "rental")
	}
	return rental, nil
}

func (s *service) ListItemViews(ctx context.Context, filter Filter) ([]models.ItemView, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListItemViews(ctx, filter)
}

func (s *service) ListCartActivities(ctx context.Context, filter Filter) ([]models.CartActivity, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListCartActivities(ctx, filter)
}

func (s *service) ListRentals(ctx context.Context, filter Filter) ([]models.Rental, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListRentals(ctx, filter)
}

func (s *service) ListReviews(ctx context.Context, filter Filter) ([]models.Review, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListReviews(ctx, filter)
}

func (s *service) mapWriteErr(ctx context.Context, err error, op string) error {
	if errors.Is(err, ErrItemNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	s.logg.Error(ctx, op+" failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func mapReadErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+what)
}

func validateFilter(f Filter) error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return pkgerrors.Validation("invalid date range", map[string]string{"to": "must not be before from"})
	}
	return nil
}

// sessionKey trims and bounds a session key. When generate is set an empty
// key is replaced by a fresh random one.
func sessionKey(raw string, generate bool) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" && generate {
		return strings.ReplaceAll(uuid.NewString(), "-", ""), nil
	}
	if len(key) > maxSessionKeyLen {
		return "", pkgerrors.Validation("invalid session key", map[string]string{"session_key": "must be at most 40 characters"})
	}
	return key, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
