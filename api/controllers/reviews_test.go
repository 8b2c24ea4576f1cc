package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/internal/events"
	"github.com/rentwise/rentwise-backend/internal/reviews"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type stubReviews struct {
	reviews.Service
	input *events.ReviewInput
	patch *reviews.Patch
}

func (s *stubReviews) Create(_ context.Context, input events.ReviewInput) (*models.Review, error) {
	s.input = &input
	return &models.Review{ID: uuid.New(), ItemID: input.ItemID, Rating: input.Rating}, nil
}

func (s *stubReviews) Update(_ context.Context, id uuid.UUID, patch reviews.Patch) (*models.Review, error) {
	s.patch = &patch
	return &models.Review{ID: id, Rating: *patch.Rating}, nil
}

func TestReviewCreate(t *testing.T) {
	svc := &stubReviews{}
	itemID := uuid.New()
	body := `{"item_id":"` + itemID.String() + `","customer_id":"cust-1","rating":4,"comment":"solid"}`
	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/reviews", ReviewCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.input)
	assert.Equal(t, itemID, svc.input.ItemID)
	assert.Equal(t, 4, svc.input.Rating)
	assert.Equal(t, "solid", *svc.input.Comment)
}

func TestReviewCreateRejectsOutOfRangeRating(t *testing.T) {
	svc := &stubReviews{}
	body := `{"item_id":"` + uuid.NewString() + `","customer_id":"cust-1","rating":6}`
	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/reviews", ReviewCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	details, ok := decodeError(t, rec.Body).Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "rating")
	assert.Nil(t, svc.input)
}

func TestReviewCreateRejectsUnknownFields(t *testing.T) {
	body := `{"item_id":"` + uuid.NewString() + `","customer_id":"cust-1","rating":3,"stars":3}`
	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/reviews", ReviewCreate(&stubReviews{}, logger.Nop()), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewUpdate(t *testing.T) {
	svc := &stubReviews{}
	req := httptest.NewRequest(http.MethodPatch, "/reviews/"+uuid.NewString(), strings.NewReader(`{"rating":2}`))

	rec := serve(t, http.MethodPatch, "/reviews/{reviewID}", ReviewUpdate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.patch)
	assert.Equal(t, 2, *svc.patch.Rating)
	assert.Nil(t, svc.patch.Comment)
}
