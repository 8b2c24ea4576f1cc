package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/internal/catalog"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/pagination"
)

type stubProfiles struct {
	catalog.Service
	input        *catalog.ProfileInput
	availability enums.Availability
	wishlistUser string
	category     string
}

func (s *stubProfiles) CreateProfile(_ context.Context, input catalog.ProfileInput) (*models.ItemManagementProfile, error) {
	s.input = &input
	return &models.ItemManagementProfile{ID: uuid.New()}, nil
}

func (s *stubProfiles) SetAvailability(_ context.Context, id uuid.UUID, availability enums.Availability) (*models.ItemManagementProfile, error) {
	s.availability = availability
	return &models.ItemManagementProfile{ID: id, Availability: &availability}, nil
}

func (s *stubProfiles) ListWishlist(_ context.Context, userID string, _ pagination.Params) (pagination.Page[models.WishlistEntry], error) {
	s.wishlistUser = userID
	return pagination.Page[models.WishlistEntry]{Items: []models.WishlistEntry{}}, nil
}

func (s *stubProfiles) CreateCategory(_ context.Context, name string) (*models.Category, error) {
	s.category = name
	return &models.Category{ID: uuid.New(), Name: name}, nil
}

func TestProfileCreateParsesTypedFields(t *testing.T) {
	svc := &stubProfiles{}
	body := `{"name":"Fleet A","deposit":"50.00","availability":"available","last_maintenance":"2026-02-01","rental_zone":"north"}`
	req := httptest.NewRequest(http.MethodPost, "/item-management-profiles", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/item-management-profiles", ProfileCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.input)
	assert.Equal(t, "Fleet A", *svc.input.Name)
	assert.Equal(t, "50", svc.input.Deposit.String())
	assert.Equal(t, enums.AvailabilityAvailable, *svc.input.Availability)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *svc.input.LastMaintenance)
	assert.Equal(t, "north", *svc.input.RentalZone)
}

func TestProfileCreateRejectsUnknownAvailability(t *testing.T) {
	svc := &stubProfiles{}
	req := httptest.NewRequest(http.MethodPost, "/item-management-profiles", strings.NewReader(`{"availability":"maybe"}`))

	rec := serve(t, http.MethodPost, "/item-management-profiles", ProfileCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.input)
}

func TestProfileSetAvailability(t *testing.T) {
	svc := &stubProfiles{}
	req := httptest.NewRequest(http.MethodPost, "/item-management-profiles/"+uuid.NewString()+"/unavailable", nil)

	rec := serve(t, http.MethodPost, "/item-management-profiles/{profileID}/unavailable",
		ProfileSetAvailability(svc, enums.AvailabilityUnavailable, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.AvailabilityUnavailable, svc.availability)
}

func TestWishlistListRequiresUser(t *testing.T) {
	svc := &stubProfiles{}
	req := httptest.NewRequest(http.MethodGet, "/wishlist-entries", nil)

	rec := serve(t, http.MethodGet, "/wishlist-entries", WishlistList(svc, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.wishlistUser)

	req = httptest.NewRequest(http.MethodGet, "/wishlist-entries?user=user-9", nil)
	rec = serve(t, http.MethodGet, "/wishlist-entries", WishlistList(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-9", svc.wishlistUser)
}

func TestCategoryCreateTrimsName(t *testing.T) {
	svc := &stubProfiles{}
	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"  Power Tools "}`))

	rec := serve(t, http.MethodPost, "/categories", CategoryCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Power Tools", svc.category)
}

func TestCategoryCreateRequiresName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{}`))

	rec := serve(t, http.MethodPost, "/categories", CategoryCreate(&stubProfiles{}, logger.Nop()), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
