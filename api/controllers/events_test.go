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

	"github.com/rentwise/rentwise-backend/internal/events"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type stubEvents struct {
	events.Service
	visitor *events.VisitorInput
	view    *events.ItemViewInput
	rental  *events.RentalInput
	status  enums.RentalStatus
	filter  events.Filter
	err     error
}

func (s *stubEvents) UpsertVisitor(_ context.Context, input events.VisitorInput) (*models.Visitor, error) {
	s.visitor = &input
	return &models.Visitor{SessionKey: "generated", IPAddress: input.IPAddress, UserAgent: input.UserAgent}, s.err
}

func (s *stubEvents) RecordItemView(_ context.Context, input events.ItemViewInput) (*models.ItemView, error) {
	s.view = &input
	return &models.ItemView{ID: uuid.New(), ItemID: input.ItemID, Source: input.Source, Device: input.Device}, s.err
}

func (s *stubEvents) RecordRental(_ context.Context, input events.RentalInput) (*models.Rental, error) {
	s.rental = &input
	return &models.Rental{ID: uuid.New(), ItemID: input.ItemID, TotalPrice: input.TotalPrice}, s.err
}

func (s *stubEvents) UpdateRentalStatus(_ context.Context, id uuid.UUID, status enums.RentalStatus) (*models.Rental, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &models.Rental{ID: id, Status: status}, nil
}

func (s *stubEvents) ListRentals(_ context.Context, filter events.Filter) ([]models.Rental, error) {
	s.filter = filter
	return []models.Rental{}, s.err
}

func TestVisitorCreateUsesRequestAddressAndAgent(t *testing.T) {
	svc := &stubEvents{}
	req := httptest.NewRequest(http.MethodPost, "/visitors", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent/1.0")

	rec := serve(t, http.MethodPost, "/visitors", VisitorCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.visitor)
	assert.Equal(t, "203.0.113.9", svc.visitor.IPAddress)
	assert.Equal(t, "test-agent/1.0", svc.visitor.UserAgent)
	assert.Empty(t, svc.visitor.SessionKey)
}

func TestVisitorCreateKeepsProvidedSessionKey(t *testing.T) {
	svc := &stubEvents{}
	req := httptest.NewRequest(http.MethodPost, "/visitors", strings.NewReader(`{"session_key":"abc123"}`))

	rec := serve(t, http.MethodPost, "/visitors", VisitorCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "abc123", svc.visitor.SessionKey)
}

func TestItemViewCreateParsesEnums(t *testing.T) {
	svc := &stubEvents{}
	itemID := uuid.New()
	body := `{"item_id":"` + itemID.String() + `","visitor_key":"abc","source":"social","device":"mobile"}`
	req := httptest.NewRequest(http.MethodPost, "/item-views", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/item-views", ItemViewCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.view)
	assert.Equal(t, itemID, svc.view.ItemID)
	assert.Equal(t, enums.TrafficSourceSocial, svc.view.Source)
	assert.Equal(t, enums.DeviceMobile, svc.view.Device)
	assert.True(t, svc.view.ViewedAt.IsZero())
}

func TestItemViewCreateRejectsUnknownSource(t *testing.T) {
	svc := &stubEvents{}
	body := `{"item_id":"` + uuid.NewString() + `","source":"billboard","device":"desktop"}`
	req := httptest.NewRequest(http.MethodPost, "/item-views", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/item-views", ItemViewCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec.Body)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "source")
	assert.Nil(t, svc.view)
}

func TestRentalCreateParsesDatesAndPrice(t *testing.T) {
	svc := &stubEvents{}
	itemID := uuid.New()
	body := `{"item_id":"` + itemID.String() + `","customer_id":"cust-1","start_date":"2026-03-01","end_date":"2026-03-04","total_price":"120.00"}`
	req := httptest.NewRequest(http.MethodPost, "/rentals", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/rentals", RentalCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.rental)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), svc.rental.StartDate)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), svc.rental.EndDate)
	assert.Equal(t, "120", svc.rental.TotalPrice.String())
	assert.Equal(t, enums.RentalStatus(""), svc.rental.Status)
}

func TestRentalCreateRejectsMalformedDate(t *testing.T) {
	svc := &stubEvents{}
	body := `{"item_id":"` + uuid.NewString() + `","customer_id":"cust-1","start_date":"03/01/2026","end_date":"2026-03-04","total_price":10}`
	req := httptest.NewRequest(http.MethodPost, "/rentals", strings.NewReader(body))

	rec := serve(t, http.MethodPost, "/rentals", RentalCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.rental)
}

func TestRentalUpdateStatusRejectsBackwardMove(t *testing.T) {
	svc := &stubEvents{err: pkgerrors.New(pkgerrors.CodeStateConflict, "rental cannot move from completed to pending")}
	req := httptest.NewRequest(http.MethodPatch, "/rentals/"+uuid.NewString()+"/status", strings.NewReader(`{"status":"pending"}`))

	rec := serve(t, http.MethodPatch, "/rentals/{rentalID}/status", RentalUpdateStatus(svc, logger.Nop()), req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, enums.RentalStatusPending, svc.status)
}

func TestRentalListReadsFilter(t *testing.T) {
	svc := &stubEvents{}
	itemID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/rentals?item="+itemID.String()+"&customer=cust-1&from=2026-03-01&limit=5", nil)

	rec := serve(t, http.MethodGet, "/rentals", RentalList(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.filter.ItemID)
	assert.Equal(t, itemID, *svc.filter.ItemID)
	assert.Equal(t, "cust-1", *svc.filter.CustomerID)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *svc.filter.From)
	assert.Nil(t, svc.filter.To)
	assert.Equal(t, 5, svc.filter.Limit)
}
