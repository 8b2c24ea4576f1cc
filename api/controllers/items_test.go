package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/internal/catalog"
	"github.com/rentwise/rentwise-backend/internal/itemstats"
	"github.com/rentwise/rentwise-backend/internal/reporting"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/pagination"
)

type stubCatalog struct {
	catalog.Service
	created *catalog.ItemInput
	patched *catalog.ItemPatch
	status  enums.ItemStatus
	item    *models.Item
	err     error
}

func (s *stubCatalog) CreateItem(_ context.Context, input catalog.ItemInput) (*models.Item, error) {
	s.created = &input
	return s.item, s.err
}

func (s *stubCatalog) UpdateItem(_ context.Context, _ uuid.UUID, patch catalog.ItemPatch) (*models.Item, error) {
	s.patched = &patch
	return s.item, s.err
}

func (s *stubCatalog) GetItem(context.Context, uuid.UUID) (*models.Item, error) {
	return s.item, s.err
}

func (s *stubCatalog) SetStatus(_ context.Context, _ uuid.UUID, status enums.ItemStatus) (*models.Item, error) {
	s.status = status
	return s.item, s.err
}

type stubReporting struct {
	reporting.Service
	filter reporting.ItemFilter
	rng    reporting.DateRange
	source *enums.TrafficSource
}

func (s *stubReporting) ListItems(_ context.Context, filter reporting.ItemFilter) (pagination.Page[models.Item], error) {
	s.filter = filter
	return pagination.Page[models.Item]{Items: []models.Item{}}, nil
}

func (s *stubReporting) SiteStats(_ context.Context, rng reporting.DateRange) ([]models.DailySiteStat, error) {
	s.rng = rng
	return []models.DailySiteStat{}, nil
}

func (s *stubReporting) TrafficSourceStats(_ context.Context, rng reporting.DateRange, source *enums.TrafficSource) ([]models.TrafficSourceStat, error) {
	s.rng = rng
	s.source = source
	return []models.TrafficSourceStat{}, nil
}

type stubMetrics struct {
	metrics itemstats.Metrics
	err     error
}

func (s stubMetrics) Snapshot(_ context.Context, itemID uuid.UUID) (itemstats.Metrics, error) {
	s.metrics.ItemID = itemID
	return s.metrics, s.err
}

func TestItemListPassesFilters(t *testing.T) {
	svc := &stubReporting{}
	categoryID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/items?category="+categoryID.String()+"&user=owner-1&rental_zone=north&status=published&limit=10", nil)

	rec := serve(t, http.MethodGet, "/items", ItemList(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.filter.CategoryID)
	assert.Equal(t, categoryID, *svc.filter.CategoryID)
	assert.Equal(t, "owner-1", *svc.filter.OwnerID)
	assert.Equal(t, "north", *svc.filter.RentalZone)
	assert.Equal(t, enums.ItemStatusPublished, *svc.filter.Status)
	assert.Equal(t, 10, svc.filter.Limit)
}

func TestItemListWithoutFiltersLeavesThemOpen(t *testing.T) {
	svc := &stubReporting{}
	req := httptest.NewRequest(http.MethodGet, "/items", nil)

	rec := serve(t, http.MethodGet, "/items", ItemList(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.filter.CategoryID)
	assert.Nil(t, svc.filter.OwnerID)
	assert.Nil(t, svc.filter.RentalZone)
	assert.Nil(t, svc.filter.Status)
}

func TestItemListRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items?status=archived", nil)

	rec := serve(t, http.MethodGet, "/items", ItemList(&stubReporting{}, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec.Body)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
}

func TestItemCreateParsesNestedMultipartForm(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCatalog{item: &models.Item{ID: itemID, Name: "Drill"}}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("name", "Drill"))
	require.NoError(t, writer.WriteField("price_per_day", "12.50"))
	require.NoError(t, writer.WriteField("stuff_management[rental_zone]", "north"))
	require.NoError(t, writer.WriteField("equipment_images[1][url]", "b.jpg"))
	require.NoError(t, writer.WriteField("equipment_images[0][url]", "a.jpg"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/items", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := serve(t, http.MethodPost, "/items", ItemCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Drill", svc.created.Name)
	assert.True(t, decimal.RequireFromString("12.50").Equal(svc.created.PricePerDay))
	require.NotNil(t, svc.created.Profile)
	assert.Equal(t, "north", *svc.created.Profile.RentalZone)
	require.Len(t, svc.created.Images, 2)
	assert.Equal(t, "a.jpg", svc.created.Images[0].URL)
	assert.Equal(t, "b.jpg", svc.created.Images[1].URL)

	var got models.Item
	decodeData(t, rec.Body, &got)
	assert.Equal(t, itemID, got.ID)
}

func TestItemUpdateAcceptsURLEncodedForm(t *testing.T) {
	svc := &stubCatalog{item: &models.Item{ID: uuid.New()}}
	form := url.Values{"name": {"Saw"}}
	path := "/items/" + uuid.NewString()
	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(t, http.MethodPatch, "/items/{itemID}", ItemUpdate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.patched)
	assert.Equal(t, "Saw", *svc.patched.Name)
	assert.Nil(t, svc.patched.PricePerDay)
	assert.Nil(t, svc.patched.Images)
}

func TestItemCreateRejectsBadPrice(t *testing.T) {
	svc := &stubCatalog{}
	form := url.Values{"name": {"Drill"}, "price_per_day": {"cheap"}}
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(t, http.MethodPost, "/items", ItemCreate(svc, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.created)
}

func TestItemGetRejectsMalformedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items/not-a-uuid", nil)

	rec := serve(t, http.MethodGet, "/items/{itemID}", ItemGet(&stubCatalog{}, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemGetNotFound(t *testing.T) {
	svc := &stubCatalog{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found")}
	req := httptest.NewRequest(http.MethodGet, "/items/"+uuid.NewString(), nil)

	rec := serve(t, http.MethodGet, "/items/{itemID}", ItemGet(svc, logger.Nop()), req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item not found", decodeError(t, rec.Body).Message)
}

func TestItemSetStatusPublishes(t *testing.T) {
	svc := &stubCatalog{item: &models.Item{ID: uuid.New(), Status: enums.ItemStatusPublished}}
	req := httptest.NewRequest(http.MethodPost, "/items/"+uuid.NewString()+"/publish", nil)

	rec := serve(t, http.MethodPost, "/items/{itemID}/publish", ItemSetStatus(svc, enums.ItemStatusPublished, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.ItemStatusPublished, svc.status)
}

func TestItemMetricsReturnsSnapshot(t *testing.T) {
	itemID := uuid.New()
	reader := stubMetrics{metrics: itemstats.Metrics{TotalRentals: 3, ViewCount: 12, ConversionRate: 25}}
	req := httptest.NewRequest(http.MethodGet, "/items/"+itemID.String()+"/metrics", nil)

	rec := serve(t, http.MethodGet, "/items/{itemID}/metrics", ItemMetrics(reader, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got itemstats.Metrics
	decodeData(t, rec.Body, &got)
	assert.Equal(t, itemID, got.ItemID)
	assert.EqualValues(t, 3, got.TotalRentals)
	assert.EqualValues(t, 12, got.ViewCount)
	assert.InDelta(t, 25.0, got.ConversionRate, 1e-9)
}

func TestItemHandlersWithoutServiceFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items/"+uuid.NewString(), nil)

	rec := serve(t, http.MethodGet, "/items/{itemID}", ItemGet(nil, logger.Nop()), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
