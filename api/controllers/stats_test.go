package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/internal/rollup"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type stubRollup struct {
	date   time.Time
	result rollup.Result
	err    error
}

func (s *stubRollup) Run(_ context.Context, date time.Time) (rollup.Result, error) {
	s.date = date
	s.result.Date = rollup.Day(date)
	return s.result, s.err
}

func okFamilies() []rollup.FamilyResult {
	out := make([]rollup.FamilyResult, 0, len(rollup.Families()))
	for _, f := range rollup.Families() {
		out = append(out, rollup.FamilyResult{Family: f, Status: rollup.StatusOK, Rows: 1})
	}
	return out
}

func TestRollupTriggerRunsRequestedDate(t *testing.T) {
	engine := &stubRollup{result: rollup.Result{Families: okFamilies()}}
	req := httptest.NewRequest(http.MethodPost, "/site-stats/rollup?date=2026-03-14", nil)

	rec := serve(t, http.MethodPost, "/site-stats/rollup", RollupTrigger(engine, nil, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), engine.date)
	var got rollupResponse
	decodeData(t, rec.Body, &got)
	assert.Equal(t, "2026-03-14", got.Date)
	assert.Equal(t, rollup.StatusOK, got.Status)
	assert.Len(t, got.Families, 4)
}

func TestRollupTriggerDefaultsToToday(t *testing.T) {
	engine := &stubRollup{result: rollup.Result{Families: okFamilies()}}
	now := func() time.Time { return time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC) }
	req := httptest.NewRequest(http.MethodPost, "/site-stats/rollup", nil)

	rec := serve(t, http.MethodPost, "/site-stats/rollup", RollupTrigger(engine, now, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), engine.date)
}

func TestRollupTriggerReportsPartialFailure(t *testing.T) {
	families := okFamilies()
	families[2] = rollup.FamilyResult{Family: rollup.FamilyDevice, Status: rollup.StatusFailed, Error: "boom"}
	engine := &stubRollup{result: rollup.Result{Families: families}, err: errors.New("boom")}
	req := httptest.NewRequest(http.MethodPost, "/site-stats/rollup?date=2026-03-14", nil)

	rec := serve(t, http.MethodPost, "/site-stats/rollup", RollupTrigger(engine, nil, logger.Nop()), req)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	var got rollupResponse
	decodeData(t, rec.Body, &got)
	assert.Equal(t, rollup.StatusPartial, got.Status)
	assert.Equal(t, "boom", got.Families[2].Error)
}

func TestRollupTriggerTotalFailureIsError(t *testing.T) {
	families := make([]rollup.FamilyResult, 0, 4)
	for _, f := range rollup.Families() {
		families = append(families, rollup.FamilyResult{Family: f, Status: rollup.StatusFailed, Error: "db down"})
	}
	engine := &stubRollup{result: rollup.Result{Families: families}, err: errors.New("db down")}
	req := httptest.NewRequest(http.MethodPost, "/site-stats/rollup?date=2026-03-14", nil)

	rec := serve(t, http.MethodPost, "/site-stats/rollup", RollupTrigger(engine, nil, logger.Nop()), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRollupTriggerRejectsBadDate(t *testing.T) {
	engine := &stubRollup{}
	req := httptest.NewRequest(http.MethodPost, "/site-stats/rollup?date=14-03-2026", nil)

	rec := serve(t, http.MethodPost, "/site-stats/rollup", RollupTrigger(engine, nil, logger.Nop()), req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, engine.date.IsZero())
}

func TestSiteStatsRejectsInvertedRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/site-stats?from=2026-03-10&to=2026-03-01", nil)

	rec := serve(t, http.MethodGet, "/site-stats", SiteStats(&stubReporting{}, logger.Nop()), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSiteStatsPassesRange(t *testing.T) {
	svc := &stubReporting{}
	req := httptest.NewRequest(http.MethodGet, "/site-stats?from=2026-03-01&to=2026-03-10", nil)

	rec := serve(t, http.MethodGet, "/site-stats", SiteStats(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), svc.rng.From)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), svc.rng.To)
}

func TestTrafficSourceStatsFiltersBySource(t *testing.T) {
	svc := &stubReporting{}
	req := httptest.NewRequest(http.MethodGet, "/traffic-source-stats?source=email", nil)

	rec := serve(t, http.MethodGet, "/traffic-source-stats", TrafficSourceStats(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.source)
	assert.Equal(t, enums.TrafficSourceEmail, *svc.source)
}

func TestTrafficSourceStatsRejectsUnknownSource(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/traffic-source-stats?source=tv", nil)

	rec := serve(t, http.MethodGet, "/traffic-source-stats", TrafficSourceStats(&stubReporting{}, logger.Nop()), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
