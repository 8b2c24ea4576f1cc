package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/db/dbtest"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

func TestEmitStoresEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())

	reviewID := uuid.New()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventReviewCreated,
			AggregateType: enums.AggregateReview,
			AggregateID:   reviewID,
			Actor:         "customer-7",
			Data:          ReviewCreated{ReviewID: reviewID, OwnerRef: "owner-1", Rating: 4},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, reviewID, rows[0].AggregateID)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, "customer-7", envelope.Actor)
	assert.NotEmpty(t, envelope.EventID)
	assert.JSONEq(t, `{"review_id":"`+reviewID.String()+`","item_id":"00000000-0000-0000-0000-000000000000","owner_ref":"owner-1","rating":4}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
}

func TestEmitRejectsUnknownType(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	err := svc.Emit(context.Background(), conn, DomainEvent{EventType: "bogus", AggregateType: enums.AggregateReview})
	assert.Error(t, err)

	err = svc.Emit(context.Background(), conn, DomainEvent{EventType: enums.EventReviewCreated, AggregateType: "rental"})
	assert.Error(t, err)
}

func TestEmitInfersAggregateType(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	id := uuid.New()
	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:   enums.EventReviewCreated,
		AggregateID: id,
		Data:        ReviewCreated{ReviewID: id},
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "aggregate_id = ?", id).Error)
	assert.Equal(t, enums.AggregateReview, row.AggregateType)
}

func TestPendingLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	published := models.OutboxEvent{EventType: enums.EventReviewCreated, AggregateType: enums.AggregateReview, AggregateID: uuid.New(), Payload: []byte("{}")}
	failing := models.OutboxEvent{EventType: enums.EventReviewCreated, AggregateType: enums.AggregateReview, AggregateID: uuid.New(), Payload: []byte("{}")}
	parked := models.OutboxEvent{EventType: enums.EventReviewCreated, AggregateType: enums.AggregateReview, AggregateID: uuid.New(), Payload: []byte("{}")}
	for _, row := range []*models.OutboxEvent{&published, &failing, &parked} {
		require.NoError(t, conn.Create(row).Error)
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows, err := repo.FetchPendingTx(conn, 10, 3, now)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, published.ID))
	require.NoError(t, repo.MarkFailedTx(conn, failing.ID, errors.New("broker down"), now.Add(time.Minute)))
	require.NoError(t, repo.MarkTerminalTx(conn, parked.ID, errors.New("no owner email")))

	rows, err = repo.FetchPendingTx(conn, 10, 3, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = repo.FetchPendingTx(conn, 10, 3, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, failing.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "broker down", *rows[0].LastError)

	rows, err = repo.FetchPendingTx(conn, 10, 1, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteSettledBeforeKeepsPendingRows(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()
	rows := []*models.OutboxEvent{
		{EventType: enums.EventReviewCreated, AggregateType: enums.AggregateReview, AggregateID: uuid.New(), Payload: []byte("{}"), PublishedAt: &old},
		{EventType: enums.EventReviewCreated, AggregateType: enums.AggregateReview, AggregateID: uuid.New(), Payload: []byte("{}"), TerminalAt: &old},
		{EventType: enums.EventReviewCreated, AggregateType: enums.AggregateReview, AggregateID: uuid.New(), Payload: []byte("{}"), PublishedAt: &recent},
		{EventType: enums.EventReviewCreated, AggregateType: enums.AggregateReview, AggregateID: uuid.New(), Payload: []byte("{}")},
	}
	for _, row := range rows {
		require.NoError(t, conn.Create(row).Error)
	}

	deleted, err := repo.DeleteSettledBeforeTx(conn, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}
