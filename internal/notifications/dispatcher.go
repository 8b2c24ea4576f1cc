package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/config"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/identity"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 5 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
	defaultRetryBase      = 2 * time.Second
	defaultRetryMax       = 5 * time.Minute

	// EventReviewCreated is the notification name consumers subscribe to.
	EventReviewCreated = "review.created"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchPendingTx(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, retryAt time.Time) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

// EmailResolver maps an owner reference to a deliverable address.
type EmailResolver interface {
	LookupEmail(ctx context.Context, ref string) (string, error)
}

// Publisher is the narrow slice of a Pub/Sub publisher the dispatcher needs.
type Publisher interface {
	Publish(context.Context, *gcppubsub.Message) PublishResult
}

type PublishResult interface {
	Get(context.Context) (string, error)
}

// Message is the JSON body placed on the notification topic.
type Message struct {
	Event   string         `json:"event"`
	Payload MessagePayload `json:"payload"`
}

type MessagePayload struct {
	Email    string    `json:"email"`
	ReviewID uuid.UUID `json:"review_id"`
}

type DispatcherParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Identity   EmailResolver
	// Publisher is usually NewPubSubPublisher(client.NotificationPublisher()).
	Publisher      Publisher
	Ready          func(context.Context) error
	PublishTimeout time.Duration
	Now            func() time.Time
}

// Dispatcher drains the outbox and turns queued domain events into
// user-facing notifications.
type Dispatcher struct {
	logg           *logger.Logger
	db             dbClient
	repo           outboxRepository
	identity       EmailResolver
	pub            Publisher
	ready          func(context.Context) error
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
	retryBase      time.Duration
	retryMax       time.Duration
	now            func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Identity == nil {
		return nil, errors.New("identity resolver is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("notification publisher is required")
	}

	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	timeout := params.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	retryBase := params.Config.RetryBase
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}
	retryMax := params.Config.RetryMax
	if retryMax < retryBase {
		retryMax = max(defaultRetryMax, retryBase)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		logg:           params.Logger,
		db:             params.DB,
		repo:           params.Repository,
		identity:       params.Identity,
		pub:            params.Publisher,
		ready:          params.Ready,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		pollInterval:   time.Duration(pollMs) * time.Millisecond,
		publishTimeout: timeout,
		retryBase:      retryBase,
		retryMax:       retryMax,
		now:            now,
	}, nil
}

func (d *Dispatcher) ensureReadiness(ctx context.Context) error {
	if err := d.db.Ping(ctx); err != nil {
		d.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if d.ready != nil {
		if err := d.ready(ctx); err != nil {
			d.logg.Error(ctx, "pubsub ping failed", err)
			return fmt.Errorf("pubsub ping failed: %w", err)
		}
	}
	return nil
}

// Run polls until ctx is canceled. Batch errors back off exponentially.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := d.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "notification dispatcher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := d.ProcessBatch(ctx)
		if err != nil {
			d.logg.Error(ctx, "notification batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if processed {
			continue
		}
		if err := sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// ProcessBatch handles one batch of pending rows and reports whether any
// were found.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (bool, error) {
	processed := false
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := d.repo.FetchPendingTx(tx, d.batchSize, d.maxAttempts, d.now())
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		for _, event := range events {
			if err := d.handle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (d *Dispatcher) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	fields := d.eventFields(event)

	msg, err := d.build(ctx, event)
	if err != nil {
		var suppress suppressedError
		if errors.As(err, &suppress) {
			return d.terminal(ctx, tx, event, fields, err)
		}
		return d.retry(ctx, tx, event, fields, err)
	}

	if err := d.publish(ctx, event, msg); err != nil {
		return d.retry(ctx, tx, event, fields, err)
	}

	if err := d.repo.MarkPublishedTx(tx, event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	d.logg.Info(d.logg.WithFields(ctx, fields), "notification published")
	return nil
}

// suppressedError marks a row that can never be delivered.
type suppressedError struct{ err error }

func (e suppressedError) Error() string { return e.err.Error() }
func (e suppressedError) Unwrap() error { return e.err }

func (d *Dispatcher) build(ctx context.Context, event models.OutboxEvent) (Message, error) {
	name, ok := event.EventType.Notification()
	if !ok || event.EventType != enums.EventReviewCreated {
		return Message{}, suppressedError{fmt.Errorf("no notification for event type %q", event.EventType)}
	}
	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return Message{}, suppressedError{fmt.Errorf("decode envelope: %w", err)}
	}
	var data outbox.ReviewCreated
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return Message{}, suppressedError{fmt.Errorf("decode review payload: %w", err)}
	}

	email, err := d.identity.LookupEmail(ctx, data.OwnerRef)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Message{}, suppressedError{fmt.Errorf("owner %q has no email: %w", data.OwnerRef, err)}
		}
		if !pkgerrors.IsRetryable(err) {
			return Message{}, suppressedError{fmt.Errorf("identity lookup rejected: %w", err)}
		}
		return Message{}, fmt.Errorf("identity lookup: %w", err)
	}

	return Message{
		Event: name,
		Payload: MessagePayload{
			Email:    email,
			ReviewID: data.ReviewID,
		},
	}, nil
}

func (d *Dispatcher) publish(ctx context.Context, event models.OutboxEvent, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	publishCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	result := d.pub.Publish(publishCtx, &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event":        msg.Event,
			"outbox_id":    event.ID.String(),
			"aggregate_id": event.AggregateID.String(),
		},
	})
	if result == nil {
		return errors.New("publisher returned no result")
	}
	_, err = result.Get(publishCtx)
	return err
}

func (d *Dispatcher) retry(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, fields map[string]any, err error) error {
	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= d.maxAttempts {
		fields["terminal_reason"] = "max_attempts"
		return d.terminal(ctx, tx, event, fields, fmt.Errorf("max publish attempts reached: %w", err))
	}

	retryAt := d.now().Add(d.retryDelay(nextAttempt))
	fields["next_attempt_at"] = retryAt.UTC().Format(time.RFC3339)
	logCtx := d.logg.WithField(d.logg.WithFields(ctx, fields), "error", err.Error())
	d.logg.Warn(logCtx, "notification publish failed")
	if markErr := d.repo.MarkFailedTx(tx, event.ID, err, retryAt); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return nil
}

func (d *Dispatcher) terminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, fields map[string]any, err error) error {
	logCtx := d.logg.WithField(d.logg.WithFields(ctx, fields), "error", err.Error())
	d.logg.Warn(logCtx, "notification will not be retried")
	if markErr := d.repo.MarkTerminalTx(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func (d *Dispatcher) eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// retryDelay is how long a row waits after its attempt-th failure.
func (d *Dispatcher) retryDelay(attempt int) time.Duration {
	delay := d.retryBase
	for i := 1; i < attempt && delay < d.retryMax; i++ {
		delay *= 2
	}
	return min(delay, d.retryMax)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
