package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateReview OutboxAggregateType = "review"
)

func (a OutboxAggregateType) IsValid() bool {
	for _, kind := range outboxKinds {
		if kind.aggregate == a {
			return true
		}
	}
	return false
}

// OutboxEventType is the kind of domain event stored in the outbox.
type OutboxEventType string

const (
	EventReviewCreated OutboxEventType = "review_created"
)

type outboxKind struct {
	aggregate OutboxAggregateType
	// notification is the public event name published downstream; empty
	// means the event stays internal.
	notification string
}

var outboxKinds = map[OutboxEventType]outboxKind{
	EventReviewCreated: {aggregate: AggregateReview, notification: "review.created"},
}

func (e OutboxEventType) IsValid() bool {
	_, ok := outboxKinds[e]
	return ok
}

// Aggregate returns the aggregate type the event belongs to.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return outboxKinds[e].aggregate
}

// Notification returns the downstream event name, if the event is published.
func (e OutboxEventType) Notification() (string, bool) {
	kind, ok := outboxKinds[e]
	if !ok || kind.notification == "" {
		return "", false
	}
	return kind.notification, true
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(value)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid outbox event type %q", value)
	}
	return e, nil
}
