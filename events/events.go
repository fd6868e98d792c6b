package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

type BaseEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

type Event interface {
	GetBase() BaseEvent
}

func (e BaseEvent) GetBase() BaseEvent {
	return e
}

const (
	TransactionPreType  EventType = "TransactionPre"
	TransactionPostType EventType = "TransactionPost"
	TransferPreType     EventType = "TransferPre"
	TransferPostType    EventType = "TransferPost"
)

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
	}
}

// Cancellable is embedded by pre-mutation events. Cancellation cannot be undone.
type Cancellable struct {
	cancelled bool
}

func (c *Cancellable) Cancel() {
	c.cancelled = true
}

func (c *Cancellable) Cancelled() bool {
	return c.cancelled
}
