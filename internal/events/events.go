package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventQueueEntryChanged  = "queue_entry_changed"
	EventSalonActiveChanged = "salon_active_changed"
	EventBookingCreated     = "booking_created"
	EventBookingCancelled   = "booking_cancelled"
	EventCustomerNext       = "customer_next"
)

// QueueEventPayload describes the minimal queue snapshot for event consumers.
type QueueEventPayload struct {
	EntryID    int64     `json:"entry_id"`
	SalonID    int64     `json:"salon_id"`
	CustomerID int64     `json:"customer_id"`
	Position   int       `json:"position"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

// SalonEventPayload carries salon-level state changes.
type SalonEventPayload struct {
	SalonID  int64 `json:"salon_id"`
	IsActive bool  `json:"is_active"`
}

// BookingEventPayload describes a booking state change.
type BookingEventPayload struct {
	BookingID       int64     `json:"booking_id"`
	SalonID         int64     `json:"salon_id"`
	CustomerID      int64     `json:"customer_id"`
	Status          string    `json:"status"`
	Date            time.Time `json:"date"`
	CancellationFee float64   `json:"cancellation_fee,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
