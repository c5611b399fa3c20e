package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSignalGenerated  EventType = "SIGNAL_GENERATED"
	EventSignalHold       EventType = "SIGNAL_HOLD"
	EventPlanRejected     EventType = "PLAN_REJECTED"
	EventEvaluationFailed EventType = "EVALUATION_FAILED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Symbol    string                 `json:"symbol,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// Publisher is the publishing side of the bus
type Publisher interface {
	Publish(event Event)
}

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking the evaluation path
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// SignalGenerated builds the event for a directional verdict
func SignalGenerated(evaluationID, symbol, timeframe, direction string, confidence float64, reasons []string) Event {
	return Event{
		Type:   EventSignalGenerated,
		Symbol: symbol,
		Data: map[string]interface{}{
			"evaluation_id": evaluationID,
			"timeframe":     timeframe,
			"direction":     direction,
			"confidence":    confidence,
			"reasons":       reasons,
		},
	}
}

// SignalHold builds the event for a HOLD verdict with the reason no direction was taken
func SignalHold(evaluationID, symbol, timeframe, holdReason string, confidence float64) Event {
	return Event{
		Type:   EventSignalHold,
		Symbol: symbol,
		Data: map[string]interface{}{
			"evaluation_id": evaluationID,
			"timeframe":     timeframe,
			"hold_reason":   holdReason,
			"confidence":    confidence,
		},
	}
}

// PlanRejected builds the event for a trade plan that failed validation
func PlanRejected(evaluationID, symbol, direction string, errors []string) Event {
	return Event{
		Type:   EventPlanRejected,
		Symbol: symbol,
		Data: map[string]interface{}{
			"evaluation_id": evaluationID,
			"direction":     direction,
			"errors":        errors,
		},
	}
}

// EvaluationFailed builds the event for an evaluation that returned an error
func EvaluationFailed(symbol, stage string, err error) Event {
	data := map[string]interface{}{
		"stage": stage,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return Event{
		Type:   EventEvaluationFailed,
		Symbol: symbol,
		Data:   data,
	}
}

// WithPayload attaches an arbitrary payload under "payload"
func (e Event) WithPayload(v interface{}) Event {
	data := make(map[string]interface{}, len(e.Data)+1)
	for k, val := range e.Data {
		data[k] = val
	}
	data["payload"] = v
	e.Data = data
	return e
}
