package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventInvestmentActivated EventType = "INVESTMENT_ACTIVATED"
	EventInvestmentPaused    EventType = "INVESTMENT_PAUSED"
	EventInvestmentResumed   EventType = "INVESTMENT_RESUMED"
	EventInvestmentCompleted EventType = "INVESTMENT_COMPLETED"
	EventInvestmentCancelled EventType = "INVESTMENT_CANCELLED"
	EventProfitCredited      EventType = "PROFIT_CREDITED"
	EventProfitOverridden    EventType = "PROFIT_OVERRIDDEN"
	EventBatchCompleted      EventType = "BATCH_COMPLETED"
	EventWithdrawalRequested EventType = "WITHDRAWAL_REQUESTED"
	EventWithdrawalReviewed  EventType = "WITHDRAWAL_REVIEWED"
	EventWithdrawalCompleted EventType = "WITHDRAWAL_COMPLETED"
	EventPointsAwarded       EventType = "POINTS_AWARDED"
	EventTierUpgraded        EventType = "TIER_UPGRADED"
	EventEquityRequested     EventType = "EQUITY_REQUESTED"
	EventEquityReviewed      EventType = "EQUITY_REVIEWED"
	EventError               EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	UserID    string                 `json:"user_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
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

// Publish sends an event to all subscribers. Subscribers run in their own
// goroutines so a slow consumer cannot block the publishing path.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishInvestmentStatus publishes a lifecycle transition event.
func (eb *EventBus) PublishInvestmentStatus(eventType EventType, userID, investmentID, status string) {
	eb.Publish(Event{
		Type:   eventType,
		UserID: userID,
		Data: map[string]interface{}{
			"investment_id": investmentID,
			"status":        status,
		},
	})
}

// PublishProfitCredited publishes a profit accrual event
func (eb *EventBus) PublishProfitCredited(userID, investmentID, periodKey string, amount, cumulative float64) {
	eb.Publish(Event{
		Type:   EventProfitCredited,
		UserID: userID,
		Data: map[string]interface{}{
			"investment_id":     investmentID,
			"period_key":        periodKey,
			"amount":            amount,
			"cumulative_profit": cumulative,
		},
	})
}

// PublishBatchCompleted publishes an accrual batch summary event
func (eb *EventBus) PublishBatchCompleted(periodKey string, total, succeeded, failed, skipped int, distributed float64) {
	eb.Publish(Event{
		Type: EventBatchCompleted,
		Data: map[string]interface{}{
			"period_key":  periodKey,
			"total":       total,
			"succeeded":   succeeded,
			"failed":      failed,
			"skipped":     skipped,
			"distributed": distributed,
		},
	})
}

// PublishWithdrawal publishes a withdrawal state event
func (eb *EventBus) PublishWithdrawal(eventType EventType, userID, requestID, status string, amount float64) {
	eb.Publish(Event{
		Type:   eventType,
		UserID: userID,
		Data: map[string]interface{}{
			"request_id": requestID,
			"status":     status,
			"amount":     amount,
		},
	})
}

// PublishPointsAwarded publishes a referral points event
func (eb *EventBus) PublishPointsAwarded(userID string, points, totalPoints int64, tier string) {
	eb.Publish(Event{
		Type:   EventPointsAwarded,
		UserID: userID,
		Data: map[string]interface{}{
			"points":       points,
			"total_points": totalPoints,
			"tier":         tier,
		},
	})
}

// PublishTierUpgraded publishes a tier upgrade event
func (eb *EventBus) PublishTierUpgraded(userID, fromTier, toTier string, bonus int64) {
	eb.Publish(Event{
		Type:   EventTierUpgraded,
		UserID: userID,
		Data: map[string]interface{}{
			"from_tier": fromTier,
			"to_tier":   toTier,
			"bonus":     bonus,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
