package websocket

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeDeleted  EventType = "deleted"
	EventTypeReopened EventType = "reopened"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeLoan       EntityType = "loan"
	EntityTypePayment    EntityType = "payment"
	EntityTypeExpense    EntityType = "expense"
	EntityTypeClient     EntityType = "client"
	EntityTypeDailyClose EntityType = "daily_close"
	EntityTypePortfolio  EntityType = "portfolio"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "payment.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "payment"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp

	// delivery scope, not serialized
	collectorID  *uuid.UUID
	managersOnly bool
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ForCollector restricts delivery to managers and the given collector.
// A nil collector leaves the event visible to the whole workspace.
func (e Event) ForCollector(collectorID *uuid.UUID) Event {
	e.collectorID = collectorID
	return e
}

// ForManagers restricts delivery to owners and admins
func (e Event) ForManagers() Event {
	e.managersOnly = true
	return e
}

// VisibleTo reports whether the member may receive the event
func (e Event) VisibleTo(m Member) bool {
	if m.IsManager() {
		return true
	}
	if e.managersOnly {
		return false
	}
	if e.collectorID != nil {
		return *e.collectorID == m.UserID
	}
	return true
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PaymentCreated creates a payment.created event
func PaymentCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypePayment, payload)
}

// PaymentDeleted creates a payment.deleted event
func PaymentDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypePayment, payload)
}

// LoanCreated creates a loan.created event
func LoanCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeLoan, payload)
}

// LoanUpdated creates a loan.updated event
func LoanUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeLoan, payload)
}

// ExpenseCreated creates an expense.created event
func ExpenseCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeExpense, payload)
}

// ExpenseDeleted creates an expense.deleted event
func ExpenseDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeExpense, payload)
}

// DailyCloseCreated creates a daily_close.created event
func DailyCloseCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeDailyClose, payload)
}

// DailyCloseReopened creates a daily_close.reopened event
func DailyCloseReopened(payload interface{}) Event {
	return NewEvent(EventTypeReopened, EntityTypeDailyClose, payload)
}

// PortfolioUpdated creates a portfolio.updated event
func PortfolioUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypePortfolio, payload)
}
