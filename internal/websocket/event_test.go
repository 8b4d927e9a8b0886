package websocket

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventTypeCreated, EntityTypePayment, map[string]string{"id": "1"})

	assert.Equal(t, "payment.created", event.Type)
	assert.Equal(t, EntityTypePayment, event.Entity)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEventConstructors(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		wantType string
	}{
		{"payment created", PaymentCreated(nil), "payment.created"},
		{"payment deleted", PaymentDeleted(nil), "payment.deleted"},
		{"loan created", LoanCreated(nil), "loan.created"},
		{"loan updated", LoanUpdated(nil), "loan.updated"},
		{"expense created", ExpenseCreated(nil), "expense.created"},
		{"expense deleted", ExpenseDeleted(nil), "expense.deleted"},
		{"daily close created", DailyCloseCreated(nil), "daily_close.created"},
		{"daily close reopened", DailyCloseReopened(nil), "daily_close.reopened"},
		{"portfolio updated", PortfolioUpdated(nil), "portfolio.updated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.event.Type)
		})
	}
}

func TestEvent_ToJSONOmitsScope(t *testing.T) {
	collectorID := uuid.New()
	event := LoanCreated(map[string]int{"id": 12}).ForCollector(&collectorID).ForManagers()

	data, err := event.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "loan.created", decoded["type"])
	assert.Equal(t, "loan", decoded["entity"])
	assert.Contains(t, decoded, "payload")
	assert.Contains(t, decoded, "timestamp")
	assert.Len(t, decoded, 4)
}

func TestEvent_VisibleTo(t *testing.T) {
	collector := Member{UserID: uuid.New(), Role: "collector"}
	otherCollector := Member{UserID: uuid.New(), Role: "collector"}
	admin := Member{UserID: uuid.New(), Role: "admin"}

	open := ExpenseCreated(nil)
	assert.True(t, open.VisibleTo(collector))
	assert.True(t, open.VisibleTo(admin))

	scoped := ExpenseCreated(nil).ForCollector(&collector.UserID)
	assert.True(t, scoped.VisibleTo(collector))
	assert.False(t, scoped.VisibleTo(otherCollector))
	assert.True(t, scoped.VisibleTo(admin))

	unassigned := ExpenseCreated(nil).ForCollector(nil)
	assert.True(t, unassigned.VisibleTo(otherCollector))

	managers := PortfolioUpdated(nil).ForManagers()
	assert.False(t, managers.VisibleTo(collector))
	assert.True(t, managers.VisibleTo(admin))
}

func TestMember_IsManager(t *testing.T) {
	assert.True(t, Member{Role: "owner"}.IsManager())
	assert.True(t, Member{Role: "admin"}.IsManager())
	assert.False(t, Member{Role: "collector"}.IsManager())
	assert.False(t, Member{}.IsManager())
}
