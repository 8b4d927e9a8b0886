package messaging

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyClosedMessage announces that a collection day was closed
type DailyClosedMessage struct {
	CloseID        int32           `json:"closeId"`
	WorkspaceID    int32           `json:"workspaceId"`
	CollectorID    *uuid.UUID      `json:"collectorId,omitempty"`
	Date           string          `json:"date"`
	CollectedTotal decimal.Decimal `json:"collectedTotal"`
	ExpensesTotal  decimal.Decimal `json:"expensesTotal"`
	DisbursedTotal decimal.Decimal `json:"disbursedTotal"`
	NetCash        decimal.Decimal `json:"netCash"`
	SnapshotPath   *string         `json:"snapshotPath,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *DailyClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DailyClosedMessageFromJSON decodes a message
func DailyClosedMessageFromJSON(data []byte) (*DailyClosedMessage, error) {
	var msg DailyClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
