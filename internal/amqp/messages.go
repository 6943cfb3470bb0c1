package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"gigledger/internal/core"
)

// LedgerSyncMessage announces that one ledger day was saved. It carries only
// the day's identity; the worker reads the stored entry itself.
type LedgerSyncMessage struct {
	UserID    string       `json:"user_id"`
	Date      core.DateKey `json:"date"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewLedgerSyncMessage(uid string, date core.DateKey) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		UserID:    uid,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON decodes and validates a message body.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("missing user_id")
	}
	if !msg.Date.Valid() {
		return nil, core.ErrInvalidDate
	}
	return &msg, nil
}
