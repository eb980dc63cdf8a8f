package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"billed/internal/core"
)

var ErrMissingBillID = errors.New("message has no bill id")

// BillSubmittedMessage announces that a bill was stored. The worker loads the
// full record from the repository.
type BillSubmittedMessage struct {
	BillID    string      `json:"bill_id"`
	Email     string      `json:"email"`
	Status    core.Status `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewBillSubmittedMessage(b core.Bill) *BillSubmittedMessage {
	return &BillSubmittedMessage{
		BillID:    b.ID,
		Email:     b.Email,
		Status:    b.Status,
		Timestamp: time.Now(),
	}
}

func (m *BillSubmittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillSubmittedMessageFromJSON decodes a message body.
func BillSubmittedMessageFromJSON(data []byte) (*BillSubmittedMessage, error) {
	var msg BillSubmittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BillID == "" {
		return nil, ErrMissingBillID
	}
	return &msg, nil
}
