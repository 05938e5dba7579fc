// Package events carries record-change notifications from the API to the
// dashboard worker over AMQP.
package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TypeRecordChanged is the only message type published today.
const TypeRecordChanged = "record.changed"

// Actions carried by a record.changed message.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

var ErrInvalidMessage = errors.New("invalid message")

// Message tells consumers that a record of a user changed. It carries ids
// only; consumers reload what they need.
type Message struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	Entity     string    `json:"entity"`
	EntityID   uint      `json:"entity_id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewRecordChanged(userID uint, entity string, entityID uint, action string) *Message {
	return &Message{
		ID:         uuid.New(),
		Type:       TypeRecordChanged,
		UserID:     userID,
		Entity:     entity,
		EntityID:   entityID,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON decodes a message and rejects ones without type or user.
func FromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Join(ErrInvalidMessage, err)
	}
	if msg.Type == "" || msg.UserID == 0 {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}
