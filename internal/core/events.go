package core

import (
	"encoding/json"
	"time"
)

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventCategoryCreated    EventType = "category.created"
)

type EventType string

// LedgerEvent describes one change made to a user's ledger. Payload holds the
// JSON encoding of the affected Transaction or Category; it is empty for
// deletions.
type LedgerEvent struct {
	Type      EventType       `json:"type"`
	OwnerID   string          `json:"owner_id"`
	EntityID  string          `json:"entity_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewLedgerEvent builds an event for entity, encoding it as the payload when
// it is not nil.
func NewLedgerEvent(typ EventType, ownerID, entityID string, entity any) (LedgerEvent, error) {
	ev := LedgerEvent{
		Type:      typ,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
	if entity != nil {
		b, err := json.Marshal(entity)
		if err != nil {
			return LedgerEvent{}, err
		}
		ev.Payload = b
	}
	return ev, nil
}
