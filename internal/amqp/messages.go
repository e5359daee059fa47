package amqp

import (
	"encoding/json"
	"fmt"

	"financas/internal/core"
)

// EncodeLedgerEvent returns the wire form of ev:
// {"type","owner_id","entity_id","payload","timestamp"}.
func EncodeLedgerEvent(ev core.LedgerEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeLedgerEvent parses a message body. Events without a type or owner are
// rejected.
func DecodeLedgerEvent(data []byte) (core.LedgerEvent, error) {
	var ev core.LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.LedgerEvent{}, err
	}
	if ev.Type == "" || ev.OwnerID == "" {
		return core.LedgerEvent{}, fmt.Errorf("incomplete ledger event: type=%q owner=%q", ev.Type, ev.OwnerID)
	}
	return ev, nil
}
