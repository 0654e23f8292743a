package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the sync queue.
const (
	KindUpsert = "upsert"
	KindDelete = "delete"
)

// TransactionEvent is a lightweight queue message: just enough for the
// worker to fetch the full row from the database. Payloads never travel
// on the queue.
type TransactionEvent struct {
	Kind      string    `json:"kind"`
	Family    string    `json:"family"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUpsertEvent(family, id string) *TransactionEvent {
	return &TransactionEvent{Kind: KindUpsert, Family: family, ID: id, Timestamp: time.Now()}
}

func NewDeleteEvent(family, id string) *TransactionEvent {
	return &TransactionEvent{Kind: KindDelete, Family: family, ID: id, Timestamp: time.Now()}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
