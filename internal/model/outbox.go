package model

import "time"

// OutboxMessage is an event persisted in the same transaction as the state
// change it describes and relayed to the broker afterwards.
type OutboxMessage struct {
	ID        int64      `db:"id"`
	EventID   string     `db:"event_id"`
	Topic     string     `db:"topic"`
	Key       string     `db:"key"`
	Payload   []byte     `db:"payload"`
	CreatedAt time.Time  `db:"created_at"`
	SentAt    *time.Time `db:"sent_at"`
}
