package mqueue

import (
	"encoding/json"
	"time"
)

// Message is one queued item.
type Message struct {
	ID         int64     `json:"id"`
	Queue      string    `json:"queue"`
	Owner      string    `json:"owner,omitempty"`
	LeaseUntil time.Time `json:"lease_until"`
	Payload    string    `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Available reports whether the message may be reserved at now: it has never
// been reserved or its lease has lapsed.
func (m *Message) Available(now time.Time) bool {
	return m.Owner == "" || m.LeaseUntil.Before(now)
}

// Decode unmarshals a JSON payload into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal([]byte(m.Payload), v)
}

// fromUnix converts a stored lease or enqueue timestamp. Zero means the
// message was never leased and maps to the zero time.
func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
