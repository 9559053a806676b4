package amqp

import (
	"encoding/json"
	"time"

	"claimdesk/internal/core"
)

// ActivityMessage carries a full audit record over the wire. The consumer
// persists it as-is, so the payload is self-contained and the worker never
// has to read back from the reporting database.
type ActivityMessage struct {
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	ActorRole  string    `json:"actor_role"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Details    string    `json:"details"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewActivityMessage builds a message from an audit record. A zero record
// timestamp is replaced with the current time.
func NewActivityMessage(rec core.ActivityRecord) *ActivityMessage {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ActivityMessage{
		Action:     rec.Action,
		ActorID:    rec.ActorID,
		ActorName:  rec.ActorName,
		ActorRole:  rec.ActorRole,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Details:    rec.Details,
		IPAddress:  rec.IPAddress,
		UserAgent:  rec.UserAgent,
		Timestamp:  ts,
	}
}

// Record converts the message back into the domain audit record.
func (m *ActivityMessage) Record() core.ActivityRecord {
	return core.ActivityRecord{
		Action:     m.Action,
		ActorID:    m.ActorID,
		ActorName:  m.ActorName,
		ActorRole:  m.ActorRole,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Details:    m.Details,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		Timestamp:  m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON creates a message from JSON bytes
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
