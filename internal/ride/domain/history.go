package domain

import (
	"encoding/json"
	"time"
)

// StatusHistoryEntry is one immutable audit record. Entries are append-only;
// ordered by CreatedAt they reconstruct the exact status path of a ride.
// The genesis entry has FromStatus == nil and ToStatus == requested.
type StatusHistoryEntry struct {
	ID         int64           `json:"id"`
	RideID     string          `json:"ride_id"`
	FromStatus *Status         `json:"from_status,omitempty"`
	ToStatus   Status          `json:"to_status"`
	ChangedBy  string          `json:"changed_by"`
	ActorRole  ActorRole       `json:"actor_role"`
	Reason     *string         `json:"reason,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// IsGenesis reports whether this is the creation entry.
func (e *StatusHistoryEntry) IsGenesis() bool {
	return e.FromStatus == nil
}
