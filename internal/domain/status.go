package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange is one entry of an aggregate's append-only status log.
// The current status of an order or return is always the last entry.
type StatusChange struct {
	Status    string    `json:"status"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorRole Role      `json:"actor_role"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

type StatusHistory []StatusChange

func (h StatusHistory) Current() string {
	if len(h) == 0 {
		return ""
	}
	return h[len(h)-1].Status
}

func (h StatusHistory) Append(status string, actor Actor, note string) StatusHistory {
	return append(h, StatusChange{
		Status:    status,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Note:      note,
		At:        time.Now().UTC(),
	})
}
