// Package merge holds the pure conflict-resolution policies of the sync
// engine. Every function is total: given any local/remote pair it produces a
// winning state, never an error. Inputs are treated as immutable; nested
// maps and slices are copied before modification.
package merge

import "github.com/bunkmate-app/bunkmate/backend/internal/model"

// StatusOutcome captures the decision from ResolveStatus.
type StatusOutcome struct {
	Accepted bool
	Updated  model.DailyStatus
}

// ResolveStatus applies last-write-wins between a locally-held daily status
// and an incoming remote one for the same (userId, date) key. The remote
// record wins only with a strictly larger timestamp; ties keep the existing
// record so a replayed retained message cannot flap state.
func ResolveStatus(existing *model.DailyStatus, incoming model.DailyStatus) StatusOutcome {
	if existing == nil {
		return StatusOutcome{Accepted: true, Updated: incoming}
	}
	if incoming.Timestamp > existing.Timestamp {
		return StatusOutcome{Accepted: true, Updated: incoming}
	}
	return StatusOutcome{Accepted: false, Updated: *existing}
}
