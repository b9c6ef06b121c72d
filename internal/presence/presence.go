// Package presence infers online/offline state from heartbeat recency.
// There is no disconnect signal on the wire; a peer is online exactly while
// its last heartbeat is younger than the timeout, three times the heartbeat
// interval.
package presence

import (
	"sort"
	"time"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
)

// OnlineTimeout is the failure-detection window. A user whose last heartbeat
// is at least this old reads as offline.
const OnlineTimeout = 15 * time.Second

// Tracker derives presence on demand from stored heartbeat timestamps.
// Nothing is cached: every query recomputes against the injected clock.
type Tracker struct {
	now func() time.Time
}

// New constructs a tracker. A nil clock defaults to time.Now.
func New(clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{now: clock}
}

// IsOnline reports whether a heartbeat at the given epoch-millisecond
// timestamp is still within the liveness window.
func (t *Tracker) IsOnline(lastSeenMillis int64) bool {
	if lastSeenMillis <= 0 {
		return false
	}
	age := t.now().UnixMilli() - lastSeenMillis
	return age < OnlineTimeout.Milliseconds()
}

// Annotate returns the roster with online flags recomputed and the entries
// sorted for display: the device's own identity first, then online users,
// then the rest by name.
func (t *Tracker) Annotate(users []model.User) []model.User {
	annotated := make([]model.User, len(users))
	for i, user := range users {
		user.Online = t.IsOnline(user.LastSeen)
		annotated[i] = user
	}
	sort.SliceStable(annotated, func(i, j int) bool {
		left, right := annotated[i], annotated[j]
		if left.IsSelf != right.IsSelf {
			return left.IsSelf
		}
		if left.Online != right.Online {
			return left.Online
		}
		return left.Name < right.Name
	})
	return annotated
}

// OnlineCount reports how many roster entries are currently online.
func (t *Tracker) OnlineCount(users []model.User) int {
	count := 0
	for _, user := range users {
		if t.IsOnline(user.LastSeen) {
			count++
		}
	}
	return count
}
