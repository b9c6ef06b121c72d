package presence

import (
	"testing"
	"time"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestIsOnlineBoundary(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	tracker := New(fixedClock(now))

	testCases := []struct {
		name     string
		lastSeen int64
		want     bool
	}{
		{name: "fresh_beat", lastSeen: now.UnixMilli(), want: true},
		{name: "just_inside_window", lastSeen: now.UnixMilli() - 14_999, want: true},
		{name: "exact_timeout", lastSeen: now.UnixMilli() - 15_000, want: false},
		{name: "past_timeout", lastSeen: now.UnixMilli() - 15_001, want: false},
		{name: "never_seen", lastSeen: 0, want: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := tracker.IsOnline(testCase.lastSeen); got != testCase.want {
				t.Fatalf("IsOnline(%d) = %v, want %v", testCase.lastSeen, got, testCase.want)
			}
		})
	}
}

func TestAnnotateSortsSelfThenOnlineThenName(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	tracker := New(fixedClock(now))
	fresh := now.UnixMilli()
	stale := now.UnixMilli() - 60_000

	roster := []model.User{
		{ID: "u4", Name: "Zara", LastSeen: stale},
		{ID: "u3", Name: "Arjun", LastSeen: fresh},
		{ID: "u1", Name: "Me", IsSelf: true, LastSeen: fresh},
		{ID: "u2", Name: "Priya", LastSeen: fresh},
	}

	annotated := tracker.Annotate(roster)
	wantOrder := []string{"u1", "u3", "u2", "u4"}
	for i, want := range wantOrder {
		if annotated[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, annotated[i].ID)
		}
	}
	if !annotated[0].Online || !annotated[1].Online || !annotated[2].Online {
		t.Fatalf("fresh heartbeats must annotate as online")
	}
	if annotated[3].Online {
		t.Fatalf("stale heartbeat must annotate as offline")
	}
}

func TestOnlineCount(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	tracker := New(fixedClock(now))

	roster := []model.User{
		{ID: "u1", LastSeen: now.UnixMilli()},
		{ID: "u2", LastSeen: now.UnixMilli() - 20_000},
		{ID: "u3", LastSeen: now.UnixMilli() - 1_000},
	}

	if got := tracker.OnlineCount(roster); got != 2 {
		t.Fatalf("expected 2 online, got %d", got)
	}
}
