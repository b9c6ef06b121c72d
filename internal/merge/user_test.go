package merge

import (
	"testing"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
)

func TestMergeHeartbeatCarriesForwardOmittedFields(t *testing.T) {
	existing := model.User{
		ID:                "u1",
		Name:              "Priya",
		Avatar:            "https://avatars.example/priya",
		ClassCode:         "CS101",
		TargetDaysPerWeek: 5,
		LastSeen:          1000,
		ExamName:          "Midsem",
		ExamDate:          "2026-09-15",
		Theme:             "dark",
	}
	beat := model.Heartbeat{ID: "u1", Name: "Priya", LastSeen: 2000}

	merged := MergeHeartbeat(&existing, beat)
	if merged.ExamName != "Midsem" || merged.ExamDate != "2026-09-15" {
		t.Fatalf("liveness beat must not erase exam fields, got %q %q", merged.ExamName, merged.ExamDate)
	}
	if merged.TargetDaysPerWeek != 5 {
		t.Fatalf("omitted target must carry forward, got %d", merged.TargetDaysPerWeek)
	}
	if merged.Theme != "dark" {
		t.Fatalf("omitted theme must carry forward, got %q", merged.Theme)
	}
	if merged.LastSeen != 2000 {
		t.Fatalf("expected lastSeen advanced to 2000, got %d", merged.LastSeen)
	}
}

func TestMergeHeartbeatNeverRewindsLastSeen(t *testing.T) {
	existing := model.User{ID: "u1", Name: "Priya", LastSeen: 5000}
	beat := model.Heartbeat{ID: "u1", LastSeen: 3000}

	merged := MergeHeartbeat(&existing, beat)
	if merged.LastSeen != 5000 {
		t.Fatalf("stale beat must not rewind lastSeen, got %d", merged.LastSeen)
	}
}

func TestMergeHeartbeatPreservesIsSelf(t *testing.T) {
	existing := model.User{ID: "u1", Name: "Me", IsSelf: true}
	beat := model.Heartbeat{ID: "u1", Name: "Me", LastSeen: 100}

	merged := MergeHeartbeat(&existing, beat)
	if !merged.IsSelf {
		t.Fatalf("IsSelf belongs to the local device and must survive merges")
	}
}

func TestMergeHeartbeatNewUserDefaults(t *testing.T) {
	testCases := []struct {
		name       string
		beat       model.Heartbeat
		wantName   string
		wantTarget int
	}{
		{
			name:       "full_profile",
			beat:       model.Heartbeat{ID: "u2", Name: "Arjun", TargetDaysPerWeek: 3, LastSeen: 42},
			wantName:   "Arjun",
			wantTarget: 3,
		},
		{
			name:       "bare_beat",
			beat:       model.Heartbeat{ID: "u3", LastSeen: 42},
			wantName:   "Unknown",
			wantTarget: 4,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			merged := MergeHeartbeat(nil, testCase.beat)
			if merged.Name != testCase.wantName {
				t.Fatalf("expected name %q, got %q", testCase.wantName, merged.Name)
			}
			if merged.TargetDaysPerWeek != testCase.wantTarget {
				t.Fatalf("expected target %d, got %d", testCase.wantTarget, merged.TargetDaysPerWeek)
			}
			if merged.IsSelf {
				t.Fatalf("remote users must never be marked as self")
			}
		})
	}
}

func TestApplyProfileUpdateOnlyTouchesSetFields(t *testing.T) {
	existing := model.User{
		ID:                "u1",
		Name:              "Priya",
		TargetDaysPerWeek: 4,
		ExamName:          "Midsem",
	}
	newName := "Priya S"
	update := model.ProfileUpdate{Name: &newName}

	updated := ApplyProfileUpdate(existing, update)
	if updated.Name != "Priya S" {
		t.Fatalf("expected name updated, got %q", updated.Name)
	}
	if updated.TargetDaysPerWeek != 4 || updated.ExamName != "Midsem" {
		t.Fatalf("nil fields must leave stored values untouched, got %#v", updated)
	}
}

func TestApplyProfileUpdateCanClearExamFields(t *testing.T) {
	existing := model.User{ID: "u1", ExamName: "Midsem", ExamDate: "2026-09-15"}
	empty := ""
	update := model.ProfileUpdate{ExamName: &empty, ExamDate: &empty}

	updated := ApplyProfileUpdate(existing, update)
	if updated.ExamName != "" || updated.ExamDate != "" {
		t.Fatalf("explicit empty strings must clear exam fields, got %#v", updated)
	}
}
