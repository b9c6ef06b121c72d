package merge

import "github.com/bunkmate-app/bunkmate/backend/internal/model"

const defaultTargetDaysPerWeek = 4

// MergeHeartbeat folds an incoming heartbeat into the locally-known user
// record. A heartbeat is a partial profile: fields the sender omitted carry
// forward from the stored record, so a liveness-only beat never erases a
// previously-set exam date or goal. The IsSelf flag always belongs to the
// local device and is preserved verbatim.
func MergeHeartbeat(existing *model.User, beat model.Heartbeat) model.User {
	if existing == nil {
		target := beat.TargetDaysPerWeek
		if target == 0 {
			target = defaultTargetDaysPerWeek
		}
		name := beat.Name
		if name == "" {
			name = "Unknown"
		}
		return model.User{
			ID:                beat.ID,
			Name:              name,
			Avatar:            beat.Avatar,
			ClassCode:         beat.ClassCode,
			TargetDaysPerWeek: target,
			LastSeen:          beat.LastSeen,
			ExamName:          beat.ExamName,
			ExamDate:          beat.ExamDate,
			Theme:             beat.Theme,
			IsSelf:            false,
		}
	}

	updated := *existing
	if beat.Name != "" {
		updated.Name = beat.Name
	}
	if beat.Avatar != "" {
		updated.Avatar = beat.Avatar
	}
	if beat.ClassCode != "" {
		updated.ClassCode = beat.ClassCode
	}
	if beat.TargetDaysPerWeek != 0 {
		updated.TargetDaysPerWeek = beat.TargetDaysPerWeek
	}
	if updated.TargetDaysPerWeek == 0 {
		updated.TargetDaysPerWeek = defaultTargetDaysPerWeek
	}
	if beat.LastSeen > updated.LastSeen {
		updated.LastSeen = beat.LastSeen
	}
	if beat.ExamName != "" {
		updated.ExamName = beat.ExamName
	}
	if beat.ExamDate != "" {
		updated.ExamDate = beat.ExamDate
	}
	if beat.Theme != "" {
		updated.Theme = beat.Theme
	}
	return updated
}

// ApplyProfileUpdate copies the set fields of a local profile edit onto the
// stored record. Nil pointers leave the stored value untouched.
func ApplyProfileUpdate(existing model.User, update model.ProfileUpdate) model.User {
	updated := existing
	if update.Name != nil {
		updated.Name = *update.Name
	}
	if update.Avatar != nil {
		updated.Avatar = *update.Avatar
	}
	if update.TargetDaysPerWeek != nil {
		updated.TargetDaysPerWeek = *update.TargetDaysPerWeek
	}
	if update.ExamName != nil {
		updated.ExamName = *update.ExamName
	}
	if update.ExamDate != nil {
		updated.ExamDate = *update.ExamDate
	}
	if update.Theme != nil {
		updated.Theme = *update.Theme
	}
	return updated
}
