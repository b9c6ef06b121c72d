// Package stats computes read-only attendance summaries and the
// deterministic go/skip recommendation. Advisory consumers get snapshots
// only; nothing here writes back into the store.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
)

const schoolDaysPerWeek = 5

// Attendance summarizes one user's decided history up to and including the
// given date. With no decided days yet the percentage reads 100 so a new
// user is not shown as failing.
func Attendance(statuses []model.DailyStatus, userID, today string, targetDaysPerWeek int) model.AttendanceStats {
	totalDays := 0
	presentDays := 0
	for _, status := range statuses {
		if status.UserID != userID || status.Status == model.StatusUndecided || status.Date > today {
			continue
		}
		totalDays++
		if status.Status == model.StatusGoing {
			presentDays++
		}
	}

	percentage := 100.0
	if totalDays > 0 {
		percentage = float64(presentDays) / float64(totalDays) * 100
	}
	if targetDaysPerWeek <= 0 {
		targetDaysPerWeek = 4
	}

	return model.AttendanceStats{
		TotalDays:        totalDays,
		PresentDays:      presentDays,
		Percentage:       percentage,
		TargetPercentage: float64(targetDaysPerWeek) / schoolDaysPerWeek * 100,
	}
}

// Severity grades a recommendation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeveritySafe     Severity = "safe"
)

// Recommendation is the engine's verdict for one view date.
type Recommendation struct {
	ShouldGo bool     `json:"shouldGo"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Recommend derives the go/skip verdict for a user on a view date. Rules in
// priority order: break an absence streak of two or more, catch up when
// below the attendance target, follow the majority when friends are
// skipping, join when friends are going, otherwise default to going.
func Recommend(statuses []model.DailyStatus, userID, viewDate, dateLabel string, targetPercentage float64) Recommendation {
	label := strings.ToLower(dateLabel)

	othersGoing := 0
	othersNotGoing := 0
	var history []model.DailyStatus
	for _, status := range statuses {
		switch {
		case status.Date == viewDate && status.UserID != userID:
			if status.Status == model.StatusGoing {
				othersGoing++
			} else if status.Status == model.StatusNotGoing {
				othersNotGoing++
			}
		case status.UserID == userID && status.Status != model.StatusUndecided && status.Date < viewDate:
			history = append(history, status)
		}
	}

	sort.Slice(history, func(i, j int) bool { return history[i].Date > history[j].Date })

	histPresent := 0
	for _, status := range history {
		if status.Status == model.StatusGoing {
			histPresent++
		}
	}
	histPercentage := 100.0
	if len(history) > 0 {
		histPercentage = float64(histPresent) / float64(len(history)) * 100
	}

	consecutiveAbsences := 0
	for _, status := range history {
		if status.Status != model.StatusNotGoing {
			break
		}
		consecutiveAbsences++
	}

	switch {
	case consecutiveAbsences >= 2:
		return Recommendation{
			ShouldGo: true,
			Message:  fmt.Sprintf("You've missed %d days in a row. Go %s to break the streak!", consecutiveAbsences, label),
			Severity: SeverityCritical,
		}
	case histPercentage < targetPercentage:
		return Recommendation{
			ShouldGo: true,
			Message:  fmt.Sprintf("Your attendance (%.0f%%) is below target (%.0f%%). Catch up time!", histPercentage, targetPercentage),
			Severity: SeverityCritical,
		}
	case othersNotGoing > othersGoing && othersNotGoing > 0:
		return Recommendation{
			ShouldGo: false,
			Message:  fmt.Sprintf("Majority of friends are skipping %s. Your stats are safe to join them.", label),
			Severity: SeveritySafe,
		}
	case othersGoing > othersNotGoing:
		return Recommendation{
			ShouldGo: true,
			Message:  fmt.Sprintf("%d friends are going. Good day to show up.", othersGoing),
			Severity: SeverityModerate,
		}
	default:
		return Recommendation{
			ShouldGo: true,
			Message:  "When in doubt, it's better to show up.",
			Severity: SeverityModerate,
		}
	}
}
