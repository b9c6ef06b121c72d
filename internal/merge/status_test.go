package merge

import (
	"testing"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
)

func TestResolveStatusAcceptsNewerRemote(t *testing.T) {
	existing := &model.DailyStatus{
		UserID:    "u1",
		Date:      "2024-01-10",
		Status:    model.StatusNotGoing,
		Timestamp: 100,
	}
	incoming := model.DailyStatus{
		UserID:    "u1",
		Date:      "2024-01-10",
		Status:    model.StatusGoing,
		Timestamp: 200,
	}

	outcome := ResolveStatus(existing, incoming)
	if !outcome.Accepted {
		t.Fatalf("expected newer remote to be accepted")
	}
	if outcome.Updated.Status != model.StatusGoing {
		t.Fatalf("expected GOING, got %s", outcome.Updated.Status)
	}
}

func TestResolveStatusRejectsOlderRemote(t *testing.T) {
	existing := &model.DailyStatus{
		UserID:    "u1",
		Date:      "2024-01-10",
		Status:    model.StatusGoing,
		Timestamp: 100,
	}
	incoming := model.DailyStatus{
		UserID:    "u1",
		Date:      "2024-01-10",
		Status:    model.StatusNotGoing,
		Timestamp: 50,
	}

	outcome := ResolveStatus(existing, incoming)
	if outcome.Accepted {
		t.Fatalf("expected older remote to be rejected")
	}
	if outcome.Updated.Status != model.StatusGoing {
		t.Fatalf("existing status should survive, got %s", outcome.Updated.Status)
	}
}

func TestResolveStatusTieKeepsExisting(t *testing.T) {
	existing := &model.DailyStatus{
		UserID:    "u1",
		Date:      "2024-01-10",
		Status:    model.StatusGoing,
		Timestamp: 100,
	}
	incoming := model.DailyStatus{
		UserID:    "u1",
		Date:      "2024-01-10",
		Status:    model.StatusNotGoing,
		Timestamp: 100,
	}

	outcome := ResolveStatus(existing, incoming)
	if outcome.Accepted {
		t.Fatalf("equal timestamps must not overwrite the existing record")
	}
	if outcome.Updated.Status != model.StatusGoing {
		t.Fatalf("existing status should survive a tie, got %s", outcome.Updated.Status)
	}
}

func TestResolveStatusAcceptsFirstWrite(t *testing.T) {
	incoming := model.DailyStatus{
		UserID:    "u2",
		Date:      "2024-01-11",
		Status:    model.StatusUndecided,
		Timestamp: 5,
	}

	outcome := ResolveStatus(nil, incoming)
	if !outcome.Accepted {
		t.Fatalf("first write for a key must be accepted")
	}
	if outcome.Updated != incoming {
		t.Fatalf("unexpected stored record: %#v", outcome.Updated)
	}
}

func TestResolveStatusConvergesInEitherOrder(t *testing.T) {
	a := model.DailyStatus{UserID: "u1", Date: "2024-01-10", Status: model.StatusGoing, Timestamp: 100}
	b := model.DailyStatus{UserID: "u1", Date: "2024-01-10", Status: model.StatusNotGoing, Timestamp: 250}

	applyBoth := func(first, second model.DailyStatus) model.DailyStatus {
		step := ResolveStatus(nil, first)
		final := ResolveStatus(&step.Updated, second)
		return final.Updated
	}

	abOrder := applyBoth(a, b)
	baOrder := applyBoth(b, a)

	if abOrder != baOrder {
		t.Fatalf("merge order changed the outcome: %#v vs %#v", abOrder, baOrder)
	}
	if abOrder.Status != model.StatusNotGoing {
		t.Fatalf("larger timestamp must win, got %s", abOrder.Status)
	}
}
