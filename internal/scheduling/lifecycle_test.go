package scheduling

import "testing"

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusScheduled, StatusCompleted},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusNoShow},
	}
	for _, tr := range legal {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be legal", tr.from, tr.to)
		}
	}

	terminals := []Status{StatusCompleted, StatusCancelled, StatusNoShow}
	all := []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow}
	for _, from := range terminals {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal state %s must not transition to %s", from, to)
			}
		}
	}

	if CanTransition(StatusScheduled, StatusScheduled) {
		t.Error("scheduled -> scheduled is not a transition")
	}
	if CanTransition(StatusCompleted, StatusScheduled) {
		t.Error("completed appointments cannot be reopened")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Status{"", "pending", "SCHEDULED", "noshow"} {
		if Status(s).Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusScheduled.Terminal() {
		t.Error("scheduled is not terminal")
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if Status("bogus").Terminal() {
		t.Error("invalid statuses are not terminal")
	}
}
