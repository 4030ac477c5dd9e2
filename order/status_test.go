package order

import "testing"

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusNew, StatusInProgress, StatusCompleted, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusNew, StatusInProgress}:       true,
		{StatusNew, StatusCancelled}:        true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusInProgress, StatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusInProgress, StatusCompleted, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s must be valid", s)
		}
	}
	if Status("SHIPPED").Valid() {
		t.Error("unknown status must not be valid")
	}
}

func TestStatusDisplayName(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusInProgress, StatusCompleted, StatusCancelled} {
		if s.DisplayName() == string(s) {
			t.Errorf("%s must have a user-facing name", s)
		}
	}
	if got := Status("SHIPPED").DisplayName(); got != "SHIPPED" {
		t.Errorf("unknown status falls back to raw value, got %q", got)
	}
}
