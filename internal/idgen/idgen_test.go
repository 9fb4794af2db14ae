package idgen

import (
	"regexp"
	"testing"
)

func TestConfirmation_Format(t *testing.T) {
	re := regexp.MustCompile(`^CONFIRM_[0-9A-F]{12}$`)
	id := Confirmation()
	if !re.MatchString(id) {
		t.Errorf("unexpected confirmation id %q", id)
	}
}

func TestHaltTicket_Format(t *testing.T) {
	re := regexp.MustCompile(`^HALT_[0-9A-F]{8}$`)
	if id := HaltTicket(); !re.MatchString(id) {
		t.Errorf("unexpected ticket id %q", id)
	}
}

func TestConfirmation_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Confirmation()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestWithPrefix_CapsLength(t *testing.T) {
	id := WithPrefix("X_", 100)
	if len(id) != 2+32 {
		t.Errorf("expected 34 chars, got %d (%q)", len(id), id)
	}
}
