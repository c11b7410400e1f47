package notify

import (
	"testing"
	"time"
)

func TestEventFormat(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		args     []string
		expected string
	}{
		{"slot selected", SlotSelected, []string{"3"}, "Slot 3"},
		{"saved", StateSaved, []string{"1"}, "State saved to slot 1"},
		{"loaded", StateLoaded, []string{"10"}, "State loaded from slot 10"},
		{"missing rom", MissingROM, []string{"Game.nes"}, "Cannot find matching game (Game.nes)"},
		{"missing argument", MissingROM, nil, "Cannot find matching game ()"},
		{"extra argument", InvalidFile, []string{"x"}, "Invalid save state file"},
		{"empty", EmptyFile, nil, "Slot is empty"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.Format(tc.args...); got != tc.expected {
				t.Errorf("Format() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestEventKey(t *testing.T) {
	if SlotSelected.Key() != "SaveStateSlotSelected" {
		t.Errorf("unexpected key %q", SlotSelected.Key())
	}
	if EmptyFile.Key() != "SaveStateEmpty" {
		t.Errorf("unexpected key %q", EmptyFile.Key())
	}
	if Event(99).Key() != "Unknown" {
		t.Errorf("unexpected key %q", Event(99).Key())
	}
}

func TestEventIsError(t *testing.T) {
	for _, e := range []Event{SlotSelected, StateSaved, StateLoaded} {
		if e.IsError() {
			t.Errorf("%s should not be an error", e.Key())
		}
	}
	for _, e := range []Event{NewerVersion, IncompatibleVersion, MissingROM, InvalidFile, EmptyFile} {
		if !e.IsError() {
			t.Errorf("%s should be an error", e.Key())
		}
	}
}

func TestNotificationExpiry(t *testing.T) {
	n := NewNotification(nil)
	now := time.Unix(1000, 0)
	n.now = func() time.Time { return now }

	n.Notify(StateSaved, "2")
	if n.Message() != "State saved to slot 2" {
		t.Fatalf("unexpected message %q", n.Message())
	}

	now = now.Add(999 * time.Millisecond)
	if n.Message() == "" {
		t.Error("message should still be visible")
	}

	now = now.Add(time.Millisecond)
	if n.Message() != "" {
		t.Errorf("message should have expired, got %q", n.Message())
	}

	event, msg := n.Last()
	if event != StateSaved || msg != "State saved to slot 2" {
		t.Errorf("Last() = %v, %q", event, msg)
	}
}

func TestNotificationErrorsStayLonger(t *testing.T) {
	n := NewNotification(nil)
	now := time.Unix(1000, 0)
	n.now = func() time.Time { return now }

	n.Notify(InvalidFile)
	now = now.Add(2 * time.Second)
	if n.Message() != "Invalid save state file" {
		t.Errorf("error message should still be visible, got %q", n.Message())
	}
}

func TestNotificationShow(t *testing.T) {
	n := NewNotification(nil)
	n.Show("hello", time.Minute)
	if n.Message() != "hello" {
		t.Errorf("expected hello, got %q", n.Message())
	}
}

func TestDiscard(t *testing.T) {
	// Should not panic
	Discard.Notify(StateLoaded, "1")
}
