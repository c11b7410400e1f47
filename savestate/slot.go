package savestate

import (
	"strconv"

	"github.com/user-none/savestates/notify"
)

// MaxSlots is the number of numbered save slots per ROM.
const MaxSlots = 10

// SlotTracker holds the selected save slot, in [1, MaxSlots].
type SlotTracker struct {
	current  int
	notifier notify.Notifier
}

// NewSlotTracker creates a tracker on slot 1. n may be nil.
func NewSlotTracker(n notify.Notifier) *SlotTracker {
	if n == nil {
		n = notify.Discard
	}
	return &SlotTracker{
		current:  1,
		notifier: n,
	}
}

// Current returns the selected slot
func (t *SlotTracker) Current() int {
	return t.current
}

// Next selects the following slot, wrapping to 1 after MaxSlots.
func (t *SlotTracker) Next() int {
	t.current = (t.current % MaxSlots) + 1
	t.selected()
	return t.current
}

// Previous selects the preceding slot, wrapping to MaxSlots before 1.
func (t *SlotTracker) Previous() int {
	if t.current == 1 {
		t.current = MaxSlots
	} else {
		t.current--
	}
	t.selected()
	return t.current
}

// Select jumps to slot. Out of range values are ignored.
func (t *SlotTracker) Select(slot int) bool {
	if !ValidSlot(slot) {
		return false
	}
	t.current = slot
	t.selected()
	return true
}

func (t *SlotTracker) selected() {
	t.notifier.Notify(notify.SlotSelected, strconv.Itoa(t.current))
}

// ValidSlot reports whether slot is a usable slot index.
func ValidSlot(slot int) bool {
	return slot >= 1 && slot <= MaxSlots
}
