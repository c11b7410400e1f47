// Package notify turns save state events into short user messages.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Event identifies a user-facing save state notification
type Event int

const (
	SlotSelected Event = iota
	StateSaved
	StateLoaded
	NewerVersion
	IncompatibleVersion
	MissingROM
	InvalidFile
	EmptyFile
)

var eventKeys = map[Event]string{
	SlotSelected:        "SaveStateSlotSelected",
	StateSaved:          "SaveStateSaved",
	StateLoaded:         "SaveStateLoaded",
	NewerVersion:        "SaveStateNewerVersion",
	IncompatibleVersion: "SaveStateIncompatibleVersion",
	MissingROM:          "SaveStateMissingRom",
	InvalidFile:         "SaveStateInvalidFile",
	EmptyFile:           "SaveStateEmpty",
}

var eventMessages = map[Event]string{
	SlotSelected:        "Slot %s",
	StateSaved:          "State saved to slot %s",
	StateLoaded:         "State loaded from slot %s",
	NewerVersion:        "Cannot load save states created by a more recent version",
	IncompatibleVersion: "Save state is incompatible with this version",
	MissingROM:          "Cannot find matching game (%s)",
	InvalidFile:         "Invalid save state file",
	EmptyFile:           "Slot is empty",
}

// Key returns the message key of the event.
func (e Event) Key() string {
	if k, ok := eventKeys[e]; ok {
		return k
	}
	return "Unknown"
}

// IsError reports whether the event describes a failure.
func (e Event) IsError() bool {
	return e >= NewerVersion
}

// Format renders the event with its arguments.
func (e Event) Format(args ...string) string {
	tmpl, ok := eventMessages[e]
	if !ok {
		return e.Key()
	}
	// Missing arguments render empty, extra ones are dropped
	vals := make([]any, countVerbs(tmpl))
	for i := range vals {
		vals[i] = ""
		if i < len(args) {
			vals[i] = args[i]
		}
	}
	return fmt.Sprintf(tmpl, vals...)
}

func countVerbs(tmpl string) int {
	n := 0
	for i := 0; i+1 < len(tmpl); i++ {
		if tmpl[i] == '%' && tmpl[i+1] == 's' {
			n++
		}
	}
	return n
}

// Notifier receives save state notifications. Implementations must not
// block.
type Notifier interface {
	Notify(event Event, args ...string)
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Event, ...string) {}

// Notification holds the message currently shown to the user
type Notification struct {
	mu        sync.Mutex
	message   string
	event     Event
	startTime time.Time
	duration  time.Duration
	logger    hclog.Logger

	now func() time.Time
}

// NewNotification creates a new notification sink that also logs every
// message to logger.
func NewNotification(logger hclog.Logger) *Notification {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Notification{
		logger: logger,
		now:    time.Now,
	}
}

// Notify shows the message for event. Errors stay up longer than
// confirmations.
func (n *Notification) Notify(event Event, args ...string) {
	msg := event.Format(args...)
	if event.IsError() {
		n.logger.Warn(msg, "event", event.Key())
		n.show(event, msg, 3*time.Second)
		return
	}
	n.logger.Info(msg, "event", event.Key())
	n.show(event, msg, 1*time.Second)
}

// Show displays a notification message
func (n *Notification) Show(message string, duration time.Duration) {
	n.show(-1, message, duration)
}

func (n *Notification) show(event Event, message string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.message = message
	n.event = event
	n.startTime = n.now()
	n.duration = duration
}

// Message returns the message still on screen, or "" once it expired.
func (n *Notification) Message() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.message == "" || n.now().Sub(n.startTime) >= n.duration {
		return ""
	}
	return n.message
}

// Last returns the most recent event and message, expired or not.
func (n *Notification) Last() (Event, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.event, n.message
}
