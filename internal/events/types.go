// Package events provides the in-process event bus used for scan, import,
// watcher and playback notifications.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

// System-wide event types
const (
	// Scan events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanFailed    EventType = "scan.failed"

	// Import events
	EventImportCompleted EventType = "import.completed"
	EventImportSkipped   EventType = "import.skipped"
	EventImportFailed    EventType = "import.failed"

	// Inbox watcher events
	EventWatchStarted EventType = "watch.started"
	EventWatchStopped EventType = "watch.stopped"

	// Job queue events
	EventJobExhausted EventType = "job.exhausted"

	// Playback events
	EventPlaybackStarted EventType = "playback.started"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event)

// NewSystemEvent creates an event originating from the system itself
func NewSystemEvent(eventType EventType, title, message string) Event {
	return Event{
		Type:      eventType,
		Source:    "system",
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}
