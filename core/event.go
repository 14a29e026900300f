package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags an outbound event on the client channel.
type EventType string

const (
	// EventInitialResults carries the first batch of a new search.
	EventInitialResults EventType = "initial_results"
	// EventAppend carries newly seen items discovered by a poll cycle.
	EventAppend EventType = "append"
	// EventHistory carries the session's recent batches, newest first.
	EventHistory EventType = "history"
	// EventStatus carries an informational, non-fatal message.
	EventStatus EventType = "status"
	// EventError carries a fatal or non-fatal error message.
	EventError EventType = "error"
	// EventPong is the keep-alive reply to a client ping.
	EventPong EventType = "pong"
)

// Event is the primary unit of communication from the session orchestrator to
// the client channel. After emission it should be treated as immutable. The
// wire shape is a tagged envelope: type discriminates, data carries the
// type-specific payload. Timestamp uses a native time.Time (UTC).
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// NewEvent creates an event of the given type wrapping the payload.
func NewEvent(t EventType, data any) Event {
	return Event{ID: NewID(), Type: t, Timestamp: time.Now().UTC(), Data: data}
}

// NewStatusEvent creates an informational status event.
func NewStatusEvent(message string) Event {
	return NewEvent(EventStatus, StatusInfo{Message: message})
}

// NewErrorEvent creates an error event. Fatal errors indicate the session has
// transitioned to Stopped and will not poll again without a new search.
func NewErrorEvent(message string, fatal bool) Event {
	return NewEvent(EventError, ErrorInfo{Message: message, Fatal: fatal})
}

// NewPongEvent creates the keep-alive reply to a ping.
func NewPongEvent() Event {
	return NewEvent(EventPong, Pong{Time: time.Now().UTC()})
}

// NewID generates a new unique identifier for events and sessions.
func NewID() string { return uuid.NewString() }

// InitialResults is the payload of an initial_results event.
type InitialResults struct {
	Query        string         `json:"query"`
	SortBy       SortMode       `json:"sortBy"`
	TotalResults int            `json:"totalResults"`
	Items        []Item         `json:"items"`
	Timestamp    time.Time      `json:"timestamp"`
	Analytics    map[string]any `json:"analytics,omitempty"`
}

// Append is the payload of an append event: only items never forwarded
// before in this session.
type Append struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

// HistorySnapshot is the payload of a history event.
type HistorySnapshot struct {
	Batches  []ResultBatch `json:"batches"`
	Count    int           `json:"count"`
	Capacity int           `json:"capacity"`
}

// StatusInfo is the payload of a status event.
type StatusInfo struct {
	Message string `json:"message"`
}

// ErrorInfo is the payload of an error event.
type ErrorInfo struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// Pong is the payload of a pong event.
type Pong struct {
	Time time.Time `json:"time"`
}
