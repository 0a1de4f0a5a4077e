package trace

import (
	"sync"
)

const DefaultMaxEvents = 1000

// Event is one entry of the engine event log.
type Event struct {
	ID      uint64 `json:"id"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

// EventLog is a bounded ring of events, oldest entries are dropped once
// the limit is reached.
type EventLog struct {
	access    sync.Mutex
	events    []Event
	maxEvents int
	lastID    uint64
}

func NewEventLog(maxEvents int) *EventLog {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &EventLog{
		maxEvents: maxEvents,
	}
}

func (l *EventLog) Append(message string, level string) Event {
	l.access.Lock()
	defer l.access.Unlock()
	l.lastID++
	event := Event{
		ID:      l.lastID,
		Message: message,
		Level:   level,
	}
	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}
	return event
}

func (l *EventLog) Events() []Event {
	l.access.Lock()
	defer l.access.Unlock()
	events := make([]Event, len(l.events))
	copy(events, l.events)
	return events
}

func (l *EventLog) Clear() {
	l.access.Lock()
	defer l.access.Unlock()
	l.events = nil
}
