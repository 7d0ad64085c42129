package core

import (
	"fmt"
	"strings"
)

// EventType is a closed category of notification used to route subscribers.
type EventType string

const (
	EventLava  EventType = "lava"
	EventBoot  EventType = "boot"
	EventBuild EventType = "build"
)

// EventTypes lists every routable event type in registry order.
var EventTypes = []EventType{EventLava, EventBoot, EventBuild}

// Valid reports whether e is one of the known event types.
func (e EventType) Valid() bool {
	for _, known := range EventTypes {
		if e == known {
			return true
		}
	}
	return false
}

func (e EventType) String() string { return string(e) }

// ParseEventType converts a name into an EventType. Matching is case-insensitive.
func ParseEventType(name string) (EventType, error) {
	e := EventType(strings.ToLower(strings.TrimSpace(name)))
	if !e.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, name)
	}
	return e, nil
}
