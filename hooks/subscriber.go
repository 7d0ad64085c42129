package hooks

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/poiesic/kernelci/core"
	"gopkg.in/yaml.v3"
)

// Delivery methods a subscriber may use.
const (
	MethodPost = "post"
	MethodPut  = "put"
)

// Endpoints maps an event name to an optional override URL.
// Its keys are the events a subscriber receives.
type Endpoints map[string]string

// UnmarshalYAML accepts either a mapping of event to URL or a plain list of events.
func (e *Endpoints) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		out := make(Endpoints, len(names))
		for _, name := range names {
			out[name] = ""
		}
		*e = out
		return nil
	}

	var out map[string]string
	if err := node.Decode(&out); err != nil {
		return err
	}
	*e = out
	return nil
}

// Subscriber is an HTTP endpoint registered for one or more event types.
type Subscriber struct {
	Name   string    `yaml:"name"`
	URL    string    `yaml:"url"`
	Token  string    `yaml:"token"`
	Method string    `yaml:"method"`
	Hooks  Endpoints `yaml:"hooks"`

	decodeErr error
}

// DeliveryMethod returns the configured method, defaulting to post.
// It is matched exactly; "POST" is not a valid method.
func (s Subscriber) DeliveryMethod() string {
	if s.Method == "" {
		return MethodPost
	}
	return s.Method
}

// URLFor returns the URL to deliver eventType to: the per-event override
// if one is set, the subscriber URL otherwise.
func (s Subscriber) URLFor(eventType core.EventType) string {
	if u := strings.TrimSpace(s.Hooks[string(eventType)]); u != "" {
		return u
	}
	return strings.TrimSpace(s.URL)
}

// Events returns the known event types the subscriber declares, in
// core.EventTypes order.
func (s Subscriber) Events() []core.EventType {
	var events []core.EventType
	for _, t := range core.EventTypes {
		if _, ok := s.Hooks[string(t)]; ok {
			events = append(events, t)
		}
	}
	return events
}

// UnknownEvents returns declared event names that are not event types, sorted.
func (s Subscriber) UnknownEvents() []string {
	var unknown []string
	for name := range s.Hooks {
		if !core.EventType(name).Valid() {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	return unknown
}

// Validate reports whether the subscriber can be routed: it must have
// decoded cleanly and needs a name, a post or put method, at least one
// known event, and an absolute http(s) URL for every event it declares.
func (s Subscriber) Validate() error {
	if s.decodeErr != nil {
		return s.decodeErr
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrMissingName
	}
	if m := s.DeliveryMethod(); m != MethodPost && m != MethodPut {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, s.Method)
	}

	events := s.Events()
	if len(events) == 0 {
		return ErrNoEvents
	}
	for _, event := range events {
		raw := s.URLFor(event)
		if raw == "" {
			return fmt.Errorf("%w: event %s", ErrMissingURL, event)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: event %s: %w", ErrInvalidURL, event, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: event %s: %q", ErrInvalidURL, event, raw)
		}
	}
	return nil
}

func (s Subscriber) clone() Subscriber {
	s.Hooks = maps.Clone(s.Hooks)
	return s
}
