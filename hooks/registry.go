package hooks

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/poiesic/kernelci/core"
)

// Registry routes event types to subscribers. The routing table is built
// from its Loader on first use and kept for the life of the Registry;
// configuration changes need a new Registry.
type Registry struct {
	load   Loader
	logger *slog.Logger

	once   sync.Once
	routes map[core.EventType][]Subscriber
}

// NewRegistry creates a Registry that will build its table from load.
// A nil load yields empty routing.
func NewRegistry(load Loader, logger *slog.Logger) *Registry {
	if load == nil {
		load = StaticLoader()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{load: load, logger: logger}
}

// Resolve returns the valid subscribers declared for eventType, in
// configuration order. The returned slice is the caller's to modify.
func (r *Registry) Resolve(eventType core.EventType) []Subscriber {
	r.once.Do(r.build)

	subscribers := r.routes[eventType]
	out := make([]Subscriber, len(subscribers))
	for i, s := range subscribers {
		out[i] = s.clone()
	}
	return out
}

// build never fails: an unreadable source leaves routing empty.
func (r *Registry) build() {
	r.routes = make(map[core.EventType][]Subscriber, len(core.EventTypes))

	entries, err := r.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("hooks configuration not found, no subscribers loaded", "err", err)
		} else {
			r.logger.Warn("failed to load hooks configuration, no subscribers loaded", "err", err)
		}
		return
	}

	valid := 0
	for i, entry := range entries {
		if err := entry.Validate(); err != nil {
			r.logger.Warn("dropping invalid subscriber", "index", i, "name", entry.Name, "err", err)
			continue
		}
		if unknown := entry.UnknownEvents(); len(unknown) > 0 {
			r.logger.Warn("ignoring unknown events", "name", entry.Name, "events", unknown)
		}

		entry.Method = entry.DeliveryMethod()
		for _, event := range entry.Events() {
			r.routes[event] = append(r.routes[event], entry)
		}
		valid++
	}
	r.logger.Info("loaded hook subscribers", "valid", valid, "dropped", len(entries)-valid)
}
