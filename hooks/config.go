package hooks

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the subscriber file read when none is configured.
const DefaultConfigFile = "hooks.yml"

// Loader produces the raw subscriber entries a Registry is built from.
type Loader func() ([]Subscriber, error)

// ParseSubscribers decodes a YAML sequence of subscriber entries.
// Entries are decoded one at a time; an entry that does not decode is
// returned carrying its error, which Validate reports, so it can be dropped
// without losing its neighbours. An empty document yields no subscribers.
func ParseSubscribers(data []byte) ([]Subscriber, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	subscribers := make([]Subscriber, 0, len(nodes))
	for i := range nodes {
		var sub Subscriber
		if err := nodes[i].Decode(&sub); err != nil {
			var named struct {
				Name string `yaml:"name"`
			}
			_ = nodes[i].Decode(&named)
			sub = Subscriber{
				Name:      named.Name,
				decodeErr: fmt.Errorf("%w: line %d: %w", ErrInvalidConfig, nodes[i].Line, err),
			}
		}
		subscribers = append(subscribers, sub)
	}
	return subscribers, nil
}

// LoadSubscribers reads and decodes the subscriber file at path.
func LoadSubscribers(fsys afero.Fs, path string) ([]Subscriber, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return ParseSubscribers(data)
}

// FileLoader returns a Loader reading path from fsys.
// A nil fsys reads the host filesystem.
func FileLoader(fsys afero.Fs, path string) Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return func() ([]Subscriber, error) {
		return LoadSubscribers(fsys, path)
	}
}

// StaticLoader returns a Loader yielding subscribers as given.
func StaticLoader(subscribers ...Subscriber) Loader {
	return func() ([]Subscriber, error) {
		return subscribers, nil
	}
}
