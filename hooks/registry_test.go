package hooks

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/kernelci/core"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(subs []Subscriber) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Name
	}
	return out
}

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry(StaticLoader(
		Subscriber{Name: "lava-only", URL: "http://a.example.org", Hooks: Endpoints{"lava": ""}},
		Subscriber{Name: "everything", URL: "http://b.example.org", Method: MethodPut, Hooks: Endpoints{"lava": "", "boot": "", "build": ""}},
		Subscriber{Name: "", URL: "http://c.example.org", Hooks: Endpoints{"build": ""}},
		Subscriber{Name: "bad-method", URL: "http://d.example.org", Method: "delete", Hooks: Endpoints{"build": ""}},
		Subscriber{Name: "upper-method", URL: "http://d.example.org", Method: "POST", Hooks: Endpoints{"build": ""}},
		Subscriber{Name: "no-url", Hooks: Endpoints{"build": ""}},
		Subscriber{Name: "with-unknown", URL: "http://e.example.org", Hooks: Endpoints{"build": "", "deploy": ""}},
	), nil)

	assert.Equal(t, []string{"lava-only", "everything"}, names(registry.Resolve(core.EventLava)))
	assert.Equal(t, []string{"everything"}, names(registry.Resolve(core.EventBoot)))
	assert.Equal(t, []string{"everything", "with-unknown"}, names(registry.Resolve(core.EventBuild)))
	assert.Empty(t, registry.Resolve(core.EventType("deploy")))

	build := registry.Resolve(core.EventBuild)
	assert.Equal(t, MethodPut, build[0].Method)
	assert.Equal(t, MethodPost, build[1].Method, "unset method defaults to post")
}

func TestRegistry_ResolveReturnsCopy(t *testing.T) {
	registry := NewRegistry(StaticLoader(
		Subscriber{Name: "a", URL: "http://a.example.org", Hooks: Endpoints{"build": ""}},
	), nil)

	first := registry.Resolve(core.EventBuild)
	first[0].Name = "changed"
	first[0].Hooks["build"] = "http://evil.example.org"

	second := registry.Resolve(core.EventBuild)
	assert.Equal(t, "a", second[0].Name)
	assert.Equal(t, "http://a.example.org", second[0].URLFor(core.EventBuild))
}

func TestRegistry_MissingFile(t *testing.T) {
	registry := NewRegistry(FileLoader(afero.NewMemMapFs(), "/nope/hooks.yml"), nil)

	for _, event := range core.EventTypes {
		assert.Empty(t, registry.Resolve(event))
	}
}

func TestRegistry_UnreadableSource(t *testing.T) {
	registry := NewRegistry(func() ([]Subscriber, error) {
		return nil, errors.New("permission denied")
	}, nil)

	assert.Empty(t, registry.Resolve(core.EventBuild))
}

func TestRegistry_FromFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "hooks.yml", []byte(sampleConfig), 0644))
	registry := NewRegistry(FileLoader(fsys, "hooks.yml"), nil)

	build := registry.Resolve(core.EventBuild)
	require.Len(t, build, 2)
	assert.Equal(t, "https://bridge.example.org/builds", build[0].URLFor(core.EventBuild))
	assert.Equal(t, "http://dashboard.local/hook", build[1].URLFor(core.EventBuild))
}

func TestRegistry_MalformedEntryDropsOnlyThatEntry(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "hooks.yml", []byte(mixedConfig), 0644))
	registry := NewRegistry(FileLoader(fsys, "hooks.yml"), nil)

	build := registry.Resolve(core.EventBuild)
	require.Len(t, build, 1)
	assert.Equal(t, "good", build[0].Name)
}

func TestRegistry_BuildsOnceUnderConcurrency(t *testing.T) {
	var loads atomic.Int32
	registry := NewRegistry(func() ([]Subscriber, error) {
		loads.Add(1)
		return []Subscriber{
			{Name: "a", URL: "http://a.example.org", Hooks: Endpoints{"build": ""}},
		}, nil
	}, nil)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, registry.Resolve(core.EventBuild), 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}
