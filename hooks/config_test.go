package hooks

import (
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
- name: lava-bridge
  url: https://bridge.example.org/notify
  token: secret
  method: put
  hooks:
    lava:
    build: https://bridge.example.org/builds
- name: dashboard
  url: http://dashboard.local/hook
  hooks: [boot, build]
`

func TestParseSubscribers(t *testing.T) {
	subs, err := ParseSubscribers([]byte(sampleConfig))
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "lava-bridge", subs[0].Name)
	assert.Equal(t, "secret", subs[0].Token)
	assert.Equal(t, "put", subs[0].Method)
	assert.Equal(t, Endpoints{"lava": "", "build": "https://bridge.example.org/builds"}, subs[0].Hooks)

	assert.Equal(t, Endpoints{"boot": "", "build": ""}, subs[1].Hooks)
	assert.Empty(t, subs[1].Method)
}

func TestParseSubscribers_Empty(t *testing.T) {
	subs, err := ParseSubscribers(nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestParseSubscribers_Invalid(t *testing.T) {
	_, err := ParseSubscribers([]byte("name: not-a-list"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

const mixedConfig = `
- name: good
  url: http://good.example.org/hook
  hooks: [build]
- name: bad
  url: http://bad.example.org/hook
  hooks: build
`

func TestParseSubscribers_MalformedEntryIsolated(t *testing.T) {
	subs, err := ParseSubscribers([]byte(mixedConfig))
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.NoError(t, subs[0].Validate())
	assert.Equal(t, "bad", subs[1].Name)
	assert.ErrorIs(t, subs[1].Validate(), ErrInvalidConfig)
}

func TestLoadSubscribers(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/kernelci/hooks.yml", []byte(sampleConfig), 0644))

	subs, err := FileLoader(fsys, "/etc/kernelci/hooks.yml")()
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = LoadSubscribers(fsys, "/etc/kernelci/missing.yml")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
