package hooks

import (
	"testing"

	"github.com/poiesic/kernelci/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriber_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Subscriber
		wantErr error
	}{
		{
			name: "valid with base url",
			sub:  Subscriber{Name: "a", URL: "http://example.org/hook", Hooks: Endpoints{"build": ""}},
		},
		{
			name: "valid with override only",
			sub:  Subscriber{Name: "a", Hooks: Endpoints{"lava": "https://example.org/lava"}},
		},
		{
			name: "put",
			sub:  Subscriber{Name: "a", URL: "http://example.org", Method: "put", Hooks: Endpoints{"boot": ""}},
		},
		{
			name:    "uppercase put",
			sub:     Subscriber{Name: "a", URL: "http://example.org", Method: "PUT", Hooks: Endpoints{"boot": ""}},
			wantErr: ErrUnsupportedMethod,
		},
		{
			name:    "padded post",
			sub:     Subscriber{Name: "a", URL: "http://example.org", Method: " post ", Hooks: Endpoints{"boot": ""}},
			wantErr: ErrUnsupportedMethod,
		},
		{
			name:    "missing name",
			sub:     Subscriber{URL: "http://example.org", Hooks: Endpoints{"build": ""}},
			wantErr: ErrMissingName,
		},
		{
			name:    "missing url",
			sub:     Subscriber{Name: "a", Hooks: Endpoints{"build": ""}},
			wantErr: ErrMissingURL,
		},
		{
			name:    "override does not cover every event",
			sub:     Subscriber{Name: "a", Hooks: Endpoints{"lava": "https://example.org/lava", "boot": ""}},
			wantErr: ErrMissingURL,
		},
		{
			name:    "relative url",
			sub:     Subscriber{Name: "a", URL: "/hook", Hooks: Endpoints{"build": ""}},
			wantErr: ErrInvalidURL,
		},
		{
			name:    "unsupported scheme",
			sub:     Subscriber{Name: "a", URL: "ftp://example.org", Hooks: Endpoints{"build": ""}},
			wantErr: ErrInvalidURL,
		},
		{
			name:    "get method",
			sub:     Subscriber{Name: "a", URL: "http://example.org", Method: "get", Hooks: Endpoints{"build": ""}},
			wantErr: ErrUnsupportedMethod,
		},
		{
			name:    "no events",
			sub:     Subscriber{Name: "a", URL: "http://example.org"},
			wantErr: ErrNoEvents,
		},
		{
			name:    "only unknown events",
			sub:     Subscriber{Name: "a", URL: "http://example.org", Hooks: Endpoints{"test": ""}},
			wantErr: ErrNoEvents,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubscriber_URLFor(t *testing.T) {
	sub := Subscriber{
		URL:   "http://example.org/all",
		Hooks: Endpoints{"build": "http://example.org/build", "boot": ""},
	}

	assert.Equal(t, "http://example.org/build", sub.URLFor(core.EventBuild))
	assert.Equal(t, "http://example.org/all", sub.URLFor(core.EventBoot))
}

func TestSubscriber_DeliveryMethod(t *testing.T) {
	assert.Equal(t, MethodPost, Subscriber{}.DeliveryMethod())
	assert.Equal(t, MethodPut, Subscriber{Method: "put"}.DeliveryMethod())
	assert.Equal(t, "Put", Subscriber{Method: "Put"}.DeliveryMethod())
}

func TestSubscriber_Events(t *testing.T) {
	sub := Subscriber{Hooks: Endpoints{"build": "", "lava": "", "deploy": "", "alpha": ""}}

	assert.Equal(t, []core.EventType{core.EventLava, core.EventBuild}, sub.Events())
	assert.Equal(t, []string{"alpha", "deploy"}, sub.UnknownEvents())
}

func TestSubscriber_CloneIsIndependent(t *testing.T) {
	sub := Subscriber{Name: "a", Hooks: Endpoints{"build": ""}}
	c := sub.clone()
	c.Hooks["lava"] = ""

	require.Len(t, sub.Hooks, 1)
}
