package storage

import (
	"testing"
	"time"

	"github.com/poiesic/kernelci/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalJob(t *testing.T) {
	created := time.Date(2024, 5, 2, 8, 30, 0, 123000, time.UTC)
	job := core.NewJob("mainline", "v6.9-rc6", created)

	data, err := MarshalDocument(job)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_id":"mainline-v6.9-rc6"`)
	assert.Contains(t, string(data), `"created":"2024-05-02T08:30:00.000123Z"`)

	decoded, err := UnmarshalJob(data)
	require.NoError(t, err)
	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, job.Job, decoded.Job)
	assert.Equal(t, job.Kernel, decoded.Kernel)
	assert.True(t, job.Created.Equal(decoded.Created))
}

func TestMarshalUnmarshalVariant(t *testing.T) {
	tests := []struct {
		name    string
		variant *core.Variant
	}{
		{
			name:    "no artifacts",
			variant: &core.Variant{ID: "tinyconfig", JobID: "mainline-v6.1"},
		},
		{
			name: "several artifacts",
			variant: &core.Variant{
				ID:    "arm64-defconfig",
				JobID: "mainline-v6.1",
				Artifacts: map[core.ArtifactRole]string{
					core.RoleBuildLog:     "/srv/mainline/v6.1/arm64-defconfig/build.log",
					core.RoleKernelConfig: "/srv/mainline/v6.1/arm64-defconfig/kernel.config",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalDocument(tt.variant)
			require.NoError(t, err)

			decoded, err := UnmarshalVariant(data)
			require.NoError(t, err)
			assert.Equal(t, tt.variant, decoded)
		})
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalJob([]byte("{not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalVariant([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
