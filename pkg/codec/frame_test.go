package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-uow/pkg/core"
)

func TestGetFrameCodec(t *testing.T) {
	assert.Equal(t, FrameJSON, GetFrameCodec("").Name())
	assert.Equal(t, FrameJSON, GetFrameCodec("json").Name())
	assert.Equal(t, FrameMsgpack, GetFrameCodec("msgpack").Name())
	assert.Equal(t, FrameJSON, GetFrameCodec("protobuf").Name())
}

func TestFrameCodecs_RoundTrip(t *testing.T) {
	job := core.Job{JobID: "job-9", UoW: "hash", File: core.File{ID: "f", Blob: core.Blob{Location: "in.txt"}}}
	event, err := core.NewJobCloudEvent("test", job)
	require.NoError(t, err)

	for _, name := range []string{FrameJSON, FrameMsgpack} {
		t.Run(name, func(t *testing.T) {
			c := GetFrameCodec(name)

			data, err := c.Encode(&event)
			require.NoError(t, err)

			got, err := c.Decode(data)
			require.NoError(t, err)

			assert.Equal(t, event.ID, got.ID)
			assert.Equal(t, event.Type, got.Type)
			assert.Equal(t, event.Source, got.Source)
			assert.True(t, event.Time.Equal(got.Time))

			decoded, err := got.DecodeJob()
			require.NoError(t, err)
			assert.Equal(t, job, decoded)
		})
	}
}

func TestFrameCodecs_DecodeGarbage(t *testing.T) {
	for _, name := range []string{FrameJSON, FrameMsgpack} {
		_, err := GetFrameCodec(name).Decode([]byte{0xc1})
		assert.Error(t, err, name)
	}
}
