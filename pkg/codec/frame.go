package codec

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jdziat/simple-uow/pkg/core"
)

// FrameCodec serializes CloudEvent frames for a bus transport.
type FrameCodec interface {
	// Encode serializes an event to bytes.
	Encode(event *core.CloudEvent) ([]byte, error)

	// Decode deserializes bytes into an event.
	Decode(data []byte) (*core.CloudEvent, error)

	// Name returns the codec identifier ("json" or "msgpack").
	Name() string
}

// Frame codec names.
const (
	FrameJSON    = "json"
	FrameMsgpack = "msgpack"
)

// GetFrameCodec returns a frame codec by name. Defaults to JSON.
func GetFrameCodec(name string) FrameCodec {
	switch name {
	case FrameMsgpack:
		return &MsgpackFrameCodec{}
	default:
		return &JSONFrameCodec{}
	}
}

// JSONFrameCodec encodes frames as JSON.
type JSONFrameCodec struct{}

// Encode serializes event as JSON.
func (c *JSONFrameCodec) Encode(event *core.CloudEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Decode parses a JSON frame.
func (c *JSONFrameCodec) Decode(data []byte) (*core.CloudEvent, error) {
	var e core.CloudEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Name returns the codec name used in configuration.
func (c *JSONFrameCodec) Name() string { return FrameJSON }

// MsgpackFrameCodec encodes frames as MessagePack.
type MsgpackFrameCodec struct{}

// Encode serializes event as MessagePack.
func (c *MsgpackFrameCodec) Encode(event *core.CloudEvent) ([]byte, error) {
	return msgpack.Marshal(event)
}

// Decode parses a MessagePack frame.
func (c *MsgpackFrameCodec) Decode(data []byte) (*core.CloudEvent, error) {
	var e core.CloudEvent
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Name returns the codec name used in configuration.
func (c *MsgpackFrameCodec) Name() string { return FrameMsgpack }
