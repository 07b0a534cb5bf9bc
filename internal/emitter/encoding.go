package emitter

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/visiona/spotter/internal/pipeline"
)

// Payload wire formats.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// Encoder serializes an interval report for publishing.
type Encoder func(pipeline.Report) ([]byte, error)

// NewEncoder returns the encoder for the named wire format. An empty name
// selects JSON.
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", EncodingJSON:
		return func(r pipeline.Report) ([]byte, error) {
			return json.Marshal(r)
		}, nil
	case EncodingMsgpack:
		return func(r pipeline.Report) ([]byte, error) {
			return msgpack.Marshal(r)
		}, nil
	default:
		return nil, fmt.Errorf("unknown report encoding %q", name)
	}
}
