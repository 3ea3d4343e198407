package tablepb

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// ContentSubtype is the gRPC content-subtype the bridge codec registers
// under. Clients opt in with grpc.CallContentSubtype(ContentSubtype);
// the bootstrap messages have no descriptors, so they cannot ride the
// default proto codec.
const ContentSubtype = "json"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Name() string { return ContentSubtype }

func (codec) Marshal(v interface{}) ([]byte, error) {
	// Generated messages (grpc health, reflection) keep the binary
	// encoding even when the connection defaults to this subtype.
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("tablepb: marshal %T: %w", v, err)
	}
	return b, nil
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("tablepb: unmarshal %T: %w", v, err)
	}
	return nil
}
