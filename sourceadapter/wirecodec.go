package sourceadapter

import (
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/sui-replay/replaycore/errtax"
)

// wireMessage is implemented by every request/response type the archive RPC
// client sends or receives, letting a single grpc codec marshal all of them
// through the canonical wire format instead of protobuf-generated code.
type wireMessage interface {
	marshalWire() []byte
}

// wireCodec adapts the grpc.Codec interface to wireMessage, registered as
// "sui-replay-wire" so grpcArchiveRPC can select it per-call with
// grpc.ForceCodec without affecting any other gRPC client in the process.
type wireCodec struct{}

func (wireCodec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("sourceadapter: %T does not implement wireMessage", v)
	}
	return m.marshalWire(), nil
}

func (wireCodec) Unmarshal(data []byte, v interface{}) error {
	u, ok := v.(interface{ unmarshalWire([]byte) error })
	if !ok {
		return fmt.Errorf("sourceadapter: %T is not unmarshalable", v)
	}
	if err := u.unmarshalWire(data); err != nil {
		return errtax.Codec(0, err.Error())
	}
	return nil
}

func (wireCodec) Name() string { return codecName }

const codecName = "sui-replay-wire"

func init() {
	encoding.RegisterCodec(wireCodec{})
}
