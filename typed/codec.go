package typed

import (
	"fmt"

	"github.com/opd-ai/noisewire/wireerr"
	"github.com/ugorji/go/codec"
)

// Codec is the external serialization collaborator a Transport needs
// to turn Go values into bytes and back. It is intentionally minimal
// so callers can plug in any encoding without this module favoring
// one.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// MsgpackCodec is the Codec this module ships by default, built on
// github.com/ugorji/go/codec's MessagePack handle. It is safe for
// concurrent use: ugorji's Handle is immutable configuration and each
// Encode/Decode call gets its own Encoder/Decoder.
type MsgpackCodec struct {
	h *codec.MsgpackHandle
}

// NewMsgpackCodec returns a MsgpackCodec with this module's handle
// defaults: canonical map key ordering (for deterministic wire output,
// useful for tests and for any future MAC-over-ciphertext tooling).
// Every other handle option keeps ugorji's default.
func NewMsgpackCodec() *MsgpackCodec {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	return &MsgpackCodec{h: h}
}

// Encode implements Codec.
func (c *MsgpackCodec) Encode(v any) ([]byte, error) {
	var out []byte
	enc := codec.NewEncoderBytes(&out, c.h)
	if err := enc.Encode(v); err != nil {
		return nil, wireerr.New(wireerr.KindEncode, fmt.Errorf("msgpack encode: %w", err))
	}
	return out, nil
}

// Decode implements Codec.
func (c *MsgpackCodec) Decode(data []byte, v any) error {
	dec := codec.NewDecoderBytes(data, c.h)
	if err := dec.Decode(v); err != nil {
		return wireerr.New(wireerr.KindDecode, fmt.Errorf("msgpack decode: %w", err))
	}
	return nil
}
