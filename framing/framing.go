// Package framing implements the two length-delimited byte codecs the
// rest of this module is built on: a 16-bit inner framer for
// individual Noise messages, and a 32-bit outer framer for packs of
// one or more inner frames. Both are big-endian and operate directly
// on a byte stream (io.Reader/io.Writer), not on individual transport
// reads, so they compose cleanly with any reliable ordered transport.
package framing

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/noisewire/wireerr"
)

const (
	// InnerHeaderLen is the size in bytes of the inner frame's length
	// header.
	InnerHeaderLen = 2
	// InnerMaxBody is the largest body an inner frame may carry. A
	// zero-length body is legal (empty Noise handshake payloads).
	InnerMaxBody = 65535

	// OuterHeaderLen is the size in bytes of the outer frame's length
	// header.
	OuterHeaderLen = 4
	// DefaultMaxPackBytes is this module's choice of MAX_PACK_BYTES:
	// large enough to carry many PLAINTEXT_MAX-sized inner frames in
	// one pack while bounding peak memory on the receive side.
	DefaultMaxPackBytes = 32 << 20 // 32 MiB
)

// ReadInnerFrame reads one 16-bit length-prefixed frame from r and
// returns its body. It returns a wireerr with KindUnexpectedEof if the
// peer closes mid-header or mid-body, and KindProtocol if the decoded
// length exceeds InnerMaxBody (unreachable for a 2-byte header given
// InnerMaxBody == 65535, checked anyway for defense against a future
// header-width change).
func ReadInnerFrame(r io.Reader) ([]byte, error) {
	var header [InnerHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, wrapEOF(err, "read inner frame header")
	}
	length := binary.BigEndian.Uint16(header[:])
	if int(length) > InnerMaxBody {
		return nil, wireerr.New(wireerr.KindProtocol, fmt.Errorf("inner frame of %d bytes exceeds max %d", length, InnerMaxBody))
	}
	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, wrapEOF(err, "read inner frame body")
		}
	}
	return body, nil
}

// WriteInnerFrame writes body to w as one 16-bit length-prefixed
// frame. body may be empty.
func WriteInnerFrame(w io.Writer, body []byte) error {
	if len(body) > InnerMaxBody {
		return wireerr.New(wireerr.KindProtocol, fmt.Errorf("inner frame of %d bytes exceeds max %d", len(body), InnerMaxBody))
	}
	var header [InnerHeaderLen]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return wireerr.New(wireerr.KindTransportIo, err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return wireerr.New(wireerr.KindTransportIo, err)
		}
	}
	return nil
}

// ReadOuterFrame reads one 32-bit length-prefixed pack from r and
// returns its body. A zero-length body is illegal per spec (EmptyPack)
// since every outer pack must carry at least one inner frame.
func ReadOuterFrame(r io.Reader, maxPackBytes uint32) ([]byte, error) {
	var header [OuterHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, wrapEOF(err, "read outer frame header")
	}
	length := binary.BigEndian.Uint32(header[:])
	if length == 0 {
		return nil, wireerr.New(wireerr.KindProtocol, fmt.Errorf("empty pack body"))
	}
	if length > maxPackBytes {
		return nil, wireerr.New(wireerr.KindProtocol, fmt.Errorf("outer pack of %d bytes exceeds max %d", length, maxPackBytes))
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, wrapEOF(err, "read outer frame body")
	}
	return body, nil
}

// WriteOuterFrame writes body to w as one 32-bit length-prefixed pack.
// body must be non-empty.
func WriteOuterFrame(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return wireerr.New(wireerr.KindProtocol, fmt.Errorf("empty pack body"))
	}
	if len(body) > DefaultMaxPackBytes {
		return wireerr.New(wireerr.KindProtocol, fmt.Errorf("outer pack of %d bytes exceeds max %d", len(body), DefaultMaxPackBytes))
	}
	var header [OuterHeaderLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return wireerr.New(wireerr.KindTransportIo, err)
	}
	if _, err := w.Write(body); err != nil {
		return wireerr.New(wireerr.KindTransportIo, err)
	}
	return nil
}

// SplitInnerFrames parses body as a sequence of consecutive inner
// frames until exhausted, returning each frame's ciphertext body in
// order. Any residual trailing bytes that do not form a complete
// inner frame are a protocol violation.
func SplitInnerFrames(body []byte) ([][]byte, error) {
	var frames [][]byte
	for len(body) > 0 {
		if len(body) < InnerHeaderLen {
			return nil, wireerr.New(wireerr.KindProtocol, fmt.Errorf("%d residual bytes do not form a complete inner frame header", len(body)))
		}
		length := int(binary.BigEndian.Uint16(body[:InnerHeaderLen]))
		body = body[InnerHeaderLen:]
		if len(body) < length {
			return nil, wireerr.New(wireerr.KindProtocol, fmt.Errorf("inner frame declares %d bytes but only %d remain", length, len(body)))
		}
		frames = append(frames, body[:length])
		body = body[length:]
	}
	if len(frames) == 0 {
		return nil, wireerr.New(wireerr.KindProtocol, fmt.Errorf("pack body contained no inner frames"))
	}
	return frames, nil
}

func wrapEOF(err error, op string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return wireerr.New(wireerr.KindUnexpectedEof, fmt.Errorf("%s: %w", op, err))
	}
	return wireerr.New(wireerr.KindTransportIo, fmt.Errorf("%s: %w", op, err))
}
