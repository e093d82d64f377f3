package typed

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/noisewire/socket"
	"github.com/opd-ai/noisewire/wireerr"
)

// recordHeaderLen is the length-delimited record header typed
// transport writes ahead of every encoded value, same framing family
// as the inner framer (a fixed-width big-endian length) but sized to
// 32 bits: an encoded value is a plaintext application payload, not a
// single Noise message, so it isn't bound by the 65535-byte
// inner-frame ceiling the way a single write chunk is.
const recordHeaderLen = 4

// maxRecordLen caps the length a record header may declare, so a
// corrupted or hostile header can't drive an attempted multi-gigabyte
// allocation before the body has even been read.
const maxRecordLen = 1 << 30

func writeRecord(ctx context.Context, sock *socket.Socket, body []byte) error {
	if len(body) > maxRecordLen {
		return wireerr.New(wireerr.KindProtocol, fmt.Errorf("record of %d bytes exceeds max %d", len(body), maxRecordLen))
	}
	buf := make([]byte, recordHeaderLen+len(body))
	binary.BigEndian.PutUint32(buf[:recordHeaderLen], uint32(len(body)))
	copy(buf[recordHeaderLen:], body)
	_, err := sock.Write(ctx, buf)
	return err
}

func readRecord(ctx context.Context, sock *socket.Socket) ([]byte, error) {
	header := make([]byte, recordHeaderLen)
	if err := readFull(ctx, sock, header); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header)
	if length > maxRecordLen {
		return nil, wireerr.New(wireerr.KindProtocol, fmt.Errorf("record declares %d bytes, exceeds max %d", length, maxRecordLen))
	}
	body := make([]byte, length)
	if length > 0 {
		if err := readFull(ctx, sock, body); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// readFull reads len(buf) bytes from sock, looping over partial reads
// the same way io.ReadFull does for an io.Reader.
func readFull(ctx context.Context, sock *socket.Socket, buf []byte) error {
	for n := 0; n < len(buf); {
		m, err := sock.Read(ctx, buf[n:])
		n += m
		if err != nil {
			return err
		}
		if m == 0 {
			return wireerr.New(wireerr.KindUnexpectedEof, fmt.Errorf("read record: no progress"))
		}
	}
	return nil
}
