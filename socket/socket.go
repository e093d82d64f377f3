// Package socket implements the Encrypted Byte Socket: a duplex,
// byte-oriented channel built directly on a pair of post-handshake
// Noise transport cipher states and the dual-level framing in the
// framing package. See spec §4.3.
package socket

import (
	"context"
	"io"
	"sync"

	"github.com/flynn/noise"
	"github.com/opd-ai/noisewire/framing"
	"github.com/opd-ai/noisewire/internal/wirelog"
	"github.com/opd-ai/noisewire/wireerr"
)

const (
	// PlaintextMax is the largest plaintext chunk this socket will
	// encrypt into a single Noise transport message: 65535 minus the
	// 16-byte AEAD tag.
	PlaintextMax = 65519
	// CiphertextMax is the largest ciphertext a single inner frame may
	// carry.
	CiphertextMax = 65535

	aeadTagLen = 16
)

var log = wirelog.New("socket")

// Socket is the Encrypted Byte Socket. It owns the underlying
// transport and both cipher states exclusively; Split hands out that
// ownership to a send/receive half pair for full-duplex use.
type Socket struct {
	mu sync.Mutex

	conn io.ReadWriteCloser

	send    *noise.CipherState
	sendSeq uint64
	recv    *noise.CipherState
	recvSeq uint64

	maxPackBytes uint32

	// inbound plaintext buffer: decrypted bytes from the most recent
	// outer pack not yet delivered to a caller.
	inbound []byte

	closed bool
	failed error // sticky terminal error, once set every operation returns it
}

// New wraps conn with the given post-handshake cipher states. Callers
// normally obtain a *Socket from a handshake.Builder rather than
// calling this directly.
func New(conn io.ReadWriteCloser, send, recv *noise.CipherState) *Socket {
	return NewWithMaxPack(conn, send, recv, framing.DefaultMaxPackBytes)
}

// NewWithMaxPack is New with an explicit MAX_PACK_BYTES, for callers
// that need a smaller receive-side memory bound than the default.
func NewWithMaxPack(conn io.ReadWriteCloser, send, recv *noise.CipherState, maxPackBytes uint32) *Socket {
	return &Socket{conn: conn, send: send, recv: recv, maxPackBytes: maxPackBytes}
}

// Write partitions p into PLAINTEXT_MAX-sized chunks, encrypts and
// inner-frames each in order, and flushes the whole concatenation as
// one outer pack. It is atomic at the pack level: once any chunk has
// been encrypted the pack is always flushed to completion even if ctx
// is cancelled mid-flush, per the Design Notes' cancellation
// resolution — only the next call observes the cancellation.
func (s *Socket) Write(ctx context.Context, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sticky(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, wireerr.New(wireerr.KindClosed, err)
	}
	n, err := writeChunks(s.conn, s.send, &s.sendSeq, p)
	if err != nil {
		s.fail(err)
	}
	return n, err
}

// Read drains the inbound plaintext buffer if non-empty; otherwise it
// reads and decrypts exactly one outer pack before draining from it.
// It never blocks for more than one pack's worth of data.
func (s *Socket) Read(ctx context.Context, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sticky(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, wireerr.New(wireerr.KindClosed, err)
	}
	if len(p) == 0 {
		return 0, nil
	}

	if len(s.inbound) == 0 {
		plain, seq, err := readPack(s.conn, s.recv, s.recvSeq, s.maxPackBytes)
		if err != nil {
			s.fail(err)
			return 0, err
		}
		s.inbound = plain
		s.recvSeq = seq
	}

	n := copy(p, s.inbound)
	s.inbound = s.inbound[n:]
	return n, nil
}

// Close flushes nothing further (there is no Noise-level close frame)
// and shuts down the underlying transport. EOF on the transport is
// the peer's close signal, not an explicit message.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	log.Info("closing encrypted byte socket")
	return s.conn.Close()
}

func (s *Socket) sticky() error {
	if s.failed != nil {
		return s.failed
	}
	if s.closed {
		return wireerr.ErrClosed
	}
	return nil
}

// fail poisons the socket: once a terminal error has been observed,
// every subsequent operation returns it rather than attempting
// further cipher or transport operations on inconsistent state.
func (s *Socket) fail(err error) {
	if s.failed == nil {
		s.failed = err
		log.Error("socket entering terminal failure state", err)
	}
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
