package socket

import (
	"context"
	"io"

	"github.com/flynn/noise"
	"github.com/opd-ai/noisewire/wireerr"
)

// Splitting support: once split, each half owns a disjoint field of
// the original Socket (its own cipher state and nonce counter) and
// needs no locking between halves — only Socket itself serializes
// concurrent callers, with its mutex.

// SendHalf exclusively owns the outbound transport half and send
// cipher after a Split. It is not safe for concurrent use by more than
// one goroutine.
type SendHalf struct {
	conn    io.Writer
	closer  io.Closer
	send    *noise.CipherState
	sendSeq uint64
	maxPack uint32
	failed  error
}

// RecvHalf exclusively owns the inbound transport half and recv
// cipher after a Split. It is not safe for concurrent use by more than
// one goroutine.
type RecvHalf struct {
	conn    io.Reader
	closer  io.Closer
	recv    *noise.CipherState
	recvSeq uint64
	maxPack uint32
	inbound []byte
	failed  error
}

// Split consumes s and returns independent send/receive halves backed
// by the same underlying connection. Splitting is the only concurrent
// access this module permits: after Split, s must not be used again.
// conn must itself support concurrent use by one reader and one writer
// goroutine (true of any net.Conn).
func (s *Socket) Split() (*SendHalf, *RecvHalf, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky(); err != nil {
		return nil, nil, err
	}
	s.closed = true // s itself is now retired in favor of the two halves

	sh := &SendHalf{conn: s.conn, closer: s.conn, send: s.send, sendSeq: s.sendSeq, maxPack: s.maxPackBytes}
	rh := &RecvHalf{conn: s.conn, closer: s.conn, recv: s.recv, recvSeq: s.recvSeq, maxPack: s.maxPackBytes, inbound: s.inbound}
	return sh, rh, nil
}

// Write behaves like Socket.Write restricted to the send direction.
func (h *SendHalf) Write(ctx context.Context, p []byte) (int, error) {
	if h.failed != nil {
		return 0, h.failed
	}
	if err := ctx.Err(); err != nil {
		return 0, wireerr.New(wireerr.KindClosed, err)
	}
	n, err := writeChunks(h.conn, h.send, &h.sendSeq, p)
	if err != nil {
		h.failed = err
	}
	return n, err
}

// Close shuts down the underlying connection. If both halves share one
// net.Conn, closing either half closes the connection for both; the
// peer observes both directions end.
func (h *SendHalf) Close() error { return h.closer.Close() }

// Read behaves like Socket.Read restricted to the receive direction.
func (h *RecvHalf) Read(ctx context.Context, p []byte) (int, error) {
	if h.failed != nil {
		return 0, h.failed
	}
	if err := ctx.Err(); err != nil {
		return 0, wireerr.New(wireerr.KindClosed, err)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if len(h.inbound) == 0 {
		plain, seq, err := readPack(h.conn, h.recv, h.recvSeq, h.maxPack)
		if err != nil {
			h.failed = err
			return 0, err
		}
		h.inbound = plain
		h.recvSeq = seq
	}
	n := copy(p, h.inbound)
	h.inbound = h.inbound[n:]
	return n, nil
}

// Close shuts down the underlying connection.
func (h *RecvHalf) Close() error { return h.closer.Close() }

// Join recombines a previously split pair back into a whole Socket.
// Both halves must still be open (never Closed independently) and
// must originate from the same Split call, or behavior is undefined —
// this module does not track pairing identity beyond that contract.
func Join(sh *SendHalf, rh *RecvHalf) (*Socket, error) {
	if sh.failed != nil {
		return nil, sh.failed
	}
	if rh.failed != nil {
		return nil, rh.failed
	}
	return &Socket{
		conn:         sh.closer.(io.ReadWriteCloser),
		send:         sh.send,
		sendSeq:      sh.sendSeq,
		recv:         rh.recv,
		recvSeq:      rh.recvSeq,
		maxPackBytes: sh.maxPack,
		inbound:      rh.inbound,
	}, nil
}
