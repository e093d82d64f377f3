// Package typed implements the Typed Transport: a restartable,
// bidirectional sequence of typed values layered over an encrypted
// byte socket, with a length-delimited record format and an escape
// hatch for direct byte access. See spec.md §4.4.
package typed

import (
	"context"
	"sync"

	"github.com/opd-ai/noisewire/internal/wirelog"
	"github.com/opd-ai/noisewire/socket"
	"github.com/opd-ai/noisewire/wireerr"
)

var log = wirelog.New("typed")

// Transport wraps a *socket.Socket in a typed send/receive interface.
// Out is the type this side sends, In is the type it receives — they
// may differ, which is the common case for a request/response session
// where one peer only ever sends requests and the other only ever
// sends responses.
//
// Transport carries an Open -> Closed state machine: any fatal error
// from Send, Next, or the underlying socket transitions it to Closed,
// after which every subsequent call returns wireerr.ErrClosed.
type Transport[Out any, In any] struct {
	mu    sync.Mutex
	sock  *socket.Socket
	codec Codec

	closed bool
	failed error
}

// New wraps sock in a Transport using codec for encoding outbound
// values and decoding inbound ones. Pass NewMsgpackCodec() for this
// module's default codec, or any type implementing Codec.
func New[Out any, In any](sock *socket.Socket, codec Codec) *Transport[Out, In] {
	return &Transport[Out, In]{sock: sock, codec: codec}
}

// Send encodes v and writes it as one length-delimited record. Per the
// ordering guarantee in spec.md §5, one Send call produces exactly one
// underlying Socket.Write call and therefore exactly one outer pack.
func (t *Transport[Out, In]) Send(ctx context.Context, v Out) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.sticky(); err != nil {
		return err
	}

	body, err := t.codec.Encode(v)
	if err != nil {
		// An encode failure never corrupts the stream position (nothing
		// was written yet), so the session stays Open.
		return err
	}
	if err := writeRecord(ctx, t.sock, body); err != nil {
		t.fail(err)
		return err
	}
	return nil
}

// Next reads and decodes the next record. A decode failure leaves the
// stream position inconsistent — the record's bytes have already been
// consumed from the socket but the caller has no usable value — so it
// transitions the transport to Closed, per spec.md §7.
func (t *Transport[Out, In]) Next(ctx context.Context) (In, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero In
	if err := t.sticky(); err != nil {
		return zero, err
	}

	body, err := readRecord(ctx, t.sock)
	if err != nil {
		t.fail(err)
		return zero, err
	}

	var v In
	if err := t.codec.Decode(body, &v); err != nil {
		t.fail(err)
		return zero, err
	}
	return v, nil
}

// GetMut returns the underlying *socket.Socket for direct byte access
// (bulk copies that should bypass typed framing) together with a
// release function. While the borrow is held — between the call to
// GetMut and the call to release — no other goroutine may call Send,
// Next, or GetMut on this Transport; they block until release is
// called, mirroring the exclusive-borrow contract in spec.md §4.4.
func (t *Transport[Out, In]) GetMut() (sock *socket.Socket, release func(), err error) {
	t.mu.Lock()
	if err := t.sticky(); err != nil {
		t.mu.Unlock()
		return nil, nil, err
	}
	return t.sock, t.mu.Unlock, nil
}

// Close transitions the transport to Closed and closes the underlying
// socket. Calling Close on an already-closed transport is a no-op.
func (t *Transport[Out, In]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	log.Info("closing typed transport")
	return t.sock.Close()
}

func (t *Transport[Out, In]) sticky() error {
	if t.failed != nil {
		return t.failed
	}
	if t.closed {
		return wireerr.ErrClosed
	}
	return nil
}

func (t *Transport[Out, In]) fail(err error) {
	if t.failed == nil {
		t.failed = err
		t.closed = true
		log.Error("typed transport entering closed state", err)
	}
}
