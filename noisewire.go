package noisewire

import (
	"context"
	"net"

	"github.com/opd-ai/noisewire/handshake"
	"github.com/opd-ai/noisewire/socket"
)

// DialAndHandshake dials addr on network and immediately runs the
// initiator half of a handshake. configure receives the dialed
// connection and returns the Builder whose BuildAsInitiator is run;
// it is provided for the common case of "dial, then handshake, then
// nothing else."
//
// On any error the dialed connection is closed before returning.
func DialAndHandshake(ctx context.Context, network, addr string, configure func(conn net.Conn) *handshake.Builder) (*socket.Socket, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	b := configure(conn)
	sock, err := b.BuildAsInitiator(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sock, nil
}

// AcceptAndHandshake runs the responder half of the handshake
// described by b over an already-accepted connection. It is a thin
// wrapper over Builder.BuildAsResponder provided so callers driving a
// net.Listener accept loop can pair it visually with
// DialAndHandshake.
func AcceptAndHandshake(ctx context.Context, b *handshake.Builder) (*socket.Socket, error) {
	return b.BuildAsResponder(ctx)
}
