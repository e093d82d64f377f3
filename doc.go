// Package noisewire upgrades a reliable, ordered, bidirectional byte
// transport (a *net.TCPConn, a Unix socket, anything satisfying
// io.ReadWriteCloser) into an authenticated, encrypted message
// channel using the Noise Protocol Framework, then layers a typed
// request/response abstraction on top of that encrypted channel.
//
// # Getting Started
//
// Generate a static keypair, configure a handshake Builder with both
// sides' roles, and build as whichever side opened the connection:
//
//	keys, err := handshake.GenerateStaticKeypair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conn, err := net.Dial("tcp", "peer.example:4433")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sock, err := handshake.NewBuilder(keys, conn).
//	    WithLocalRole(handshake.RoleI).
//	    WithPeerRole(handshake.PeerKnown(peerPublicKey[:])).
//	    WithHandshakeTimeout(10 * time.Second).
//	    BuildAsInitiator(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sock.Close()
//
// # Core Types
//
//   - [handshake.Builder]: accumulates handshake configuration and
//     drives the Noise handshake to completion
//   - [handshake.Role] / [handshake.PeerRole]: the four Noise
//     static-key disclosure behaviors (I, N, X, K) for each side
//   - [socket.Socket]: the resulting Encrypted Byte Socket —
//     Read/Write methods that take a context.Context, plus Close;
//     internally chunked, framed, and encrypted
//   - [typed.Transport]: a generic typed request/response layer over
//     a Socket, with a pluggable [typed.Codec]
//
// # Byte-Level Transport
//
// Once built, a Socket behaves like any other stream: large writes
// are transparently chunked and encrypted, large reads transparently
// reassembled.
//
//	n, err := sock.Write(ctx, payload)
//	buf := make([]byte, 4096)
//	n, err = sock.Read(ctx, buf)
//
// A Socket may be split for full-duplex use from two goroutines:
//
//	send, recv, err := sock.Split()
//	go func() { send.Write(ctx, outbound) }()
//	n, err = recv.Read(ctx, buf)
//
// # Typed Transport
//
// typed.Transport wraps a Socket in an encode/decode loop using any
// [typed.Codec]; this module ships [typed.MsgpackCodec] as a working
// default:
//
//	xport := typed.New[Request, Response](sock, typed.NewMsgpackCodec())
//	if err := xport.Send(ctx, Request{Kind: "get_time"}); err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := xport.Next(ctx)
//
// GetMut grants temporary exclusive byte-level access for bulk
// transfers that should bypass typed framing entirely:
//
//	raw, release, err := xport.GetMut()
//	_, err = raw.Write(ctx, bulk)
//	release()
//
// # Error Handling
//
// Every fatal condition surfaces as a [wireerr.Error] carrying a
// [wireerr.Kind]; use errors.Is against the package's sentinel
// values, or [wireerr.IsRemoteFault] to decide whether a fault is
// attributable to the remote peer rather than local state.
//
// # Integration Architecture
//
// This package is a thin facade; the real work lives in:
//
//   - [framing]: the dual-level length-delimited byte codecs
//   - [handshake]: Noise handshake pattern resolution and the
//     handshake driver
//   - [socket]: the Encrypted Byte Socket and its send/recv split
//   - [typed]: the typed request/response transport
//   - [wireerr]: the shared error taxonomy
package noisewire
