// Command noisewire-bench drives a Noise handshake and an encrypted
// round-trip over a real TCP connection, as either the initiator or
// the responder (selected by -mode), to exercise the library
// end-to-end outside of the test suite.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/opd-ai/noisewire/handshake"
	"github.com/opd-ai/noisewire/typed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	mode := flag.String("mode", "", "role to play: \"initiator\" or \"responder\"")
	addr := flag.String("addr", "127.0.0.1:4433", "address to dial or listen on")
	payload := flag.String("payload", "hello, noisewire", "plaintext to exchange once the handshake completes")
	flag.Parse()

	switch *mode {
	case "responder":
		return runResponder(*addr, *payload)
	case "initiator":
		return runInitiator(*addr, *payload)
	default:
		return fmt.Errorf("missing or unrecognized -mode %q, want \"initiator\" or \"responder\"", *mode)
	}
}

// benchRequest/benchResponse exercise the typed transport on top of
// the same connection used for the raw payload exchange.
type benchRequest struct {
	Echo string `codec:"echo"`
}

type benchResponse struct {
	Echo           string `codec:"echo"`
	RoundTripNanos int64  `codec:"round_trip_ns"`
}

func runInitiator(addr, payload string) error {
	keys, err := handshake.GenerateStaticKeypair()
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	sock, err := handshake.NewBuilder(keys, conn).
		WithLocalRole(handshake.RoleN).
		WithPeerRole(handshake.PeerUnknown()).
		WithHandshakeTimeout(5 * time.Second).
		BuildAsInitiator(ctx)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	defer sock.Close()

	if _, err := sock.Write(ctx, []byte(payload)); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	xport := typed.New[benchRequest, benchResponse](sock, typed.NewMsgpackCodec())
	if err := xport.Send(ctx, benchRequest{Echo: payload}); err != nil {
		return fmt.Errorf("send typed request: %w", err)
	}
	resp, err := xport.Next(ctx)
	if err != nil {
		return fmt.Errorf("receive typed response: %w", err)
	}

	fmt.Printf("handshake + round-trip complete in %s: echoed %q (remote measured %dns)\n",
		time.Since(start), resp.Echo, resp.RoundTripNanos)
	return nil
}

func runResponder(addr, expectedPayload string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer listener.Close()

	keys, err := handshake.GenerateStaticKeypairFrom(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	fmt.Printf("listening on %s\n", listener.Addr())
	conn, err := listener.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sock, err := handshake.NewBuilder(keys, conn).
		WithLocalRole(handshake.RoleN).
		WithPeerRole(handshake.PeerUnknown()).
		WithHandshakeTimeout(5 * time.Second).
		BuildAsResponder(ctx)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	defer sock.Close()

	buf := make([]byte, len(expectedPayload))
	if _, err := io.ReadFull(socketReader{ctx, sock}, buf); err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	fmt.Printf("received payload: %q\n", buf)

	xport := typed.New[benchResponse, benchRequest](sock, typed.NewMsgpackCodec())
	start := time.Now()
	req, err := xport.Next(ctx)
	if err != nil {
		return fmt.Errorf("receive typed request: %w", err)
	}
	if err := xport.Send(ctx, benchResponse{Echo: req.Echo, RoundTripNanos: time.Since(start).Nanoseconds()}); err != nil {
		return fmt.Errorf("send typed response: %w", err)
	}
	return nil
}

// socketReader adapts *socket.Socket's context-taking Read into a
// plain io.Reader so io.ReadFull can drive it without a wrapper loop
// duplicated here.
type socketReader struct {
	ctx context.Context
	r   interface {
		Read(ctx context.Context, p []byte) (int, error)
	}
}

func (s socketReader) Read(p []byte) (int, error) { return s.r.Read(s.ctx, p) }
