package handshake

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/opd-ai/noisewire/socket"
	"github.com/opd-ai/noisewire/wireerr"
	"github.com/stretchr/testify/require"
)

// buildResult carries one side's outcome back from its goroutine.
type buildResult struct {
	sock *socket.Socket
	err  error
}

func runPair(t *testing.T, initiate, respond func(ctx context.Context, conn net.Conn) (*socket.Socket, error)) (a, b *socket.Socket) {
	t.Helper()
	connA, connB := net.Pipe()

	initCh := make(chan buildResult, 1)
	respCh := make(chan buildResult, 1)

	go func() {
		sock, err := initiate(context.Background(), connA)
		initCh <- buildResult{sock, err}
	}()
	go func() {
		sock, err := respond(context.Background(), connB)
		respCh <- buildResult{sock, err}
	}()

	initRes := <-initCh
	respRes := <-respCh

	require.NoError(t, initRes.err, "initiator build")
	require.NoError(t, respRes.err, "responder build")
	return initRes.sock, respRes.sock
}

// TestNNHandshakeAndByteRoundTrip is scenario S1: an anonymous (N, N)
// handshake on both sides, followed by a plaintext round trip.
func TestNNHandshakeAndByteRoundTrip(t *testing.T) {
	aKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	bKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)

	a, b := runPair(t,
		func(ctx context.Context, conn net.Conn) (*socket.Socket, error) {
			return NewBuilder(aKeys, conn).
				WithLocalRole(RoleN).
				WithPeerRole(PeerUnknown()).
				BuildAsInitiator(ctx)
		},
		func(ctx context.Context, conn net.Conn) (*socket.Socket, error) {
			return NewBuilder(bKeys, conn).
				WithLocalRole(RoleN).
				WithPeerRole(PeerUnknown()).
				BuildAsResponder(ctx)
		},
	)
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	n, err := a.Write(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = b.Read(ctx, buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

// TestIKHandshakeRecoversPeerKey is scenario S2: the initiator knows
// the responder's static key ahead of time (K) and transmits its own
// immediately (I); both sides must resolve to Noise_IK.
func TestIKHandshakeRecoversPeerKey(t *testing.T) {
	initiatorKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	responderKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)

	a, b := runPair(t,
		func(ctx context.Context, conn net.Conn) (*socket.Socket, error) {
			return NewBuilder(initiatorKeys, conn).
				WithLocalRole(RoleI).
				WithPeerRole(PeerKnown(responderKeys.Public[:])).
				BuildAsInitiator(ctx)
		},
		func(ctx context.Context, conn net.Conn) (*socket.Socket, error) {
			return NewBuilder(responderKeys, conn).
				WithLocalRole(RoleK).
				WithPeerRole(PeerImmediate()).
				BuildAsResponder(ctx)
		},
	)
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	_, err = a.Write(ctx, []byte("ik"))
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, err = b.Read(ctx, buf)
	require.NoError(t, err)
	require.Equal(t, "ik", string(buf))
}

// TestXXHandshakePeerMismatchIsRejected is scenario S3: a pinned
// expected peer key that does not match what the handshake actually
// authenticates must fail with ErrHandshakePeerMismatch, even though
// the underlying Noise_XX handshake itself completed successfully.
func TestXXHandshakePeerMismatchIsRejected(t *testing.T) {
	aKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	bKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	wrongKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)

	connA, connB := net.Pipe()

	initCh := make(chan buildResult, 1)
	respCh := make(chan buildResult, 1)

	go func() {
		sock, err := NewBuilder(aKeys, connA).
			WithLocalRole(RoleX).
			WithPeerRole(PeerTransmitted(wrongKeys.Public[:])).
			BuildAsInitiator(context.Background())
		initCh <- buildResult{sock, err}
	}()
	go func() {
		sock, err := NewBuilder(bKeys, connB).
			WithLocalRole(RoleX).
			WithPeerRole(PeerTransmitted(nil)).
			BuildAsResponder(context.Background())
		respCh <- buildResult{sock, err}
	}()

	initRes := <-initCh
	respRes := <-respCh

	require.Error(t, initRes.err)
	require.True(t, errors.Is(initRes.err, wireerr.ErrHandshakePeerMismatch), "got: %v", initRes.err)

	// The responder's own handshake succeeds; it has no pinned
	// expectation to violate. Close its socket to avoid leaking the
	// net.Pipe goroutine.
	if respRes.err == nil {
		respRes.sock.Close()
	}
}

// TestKKHandshakePeerMismatchIsRejected reproduces spec.md §8 scenario
// S3 literally: a side configured with peer K(wrong_pub) against a
// remote using a different static key must itself observe
// HandshakePeerMismatch. Unlike X, a RoleK side's belief about the
// remote feeds directly into the Noise_KK "ss" token it computes on
// its own first read, so (unlike the writer-only corruption in an
// NK/IK-style pattern) the mispinned side fails its own handshake
// rather than the remote failing first.
func TestKKHandshakePeerMismatchIsRejected(t *testing.T) {
	aKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	bKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	wrongKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)

	connA, connB := net.Pipe()

	bRes := make(chan buildResult, 1)
	aRes := make(chan buildResult, 1)

	go func() {
		// B is the initiator and correctly knows A's static key.
		sock, err := NewBuilder(bKeys, connB).
			WithLocalRole(RoleK).
			WithPeerRole(PeerKnown(aKeys.Public[:])).
			WithHandshakeTimeout(200 * time.Millisecond).
			BuildAsInitiator(context.Background())
		bRes <- buildResult{sock, err}
	}()
	go func() {
		// A is the responder, configured with a wrong belief about B's
		// static key — the literal "peer K(wrong_pub)" of S3.
		sock, err := NewBuilder(aKeys, connA).
			WithLocalRole(RoleK).
			WithPeerRole(PeerKnown(wrongKeys.Public[:])).
			BuildAsResponder(context.Background())
		aRes <- buildResult{sock, err}
	}()

	aResult := <-aRes
	bResult := <-bRes

	require.Error(t, aResult.err)
	require.True(t, errors.Is(aResult.err, wireerr.ErrHandshakePeerMismatch), "got: %v", aResult.err)

	// A aborts before ever writing its reply, so B's handshake stalls
	// and its own configured timeout is what ends it.
	require.Error(t, bResult.err)
	if bResult.sock != nil {
		bResult.sock.Close()
	}
}

func TestHandshakeTimeoutElapses(t *testing.T) {
	aKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)

	connA, connB := net.Pipe()
	defer connB.Close()

	_, err = NewBuilder(aKeys, connA).
		WithLocalRole(RoleN).
		WithPeerRole(PeerUnknown()).
		WithHandshakeTimeout(20 * time.Millisecond).
		BuildAsInitiator(context.Background())

	require.Error(t, err)
	require.True(t, errors.Is(err, wireerr.ErrHandshakeTimeout), "got: %v", err)
}

func TestBuilderValidatesConfig(t *testing.T) {
	keys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	connA, connB := net.Pipe()
	defer connA.Close()
	defer connB.Close()

	_, err = NewBuilder(keys, connA).
		WithLocalRole(RoleN).
		WithPeerRole(PeerKnown([]byte("too short"))).
		BuildAsInitiator(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, wireerr.ErrConfig))
}
