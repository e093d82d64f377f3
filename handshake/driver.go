package handshake

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/flynn/noise"
	"github.com/opd-ai/noisewire/framing"
	"github.com/opd-ai/noisewire/internal/wirelog"
	"github.com/opd-ai/noisewire/socket"
	"github.com/opd-ai/noisewire/wireerr"
)

var log = wirelog.New("handshake")

// BuildAsInitiator runs the initiator half of the selected handshake
// pattern over the Builder's transport. On success it consumes the
// Builder and returns a ready-to-use *socket.Socket; on failure it
// returns one of ErrHandshakeIo, ErrHandshakeCrypto,
// ErrHandshakePeerMismatch, or ErrHandshakeTimeout (if a deadline was
// configured), per spec.md §4.2, or ErrConfig if the configuration is
// rejected before any byte is sent.
func (b *Builder) BuildAsInitiator(ctx context.Context) (*socket.Socket, error) {
	return b.build(ctx, true)
}

// BuildAsResponder is the symmetric counterpart to BuildAsInitiator.
func (b *Builder) BuildAsResponder(ctx context.Context) (*socket.Socket, error) {
	return b.build(ctx, false)
}

func (b *Builder) build(ctx context.Context, asInitiator bool) (*socket.Socket, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	pattern, name, err := resolvePattern(b.localRole, b.peerRole.Kind, asInitiator, b.psk != nil)
	if err != nil {
		return nil, err
	}

	if b.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.handshakeTimeout)
		defer cancel()
	}

	// A plain ctx.Err() check only catches cancellation between
	// messages; a transport that also exposes net.Conn-style deadlines
	// lets an in-flight blocked Write/Read unblock early too, so set one
	// for the lifetime of the handshake whenever ctx carries a deadline.
	if dl, ok := ctx.Deadline(); ok {
		if setter, ok := b.transport.(interface{ SetDeadline(time.Time) error }); ok {
			if err := setter.SetDeadline(dl); err == nil {
				defer setter.SetDeadline(time.Time{})
			}
		}
	}

	cfg := noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       pattern,
		Initiator:     asInitiator,
		Prologue:      b.prologue,
		PresharedKey:  b.psk,
		StaticKeypair: b.localKeys.dhKey(),
	}
	if b.peerRole.Kind == RoleK {
		// K: the peer's static key must already be known out of band and
		// is supplied to the handshake state up front.
		cfg.PeerStatic = append([]byte(nil), b.peerRole.ExpectedKey...)
	}

	state, err := noise.NewHandshakeState(cfg)
	if err != nil {
		return nil, wireerr.New(wireerr.KindHandshakeCrypto, fmt.Errorf("initialize Noise_%s handshake: %w", name, err))
	}

	log.With("pattern", name).With("initiator", asInitiator).Info("starting handshake")

	send, recv, err := runHandshake(ctx, b.transport, state, asInitiator, b.peerRole.Kind == RoleK)
	if err != nil {
		log.Error("handshake failed", err)
		return nil, err
	}

	// X's key is learned during the handshake rather than fed in up
	// front, so it is the only role that needs an explicit post-
	// handshake comparison, and only when the caller pinned one.
	if b.peerRole.Kind == RoleX && len(b.peerRole.ExpectedKey) != 0 {
		remote := state.PeerStatic()
		if !keysEqual(remote, b.peerRole.ExpectedKey) {
			err := wireerr.New(wireerr.KindHandshakePeerMismatch, fmt.Errorf("remote static key did not match configured peer"))
			log.Error("peer key mismatch", err)
			return nil, err
		}
	}

	log.With("pattern", name).Info("handshake complete")
	return socket.New(b.transport, send, recv), nil
}

// runHandshake drives the Noise message loop to completion, writing
// and reading one inner frame per handshake message (plaintext
// payloads are always empty, per spec.md §4.2 step 2). It returns the
// split send/recv cipher states once the Noise state reports
// handshake-complete.
//
// peerKeyPinned is true when the peer's static key was supplied up
// front (RoleK) rather than learned mid-handshake. In that case the
// only way WriteMessage/ReadMessage can fail on a DH/decryption step
// is that the remote does not hold the private half of the pinned
// key, so such a failure is reported as KindHandshakePeerMismatch
// instead of a generic KindHandshakeCrypto, per spec.md §8 scenario S3.
func runHandshake(ctx context.Context, conn io.ReadWriter, state *noise.HandshakeState, asInitiator, peerKeyPinned bool) (send, recv *noise.CipherState, err error) {
	cryptoKind := wireerr.KindHandshakeCrypto
	if peerKeyPinned {
		cryptoKind = wireerr.KindHandshakePeerMismatch
	}

	shouldWrite := asInitiator
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, wireerr.New(wireerr.KindHandshakeTimeout, err)
		}

		if shouldWrite {
			msg, cs1, cs2, werr := state.WriteMessage(nil, nil)
			if werr != nil {
				return nil, nil, wireerr.New(cryptoKind, fmt.Errorf("write handshake message: %w", werr))
			}
			if err := framing.WriteInnerFrame(conn, msg); err != nil {
				return nil, nil, reclassifyIOErr(ctx, err)
			}
			if cs1 != nil && cs2 != nil {
				return pickCipherOrder(asInitiator, cs1, cs2)
			}
		} else {
			frame, rerr := framing.ReadInnerFrame(conn)
			if rerr != nil {
				return nil, nil, reclassifyIOErr(ctx, rerr)
			}
			_, cs1, cs2, rerr := state.ReadMessage(nil, frame)
			if rerr != nil {
				return nil, nil, wireerr.New(cryptoKind, fmt.Errorf("read handshake message: %w", rerr))
			}
			if cs1 != nil && cs2 != nil {
				return pickCipherOrder(asInitiator, cs1, cs2)
			}
		}
		shouldWrite = !shouldWrite
	}
}

// pickCipherOrder maps flynn/noise's Split() result onto this side's
// (send, recv) pair. flynn/noise always returns (initiator's send cipher, responder's
// send cipher) as (cs1, cs2) regardless of which side is calling, so
// the initiator's own send is cs1 and its recv is cs2; the responder
// is the mirror image.
func pickCipherOrder(asInitiator bool, cs1, cs2 *noise.CipherState) (send, recv *noise.CipherState, err error) {
	if asInitiator {
		return cs1, cs2, nil
	}
	return cs2, cs1, nil
}

// reclassifyIOErr turns a framing-layer error into a handshake-layer
// one. A deadline expiring mid-read/write surfaces from the transport
// as a plain timeout error, not one of this module's own Kinds, so it
// is detected by checking ctx directly rather than by inspecting err's
// type.
func reclassifyIOErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return wireerr.New(wireerr.KindHandshakeTimeout, ctxErr)
	}
	var we *wireerr.Error
	if e, ok := err.(*wireerr.Error); ok {
		we = e
	} else {
		return wireerr.New(wireerr.KindHandshakeIo, err)
	}
	switch we.Kind {
	case wireerr.KindUnexpectedEof, wireerr.KindTransportIo:
		return wireerr.New(wireerr.KindHandshakeIo, we)
	case wireerr.KindProtocol:
		return wireerr.New(wireerr.KindHandshakeCrypto, we)
	default:
		return we
	}
}

func keysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
