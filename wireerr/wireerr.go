// Package wireerr defines the error taxonomy shared by the handshake,
// socket, and typed packages.
//
// Every fatal condition this module can raise is represented as a Kind
// wrapped in an *Error, so callers can use errors.Is against the
// package-level sentinels below to decide whether a fault is local
// (safe to retry with a fresh transport) or caused by the remote peer.
package wireerr

import "errors"

// Kind classifies the fault that produced an Error.
type Kind int

const (
	// KindUnknown is never returned; it is the zero value of Kind.
	KindUnknown Kind = iota
	// KindTransportIo is a failure reading or writing the underlying
	// byte channel outside the handshake.
	KindTransportIo
	// KindHandshakeIo is a TransportIo failure during the handshake.
	KindHandshakeIo
	// KindHandshakeCrypto is a Noise cryptographic validation failure
	// during the handshake (bad MAC, invalid DH output).
	KindHandshakeCrypto
	// KindHandshakePeerMismatch is a post-handshake remote static key
	// that does not match the caller's expected peer key.
	KindHandshakePeerMismatch
	// KindHandshakeTimeout is an elapsed handshake deadline.
	KindHandshakeTimeout
	// KindProtocol is malformed framing: oversized frame, undersized
	// ciphertext, empty pack, trailing garbage.
	KindProtocol
	// KindCrypto is an AEAD failure in transport mode. The cipher
	// state that produced it is poisoned.
	KindCrypto
	// KindNonceExhausted is a saturated 64-bit nonce counter.
	KindNonceExhausted
	// KindEncode is a typed-transport encode failure.
	KindEncode
	// KindDecode is a typed-transport decode failure.
	KindDecode
	// KindUnexpectedEof is a peer closing mid-frame or mid-record.
	KindUnexpectedEof
	// KindClosed is an operation attempted on an already-closed
	// socket or transport.
	KindClosed
	// KindConfig is a builder misconfiguration caught before any byte
	// touches the wire: a missing transport, a key or PSK of the wrong
	// length, or a role combination with no corresponding Noise
	// handshake pattern.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransportIo:
		return "transport_io"
	case KindHandshakeIo:
		return "handshake_io"
	case KindHandshakeCrypto:
		return "handshake_crypto"
	case KindHandshakePeerMismatch:
		return "handshake_peer_mismatch"
	case KindHandshakeTimeout:
		return "handshake_timeout"
	case KindProtocol:
		return "protocol"
	case KindCrypto:
		return "crypto"
	case KindNonceExhausted:
		return "nonce_exhausted"
	case KindEncode:
		return "encode"
	case KindDecode:
		return "decode"
	case KindUnexpectedEof:
		return "unexpected_eof"
	case KindClosed:
		return "closed"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this module. Wrap it
// with fmt.Errorf("...: %w", err) at call sites that add context; the
// Kind and the sentinel below remain matchable through errors.Is/As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind, so that
// errors.Is(err, wireerr.ErrClosed) works regardless of how deep the
// wrapping goes.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

// New builds an *Error of the given kind wrapping cause. cause may be
// nil.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// Sentinels for errors.Is matching. Each carries no wrapped cause;
// compare against these, not against the Kind directly, so future
// call sites don't need to know the Error struct shape.
var (
	ErrTransportIo           = &Error{Kind: KindTransportIo}
	ErrHandshakeIo           = &Error{Kind: KindHandshakeIo}
	ErrHandshakeCrypto       = &Error{Kind: KindHandshakeCrypto}
	ErrHandshakePeerMismatch = &Error{Kind: KindHandshakePeerMismatch}
	ErrHandshakeTimeout      = &Error{Kind: KindHandshakeTimeout}
	ErrProtocol              = &Error{Kind: KindProtocol}
	ErrCrypto                = &Error{Kind: KindCrypto}
	ErrNonceExhausted        = &Error{Kind: KindNonceExhausted}
	ErrEncode                = &Error{Kind: KindEncode}
	ErrDecode                = &Error{Kind: KindDecode}
	ErrUnexpectedEof         = &Error{Kind: KindUnexpectedEof}
	ErrClosed                = &Error{Kind: KindClosed}
	ErrConfig                = &Error{Kind: KindConfig}
)

// IsRemoteFault reports whether err reflects a fault attributable to
// the remote peer's behavior (bad crypto, malformed framing, dropped
// connection) as opposed to a local resource fault (nonce exhaustion,
// caller misuse after close). Upper layers use this to decide whether
// reconnecting to the same peer is worth attempting.
func IsRemoteFault(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindHandshakeCrypto, KindHandshakePeerMismatch, KindProtocol,
		KindCrypto, KindUnexpectedEof, KindHandshakeIo, KindTransportIo:
		return true
	default:
		return false
	}
}
