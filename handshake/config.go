package handshake

import (
	"fmt"
	"time"

	"github.com/opd-ai/noisewire/wireerr"
)

// Builder accumulates the configuration for one handshake attempt.
// Construct one with NewBuilder, fill in the required fields, then
// call BuildAsInitiator or BuildAsResponder; on success either hands
// back a *socket.Socket. Neither call resets or invalidates the
// Builder: calling one again starts another handshake over the same
// transport.
type Builder struct {
	localKeys StaticKeypair
	localRole Role
	peerRole  PeerRole

	transport Transport

	handshakeTimeout time.Duration
	prologue         []byte
	psk              []byte

	keysSet bool
}

// NewBuilder starts a Builder with the two required fields: the local
// static keypair and the underlying transport. Role and peer
// information are filled in with WithLocalRole/WithPeerRole before
// building.
func NewBuilder(localKeys StaticKeypair, transport Transport) *Builder {
	return &Builder{localKeys: localKeys, transport: transport, keysSet: true}
}

// WithLocalRole sets this side's own disclosure Role.
func (b *Builder) WithLocalRole(role Role) *Builder {
	b.localRole = role
	return b
}

// WithPeerRole sets the expected remote disclosure Role (and, for X/K,
// the expected static key).
func (b *Builder) WithPeerRole(peer PeerRole) *Builder {
	b.peerRole = peer
	return b
}

// WithHandshakeTimeout sets an optional deadline for the handshake
// only; transport-mode operations are never subject to a timeout
// imposed by this module (spec.md §5).
func (b *Builder) WithHandshakeTimeout(d time.Duration) *Builder {
	b.handshakeTimeout = d
	return b
}

// WithPrologue sets data both sides must already agree on out of band;
// it is mixed into the handshake transcript hash.
func (b *Builder) WithPrologue(p []byte) *Builder {
	b.prologue = p
	return b
}

// WithPSK sets a pre-shared symmetric key, switching to the
// corresponding *psk0 pattern variant flynn/noise exposes.
func (b *Builder) WithPSK(psk []byte) *Builder {
	b.psk = psk
	return b
}

// validate rejects configuration that cannot possibly produce a valid
// handshake, before any byte touches the wire.
func (b *Builder) validate() error {
	if !b.keysSet {
		return wireerr.New(wireerr.KindConfig, fmt.Errorf("builder missing local keys: use NewBuilder"))
	}
	if b.transport == nil {
		return wireerr.New(wireerr.KindConfig, fmt.Errorf("builder missing transport"))
	}
	if b.peerRole.Kind == RoleK && len(b.peerRole.ExpectedKey) != 32 {
		return wireerr.New(wireerr.KindConfig, fmt.Errorf("peer role %s requires a 32-byte expected key", b.peerRole.Kind))
	}
	if b.peerRole.Kind == RoleX && len(b.peerRole.ExpectedKey) != 0 && len(b.peerRole.ExpectedKey) != 32 {
		return wireerr.New(wireerr.KindConfig, fmt.Errorf("peer role %s expected key must be empty (unpinned) or 32 bytes, got %d", b.peerRole.Kind, len(b.peerRole.ExpectedKey)))
	}
	if b.psk != nil && len(b.psk) != 32 {
		return wireerr.New(wireerr.KindConfig, fmt.Errorf("psk must be 32 bytes, got %d", len(b.psk)))
	}
	return nil
}
