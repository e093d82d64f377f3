package handshake

// Role identifies one of the four static-key disclosure behaviors a
// Noise pattern can assign to a party: I (immediate transmission in
// the first message), N (no static key at all), X (transmitted during
// the handshake), K (known to the peer ahead of time, out of band).
type Role int

const (
	RoleI Role = iota
	RoleN
	RoleX
	RoleK
)

func (r Role) letter() byte {
	switch r {
	case RoleI:
		return 'I'
	case RoleN:
		return 'N'
	case RoleX:
		return 'X'
	case RoleK:
		return 'K'
	default:
		return '?'
	}
}

func (r Role) String() string { return string(r.letter()) }

// PeerRole describes the remote party's expected disclosure behavior.
// X and K carry ExpectedKey: for X the key becomes known only once
// the handshake authenticates it (ExpectedKey is the caller's
// assertion of what that key must turn out to be, empty if the caller
// accepts any remote identity); for K it must already be known before
// the handshake starts.
type PeerRole struct {
	Kind        Role
	ExpectedKey []byte
}

// PeerUnknown builds a PeerRole for an unauthenticated peer (N).
func PeerUnknown() PeerRole { return PeerRole{Kind: RoleN} }

// PeerImmediate builds a PeerRole for a peer that transmits its static
// key as the first handshake message (I) — only valid when this side
// is the responder.
func PeerImmediate() PeerRole { return PeerRole{Kind: RoleI} }

// PeerTransmitted builds a PeerRole for a peer whose static key is
// transmitted mid-handshake (X), optionally pinned to expectedKey.
func PeerTransmitted(expectedKey []byte) PeerRole {
	return PeerRole{Kind: RoleX, ExpectedKey: expectedKey}
}

// PeerKnown builds a PeerRole for a peer whose static key is already
// known out of band (K), pinned to expectedKey.
func PeerKnown(expectedKey []byte) PeerRole {
	return PeerRole{Kind: RoleK, ExpectedKey: expectedKey}
}
