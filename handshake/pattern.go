package handshake

import (
	"fmt"

	"github.com/flynn/noise"
	"github.com/opd-ai/noisewire/wireerr"
)

// resolvePattern selects the Noise handshake pattern for a session.
//
// The pattern name's two letters always describe (initiator's
// disclosure, responder's disclosure), in that fixed order, regardless
// of which side of the connection is doing the resolving. When this
// side is building as initiator, its own Role occupies the first
// letter and the configured PeerRole occupies the second; when
// building as responder, it is the other way around — the configured
// PeerRole (describing the remote initiator) comes first and this
// side's own Role comes second. This is what lets two peers configured
// with "my role / their role" from their own point of view agree on
// the same underlying pattern, e.g. S2 in the test suite: the
// initiator configures (local=I, peer=K) and the responder configures
// (local=K, peer=I) and both resolve to Noise_IK.
func resolvePattern(local Role, peer Role, asInitiator, usePSK bool) (noise.HandshakePattern, string, error) {
	first, second := local, peer
	if !asInitiator {
		first, second = peer, local
	}

	if second == RoleI {
		return noise.HandshakePattern{}, "", wireerr.New(wireerr.KindConfig,
			fmt.Errorf("no Noise pattern has %q as the responder's disclosure; combination (local=%s, peer=%s) is unsupported", "I", local, peer))
	}

	key := [2]Role{first, second}
	table := patternTable
	if usePSK {
		table = pskPatternTable
	}
	p, ok := table[key]
	if !ok {
		if usePSK {
			return noise.HandshakePattern{}, "", wireerr.New(wireerr.KindConfig,
				fmt.Errorf("pre-shared key configured for unsupported role combination (local=%s, peer=%s)", local, peer))
		}
		return noise.HandshakePattern{}, "", wireerr.New(wireerr.KindConfig,
			fmt.Errorf("unsupported handshake role combination (local=%s, peer=%s)", local, peer))
	}
	name := string(first.letter()) + string(second.letter())
	return p, name, nil
}

// pskPatternTable holds the PSK-modified pattern variants this module
// supports. flynn/noise requires a pattern that already contains a PSK
// message token (not every pattern has a well-known psk-variant
// constant); NNpsk0 and NKpsk0 are the two canonical psk0 patterns
// used throughout the Noise specification's own test vectors, so this
// module wires a preshared key through those two only. Configuring psk
// with any other role combination is a build-time KindConfig error
// rather than a guess at an untested pattern variant.
var pskPatternTable = map[[2]Role]noise.HandshakePattern{
	{RoleN, RoleN}: noise.HandshakeNNpsk0,
	{RoleN, RoleK}: noise.HandshakeNKpsk0,
}

var patternTable = map[[2]Role]noise.HandshakePattern{
	{RoleN, RoleN}: noise.HandshakeNN,
	{RoleN, RoleK}: noise.HandshakeNK,
	{RoleN, RoleX}: noise.HandshakeNX,
	{RoleK, RoleN}: noise.HandshakeKN,
	{RoleK, RoleK}: noise.HandshakeKK,
	{RoleK, RoleX}: noise.HandshakeKX,
	{RoleX, RoleN}: noise.HandshakeXN,
	{RoleX, RoleK}: noise.HandshakeXK,
	{RoleX, RoleX}: noise.HandshakeXX,
	{RoleI, RoleN}: noise.HandshakeIN,
	{RoleI, RoleK}: noise.HandshakeIK,
	{RoleI, RoleX}: noise.HandshakeIX,
}
