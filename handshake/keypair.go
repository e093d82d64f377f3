package handshake

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/flynn/noise"
)

// cipherSuite is fixed at build time for the whole module, per spec.md
// §6: the suite is not negotiated. Curve25519 + ChaCha20-Poly1305 +
// SHA256 mirrors the teacher's own noise.NewCipherSuite call in
// noise/handshake.go.
var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// StaticKeypair is a long-term Curve25519 keypair used to authenticate
// one side of a handshake. It corresponds to spec.md's LocalIdentity.
type StaticKeypair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateStaticKeypair creates a new random static keypair.
func GenerateStaticKeypair() (StaticKeypair, error) {
	return GenerateStaticKeypairFrom(rand.Reader)
}

// GenerateStaticKeypairFrom creates a new static keypair reading
// entropy from rng, for deterministic tests.
func GenerateStaticKeypairFrom(rng io.Reader) (StaticKeypair, error) {
	dh, err := cipherSuite.GenerateKeypair(rng)
	if err != nil {
		return StaticKeypair{}, fmt.Errorf("generate static keypair: %w", err)
	}
	var kp StaticKeypair
	copy(kp.Private[:], dh.Private)
	copy(kp.Public[:], dh.Public)
	return kp, nil
}

// StaticKeypairFromPrivate derives a keypair's public half from an
// existing 32-byte Curve25519 private scalar, for callers that persist
// keys themselves (key loading/storage is an external collaborator per
// spec.md §1).
func StaticKeypairFromPrivate(private [32]byte) (StaticKeypair, error) {
	pub, err := curve25519ScalarBaseMult(private)
	if err != nil {
		return StaticKeypair{}, fmt.Errorf("derive static public key: %w", err)
	}
	return StaticKeypair{Private: private, Public: pub}, nil
}

func (k StaticKeypair) dhKey() noise.DHKey {
	return noise.DHKey{Private: append([]byte(nil), k.Private[:]...), Public: append([]byte(nil), k.Public[:]...)}
}
