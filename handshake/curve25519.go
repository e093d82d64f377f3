package handshake

import "golang.org/x/crypto/curve25519"

// curve25519ScalarBaseMult derives a Curve25519 public key from a
// private scalar, the same primitive the teacher's crypto package
// uses via golang.org/x/crypto/curve25519.
func curve25519ScalarBaseMult(private [32]byte) ([32]byte, error) {
	var public [32]byte
	pub, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return public, err
	}
	copy(public[:], pub)
	return public, nil
}
