package handshake

import "io"

// Transport is the reliable, ordered, bidirectional byte channel this
// module upgrades into an encrypted session. A *net.TCPConn (or any
// net.Conn) satisfies it; the transport itself — reliable delivery,
// ordering, connection setup — is an external collaborator per
// spec.md §1.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}
