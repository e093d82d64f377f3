package socket

import (
	"fmt"
	"io"
	"math"

	"github.com/flynn/noise"
	"github.com/opd-ai/noisewire/framing"
	"github.com/opd-ai/noisewire/wireerr"
)

// writeChunks partitions p into PLAINTEXT_MAX-sized chunks, encrypts
// each with send (advancing *seq), inner-frames each, and flushes the
// concatenation as one outer pack to w. Shared by Socket.Write and
// SendHalf.Write so a split socket behaves identically to a whole one.
func writeChunks(w io.Writer, send *noise.CipherState, seq *uint64, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	var staging []byte
	for off := 0; off < len(p); off += PlaintextMax {
		end := off + PlaintextMax
		if end > len(p) {
			end = len(p)
		}
		chunk := p[off:end]

		if *seq == math.MaxUint64 {
			return 0, wireerr.New(wireerr.KindNonceExhausted, fmt.Errorf("send cipher nonce exhausted"))
		}
		ciphertext := send.Encrypt(make([]byte, 0, len(chunk)+aeadTagLen), nil, chunk)
		*seq++

		before := len(staging)
		staging = append(staging, make([]byte, framing.InnerHeaderLen)...)
		staging = append(staging, ciphertext...)
		putUint16(staging[before:before+framing.InnerHeaderLen], uint16(len(ciphertext)))
	}

	if err := framing.WriteOuterFrame(w, staging); err != nil {
		return 0, err
	}
	return len(p), nil
}

// readPack reads and decrypts exactly one outer pack from r, returning
// the concatenated plaintext and the recv cipher's advanced sequence
// count. Shared by Socket.Read and RecvHalf.Read.
func readPack(r io.Reader, recv *noise.CipherState, seq uint64, maxPackBytes uint32) ([]byte, uint64, error) {
	body, err := framing.ReadOuterFrame(r, maxPackBytes)
	if err != nil {
		return nil, seq, err
	}
	frames, err := framing.SplitInnerFrames(body)
	if err != nil {
		return nil, seq, err
	}

	plain := make([]byte, 0, len(body))
	for _, ct := range frames {
		if len(ct) < aeadTagLen {
			return nil, seq, wireerr.New(wireerr.KindProtocol, fmt.Errorf("ciphertext of %d bytes shorter than AEAD tag", len(ct)))
		}
		if seq == math.MaxUint64 {
			return nil, seq, wireerr.New(wireerr.KindNonceExhausted, fmt.Errorf("recv cipher nonce exhausted"))
		}
		pt, err := recv.Decrypt(plain, nil, ct)
		if err != nil {
			return nil, seq, wireerr.New(wireerr.KindCrypto, fmt.Errorf("decrypt transport message: %w", err))
		}
		plain = pt
		seq++
	}
	return plain, seq, nil
}
