package typed

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"net"
	"testing"

	"github.com/flynn/noise"
	"github.com/opd-ai/noisewire/socket"
	"github.com/opd-ai/noisewire/wireerr"
	"github.com/stretchr/testify/require"
)

// pairedSockets builds two *socket.Socket over a net.Pipe using a real
// in-process Noise_NN handshake, mirroring socket package's own test
// helper but kept local so this package's tests don't import socket's
// internal test file.
func pairedSockets(t *testing.T) (a, b *socket.Socket) {
	t.Helper()
	cs := noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

	hsA, err := noise.NewHandshakeState(noise.Config{CipherSuite: cs, Random: rand.Reader, Pattern: noise.HandshakeNN, Initiator: true})
	require.NoError(t, err)
	hsB, err := noise.NewHandshakeState(noise.Config{CipherSuite: cs, Random: rand.Reader, Pattern: noise.HandshakeNN, Initiator: false})
	require.NoError(t, err)

	msg1, _, _, err := hsA.WriteMessage(nil, nil)
	require.NoError(t, err)
	_, _, _, err = hsB.ReadMessage(nil, msg1)
	require.NoError(t, err)
	msg2, csB1, csB2, err := hsB.WriteMessage(nil, nil)
	require.NoError(t, err)
	_, csA1, csA2, err := hsA.ReadMessage(nil, msg2)
	require.NoError(t, err)

	connA, connB := net.Pipe()
	return socket.New(connA, csA1, csA2), socket.New(connB, csB2, csB1)
}

type getDateTimeRequest struct {
	Kind string `codec:"kind"`
}

type dateTimeResponse struct {
	Kind  string `codec:"kind"`
	Value string `codec:"value"`
}

// TestTypedRoundTrip is scenario S5: a request value sent by one peer
// arrives decoded exactly at the other, and a differently-typed
// response sent back decodes exactly at the first.
func TestTypedRoundTrip(t *testing.T) {
	sockA, sockB := pairedSockets(t)
	defer sockA.Close()
	defer sockB.Close()

	client := New[getDateTimeRequest, dateTimeResponse](sockA, NewMsgpackCodec())
	server := New[dateTimeResponse, getDateTimeRequest](sockB, NewMsgpackCodec())

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() {
		req, err := server.Next(ctx)
		if err != nil {
			errCh <- err
			return
		}
		if req.Kind != "get_date_time" {
			errCh <- errors.New("unexpected request kind")
			return
		}
		errCh <- server.Send(ctx, dateTimeResponse{Kind: "date_time", Value: "2024-01-01"})
	}()

	require.NoError(t, client.Send(ctx, getDateTimeRequest{Kind: "get_date_time"}))
	resp, err := client.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, dateTimeResponse{Kind: "date_time", Value: "2024-01-01"}, resp)
	require.NoError(t, <-errCh)
}

func TestTypedTransportClosesOnDecodeFailure(t *testing.T) {
	sockA, sockB := pairedSockets(t)
	defer sockA.Close()
	defer sockB.Close()

	// Write a record whose body is not valid msgpack for the expected
	// type, directly through the byte socket, bypassing typed framing.
	badBody := []byte{0xc1} // msgpack reserved/invalid leading byte
	header := []byte{0, 0, 0, byte(len(badBody))}
	// net.Pipe is unbuffered, so the write only completes once the
	// server side reads it.
	writeErr := make(chan error, 1)
	go func() {
		_, err := sockA.Write(context.Background(), append(header, badBody...))
		writeErr <- err
	}()

	server := New[dateTimeResponse, getDateTimeRequest](sockB, NewMsgpackCodec())
	_, err := server.Next(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, wireerr.ErrDecode))
	require.NoError(t, <-writeErr)

	// The transport is now Closed; further operations return the
	// sticky error rather than attempting another read.
	_, err = server.Next(context.Background())
	require.Error(t, err)
}

// TestGetMutBulkCopy exercises the byte-level escape hatch: a caller
// holding the exclusive borrow can write and read bulk bytes directly
// on the underlying socket, bypassing typed record framing entirely.
func TestGetMutBulkCopy(t *testing.T) {
	sockA, sockB := pairedSockets(t)
	defer sockA.Close()
	defer sockB.Close()

	client := New[getDateTimeRequest, dateTimeResponse](sockA, NewMsgpackCodec())
	server := New[dateTimeResponse, getDateTimeRequest](sockB, NewMsgpackCodec())

	payload := make([]byte, 256*1024)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	ctx := context.Background()
	doneCh := make(chan []byte, 1)
	go func() {
		raw, release, err := server.GetMut()
		require.NoError(t, err)
		defer release()
		got := make([]byte, 0, len(payload))
		buf := make([]byte, 8192)
		for len(got) < len(payload) {
			n, err := raw.Read(ctx, buf)
			require.NoError(t, err)
			got = append(got, buf[:n]...)
		}
		doneCh <- got
	}()

	raw, release, err := client.GetMut()
	require.NoError(t, err)
	_, err = raw.Write(ctx, payload)
	require.NoError(t, err)
	release()

	got := <-doneCh
	require.Equal(t, sha256.Sum256(payload), sha256.Sum256(got))
}
