package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flynn/noise"
	"github.com/swapbytes/swapbytes/internal/identity"
)

// handshakeMaxFrame bounds a single Noise handshake message; these
// carry only ephemeral/static keys and are always a few hundred bytes.
const handshakeMaxFrame = 4096

func cipherSuite() noise.CipherSuite {
	return noise.NewCipherSuite(noise.DH25519, noise.CipherAESGCM, noise.HashSHA256)
}

// session is the result of a completed Noise XX handshake: one
// CipherState per direction, plus the peer's verified static public
// key, used directly as its identity.ID.
type session struct {
	send *noise.CipherState
	recv *noise.CipherState
	peer identity.ID
}

// handshakeOutbound performs the initiator side of a Noise XX
// handshake over conn, authenticating with local.
func handshakeOutbound(conn io.ReadWriter, local identity.Keypair) (session, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite(),
		Pattern:       noise.HandshakeXX,
		Initiator:     true,
		StaticKeypair: local.NoiseKeypair(),
	})
	if err != nil {
		return session{}, fmt.Errorf("transport: handshake state: %w", err)
	}

	// -> e
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return session{}, fmt.Errorf("transport: handshake msg1: %w", err)
	}
	if err := writeHandshakeFrame(conn, msg1); err != nil {
		return session{}, err
	}

	// <- e, ee, s, es
	in2, err := readHandshakeFrame(conn)
	if err != nil {
		return session{}, err
	}
	if _, _, _, err := hs.ReadMessage(nil, in2); err != nil {
		return session{}, fmt.Errorf("transport: handshake msg2: %w", err)
	}

	// -> s, se
	msg3, cs1, cs2, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return session{}, fmt.Errorf("transport: handshake msg3: %w", err)
	}
	if err := writeHandshakeFrame(conn, msg3); err != nil {
		return session{}, err
	}

	remote := hs.PeerStatic()
	var peer identity.ID
	copy(peer[:], remote)

	return session{send: cs1, recv: cs2, peer: peer}, nil
}

// handshakeInbound performs the responder side of a Noise XX
// handshake over conn.
func handshakeInbound(conn io.ReadWriter, local identity.Keypair) (session, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite(),
		Pattern:       noise.HandshakeXX,
		Initiator:     false,
		StaticKeypair: local.NoiseKeypair(),
	})
	if err != nil {
		return session{}, fmt.Errorf("transport: handshake state: %w", err)
	}

	// <- e
	in1, err := readHandshakeFrame(conn)
	if err != nil {
		return session{}, err
	}
	if _, _, _, err := hs.ReadMessage(nil, in1); err != nil {
		return session{}, fmt.Errorf("transport: handshake msg1: %w", err)
	}

	// -> e, ee, s, es
	msg2, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return session{}, fmt.Errorf("transport: handshake msg2: %w", err)
	}
	if err := writeHandshakeFrame(conn, msg2); err != nil {
		return session{}, err
	}

	// <- s, se
	in3, err := readHandshakeFrame(conn)
	if err != nil {
		return session{}, err
	}
	_, cs1, cs2, err := hs.ReadMessage(nil, in3)
	if err != nil {
		return session{}, fmt.Errorf("transport: handshake msg3: %w", err)
	}

	remote := hs.PeerStatic()
	var peer identity.ID
	copy(peer[:], remote)

	// Responder sends with cs2 and receives with cs1; see the
	// CipherState docs on flynn/noise's HandshakeState.WriteMessage.
	return session{send: cs2, recv: cs1, peer: peer}, nil
}

func writeHandshakeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("transport: write handshake frame: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("transport: write handshake frame: %w", err)
	}
	return nil
}

func readHandshakeFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("transport: read handshake frame: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > handshakeMaxFrame {
		return nil, fmt.Errorf("transport: handshake frame too large: %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("transport: read handshake frame: %w", err)
	}
	return buf, nil
}
