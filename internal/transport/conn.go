package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/wire"
)

// channel discriminates the two vocabularies sharing one encrypted
// connection, generalizing the teacher's single-purpose peer
// connection to the two logical streams SwapBytes needs without
// pulling in a stream-multiplexing library (see SPEC_FULL.md §2).
type channel byte

const (
	channelGossip channel = iota + 1
	channelPrivateRequest
	channelPrivateResponse
)

// maxRecordLength bounds one encrypted record: wire.MaxFrameLength of
// plaintext plus the channel byte plus the AEAD tag.
const maxRecordLength = wire.MaxFrameLength + 1 + 16

// peerConn is one established, authenticated connection to a remote
// peer. Its read loop is the only goroutine that reads from conn;
// writes are serialized by writeMu since gossip broadcasts, request
// sends, and response sends can all originate concurrently.
type peerConn struct {
	id   identity.ID
	conn net.Conn
	sess session

	writeMu sync.Mutex

	// requestMu serializes SendRequest calls on this connection: the
	// request/response protocol has no correlation id, so only one
	// request may be outstanding at a time per peer (§4.4 is satisfied
	// because different peers use different connections and therefore
	// proceed independently).
	requestMu sync.Mutex
	pending   chan wire.Message
}

func newPeerConn(conn net.Conn, sess session) *peerConn {
	return &peerConn{
		id:      sess.peer,
		conn:    conn,
		sess:    sess,
		pending: make(chan wire.Message, 1),
	}
}

func (pc *peerConn) writeFrame(ch channel, msg wire.Message) error {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("transport: marshal %T: %w", msg, err)
	}

	plaintext := make([]byte, 2+len(payload))
	plaintext[0] = byte(ch)
	plaintext[1] = byte(msg.Tag())
	copy(plaintext[2:], payload)

	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()

	ciphertext, err := pc.sess.send.Encrypt(nil, nil, plaintext)
	if err != nil {
		return fmt.Errorf("transport: encrypt: %w", err)
	}
	if len(ciphertext) > maxRecordLength {
		return wire.ErrFrameTooLarge
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ciphertext)))
	if _, err := pc.conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	if _, err := pc.conn.Write(ciphertext); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// readFrame reads and decrypts the next record from the connection,
// returning its channel discriminator and decoded message.
func (pc *peerConn) readFrame() (channel, wire.Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(pc.conn, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxRecordLength {
		return 0, nil, wire.ErrFrameTooLarge
	}

	ciphertext := make([]byte, n)
	if _, err := io.ReadFull(pc.conn, ciphertext); err != nil {
		return 0, nil, err
	}

	plaintext, err := pc.sess.recv.Decrypt(nil, nil, ciphertext)
	if err != nil {
		return 0, nil, fmt.Errorf("transport: decrypt: %w", err)
	}
	if len(plaintext) < 2 {
		return 0, nil, wire.ErrShortFrame
	}

	ch := channel(plaintext[0])
	msg, err := wire.Decode(wire.Tag(plaintext[1]), plaintext[2:])
	if err != nil {
		return 0, nil, err
	}
	return ch, msg, nil
}

// sendRequest writes req on the private-request channel and blocks for
// the matching response, serialized per connection.
func (pc *peerConn) sendRequest(req wire.Message) (wire.Message, error) {
	pc.requestMu.Lock()
	defer pc.requestMu.Unlock()

	if err := pc.writeFrame(channelPrivateRequest, req); err != nil {
		return nil, err
	}

	resp, ok := <-pc.pending
	if !ok {
		return nil, fmt.Errorf("transport: connection to %s closed awaiting response", pc.id)
	}
	return resp, nil
}

func (pc *peerConn) close() error { return pc.conn.Close() }
