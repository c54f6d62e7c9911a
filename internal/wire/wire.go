// Package wire defines the closed set of gossip and private
// request/response message variants exchanged between swapbytes peers,
// and their length-prefixed tagged-variant binary encoding.
//
// Wire format (in bytes), mirroring the teacher's BitTorrent handshake
// framing generalized to a tagged union:
//
//	<length:4 big-endian><tag:1><payload>
//
// length counts tag+payload. MaxFrameLength bounds both reads and
// writes so a malformed peer cannot force unbounded buffering.
package wire

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLength bounds a single frame: one CHUNK_SIZE payload plus
// metadata and encoding overhead, small enough to bound memory.
const MaxFrameLength = 2 * 1024 * 1024

const lengthPrefixSize = 4

var (
	ErrFrameTooLarge    = errors.New("wire: frame exceeds maximum length")
	ErrUnknownTag       = errors.New("wire: unknown message tag")
	ErrShortFrame       = errors.New("wire: frame shorter than its tag")
	ErrTruncatedPayload = errors.New("wire: truncated field in payload")
)

// Tag identifies a message variant on the wire.
type Tag byte

const (
	TagHeartbeat Tag = iota + 1
	TagGlobalChatMessage

	TagChatMessage
	TagOffer
	TagDeclineOffer
	TagAcceptOffer
	TagRequestChunk

	TagAck
	TagFileChunk
	TagTransferError
)

// Message is implemented by every gossip and private request/response
// variant. encoding.BinaryMarshaler mirrors the interface the teacher's
// protocol package implements for its own wire types; decoding goes
// through Decode rather than encoding.BinaryUnmarshaler.
type Message interface {
	encoding.BinaryMarshaler
	Tag() Tag
}

// --- Gossip vocabulary -----------------------------------------------

// Heartbeat is the periodic presence announcement published to the
// gossip topic.
type Heartbeat struct {
	TimestampMs int64
	Nickname    string
}

func (m Heartbeat) Tag() Tag { return TagHeartbeat }

func (m Heartbeat) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putInt64(m.TimestampMs)
	b.putString(m.Nickname)
	return b.bytes(), nil
}

func (m *Heartbeat) unmarshal(p *parser) error {
	var err error
	if m.TimestampMs, err = p.int64(); err != nil {
		return err
	}
	if m.Nickname, err = p.string(); err != nil {
		return err
	}
	return nil
}

// GlobalChatMessage is a public chat line published to the gossip topic.
type GlobalChatMessage struct {
	Content     string
	TimestampMs int64
	Nickname    string
}

func (m GlobalChatMessage) Tag() Tag { return TagGlobalChatMessage }

func (m GlobalChatMessage) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Content)
	b.putInt64(m.TimestampMs)
	b.putString(m.Nickname)
	return b.bytes(), nil
}

func (m *GlobalChatMessage) unmarshal(p *parser) error {
	var err error
	if m.Content, err = p.string(); err != nil {
		return err
	}
	if m.TimestampMs, err = p.int64(); err != nil {
		return err
	}
	if m.Nickname, err = p.string(); err != nil {
		return err
	}
	return nil
}

// --- Private request vocabulary ----------------------------------------

// ChatMessage is a directed private chat line.
type ChatMessage struct {
	Text string
}

func (m ChatMessage) Tag() Tag { return TagChatMessage }

func (m ChatMessage) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Text)
	return b.bytes(), nil
}

func (m *ChatMessage) unmarshal(p *parser) error {
	var err error
	m.Text, err = p.string()
	return err
}

// Offer proposes sending a file to the recipient.
type Offer struct {
	Filename  string
	SizeBytes int64
}

func (m Offer) Tag() Tag { return TagOffer }

func (m Offer) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Filename)
	b.putInt64(m.SizeBytes)
	return b.bytes(), nil
}

func (m *Offer) unmarshal(p *parser) error {
	var err error
	if m.Filename, err = p.string(); err != nil {
		return err
	}
	m.SizeBytes, err = p.int64()
	return err
}

// DeclineOffer rejects a previously-received Offer.
type DeclineOffer struct {
	Filename string
}

func (m DeclineOffer) Tag() Tag { return TagDeclineOffer }

func (m DeclineOffer) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Filename)
	return b.bytes(), nil
}

func (m *DeclineOffer) unmarshal(p *parser) error {
	var err error
	m.Filename, err = p.string()
	return err
}

// AcceptOffer accepts a previously-received Offer.
type AcceptOffer struct {
	Filename string
}

func (m AcceptOffer) Tag() Tag { return TagAcceptOffer }

func (m AcceptOffer) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Filename)
	return b.bytes(), nil
}

func (m *AcceptOffer) unmarshal(p *parser) error {
	var err error
	m.Filename, err = p.string()
	return err
}

// RequestChunk asks the sender for a single chunk of a file already
// accepted.
type RequestChunk struct {
	Filename   string
	ChunkIndex uint32
}

func (m RequestChunk) Tag() Tag { return TagRequestChunk }

func (m RequestChunk) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Filename)
	b.putUint32(m.ChunkIndex)
	return b.bytes(), nil
}

func (m *RequestChunk) unmarshal(p *parser) error {
	var err error
	if m.Filename, err = p.string(); err != nil {
		return err
	}
	m.ChunkIndex, err = p.uint32()
	return err
}

// --- Private response vocabulary ---------------------------------------

// Ack is the response to ChatMessage, Offer, DeclineOffer, and
// AcceptOffer requests.
type Ack struct{}

func (m Ack) Tag() Tag                     { return TagAck }
func (m Ack) MarshalBinary() ([]byte, error) { return newBuilder().bytes(), nil }
func (m *Ack) unmarshal(p *parser) error     { return nil }

// FileChunk is the response to a RequestChunk.
type FileChunk struct {
	Filename   string
	ChunkIndex uint32
	Data       []byte
	IsLast     bool
}

func (m FileChunk) Tag() Tag { return TagFileChunk }

func (m FileChunk) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Filename)
	b.putUint32(m.ChunkIndex)
	b.putBytes(m.Data)
	b.putBool(m.IsLast)
	return b.bytes(), nil
}

func (m *FileChunk) unmarshal(p *parser) error {
	var err error
	if m.Filename, err = p.string(); err != nil {
		return err
	}
	if m.ChunkIndex, err = p.uint32(); err != nil {
		return err
	}
	if m.Data, err = p.bytes(); err != nil {
		return err
	}
	m.IsLast, err = p.bool()
	return err
}

// TransferError is a negative response to RequestChunk, or an
// out-of-band signal that an in-flight transfer failed.
type TransferError struct {
	Filename string
	Error    string
}

func (m TransferError) Tag() Tag { return TagTransferError }

func (m TransferError) MarshalBinary() ([]byte, error) {
	b := newBuilder()
	b.putString(m.Filename)
	b.putString(m.Error)
	return b.bytes(), nil
}

func (m *TransferError) unmarshal(p *parser) error {
	var err error
	if m.Filename, err = p.string(); err != nil {
		return err
	}
	m.Error, err = p.string()
	return err
}

// Encode serializes msg into a length-prefixed tagged frame ready to
// write to a transport stream.
func Encode(msg Message) ([]byte, error) {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", msg, err)
	}

	n := 1 + len(payload)
	if lengthPrefixSize+n > MaxFrameLength {
		return nil, ErrFrameTooLarge
	}

	frame := make([]byte, lengthPrefixSize+n)
	binary.BigEndian.PutUint32(frame, uint32(n))
	frame[lengthPrefixSize] = byte(msg.Tag())
	copy(frame[lengthPrefixSize+1:], payload)
	return frame, nil
}

// WriteMessage writes msg's encoded frame to w.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadMessage reads one length-prefixed frame from r and decodes it
// into the concrete Message variant named by its tag.
func ReadMessage(r io.Reader) (Message, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if int(n) > MaxFrameLength {
		return nil, ErrFrameTooLarge
	}
	if n < 1 {
		return nil, ErrShortFrame
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	return Decode(Tag(body[0]), body[1:])
}

// Decode builds the concrete Message variant for tag from its raw
// payload bytes (the frame minus the length prefix and tag byte).
func Decode(tag Tag, payload []byte) (Message, error) {
	p := &parser{buf: payload}

	var msg interface {
		unmarshal(*parser) error
	}

	switch tag {
	case TagHeartbeat:
		msg = &Heartbeat{}
	case TagGlobalChatMessage:
		msg = &GlobalChatMessage{}
	case TagChatMessage:
		msg = &ChatMessage{}
	case TagOffer:
		msg = &Offer{}
	case TagDeclineOffer:
		msg = &DeclineOffer{}
	case TagAcceptOffer:
		msg = &AcceptOffer{}
	case TagRequestChunk:
		msg = &RequestChunk{}
	case TagAck:
		msg = &Ack{}
	case TagFileChunk:
		msg = &FileChunk{}
	case TagTransferError:
		msg = &TransferError{}
	default:
		return nil, ErrUnknownTag
	}

	if err := msg.unmarshal(p); err != nil {
		return nil, err
	}

	return msg.(Message), nil
}
