package wire

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []Message{
		Heartbeat{TimestampMs: 1234, Nickname: "alice"},
		Heartbeat{TimestampMs: 0, Nickname: ""},
		GlobalChatMessage{Content: "hello", TimestampMs: 99, Nickname: "bob"},
		ChatMessage{Text: "hi there"},
		Offer{Filename: "report.pdf", SizeBytes: 200000},
		DeclineOffer{Filename: "x.dat"},
		AcceptOffer{Filename: "x.dat"},
		RequestChunk{Filename: "x.dat", ChunkIndex: 7},
		Ack{},
		FileChunk{Filename: "x.dat", ChunkIndex: 2, Data: []byte("abcxyz"), IsLast: true},
		FileChunk{Filename: "empty.dat", ChunkIndex: 0, Data: nil, IsLast: true},
		TransferError{Filename: "x.dat", Error: "no active transfer"},
	}

	for _, want := range cases {
		payload, err := want.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary(%T): %v", want, err)
		}

		got, err := Decode(want.Tag(), payload)
		if err != nil {
			t.Fatalf("Decode(%T): %v", want, err)
		}

		gotPayload, err := got.MarshalBinary()
		if err != nil {
			t.Fatalf("re-marshal(%T): %v", want, err)
		}
		if !bytes.Equal(payload, gotPayload) {
			t.Fatalf("round trip mismatch for %T: %v != %v", want, payload, gotPayload)
		}
	}
}

func TestEncodeDecodeFrame(t *testing.T) {
	msg := Offer{Filename: "a.bin", SizeBytes: 42}

	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var buf bytes.Buffer
	buf.Write(frame)

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	offer, ok := got.(*Offer)
	if !ok {
		t.Fatalf("got %T, want *Offer", got)
	}
	if offer.Filename != msg.Filename || offer.SizeBytes != msg.SizeBytes {
		t.Fatalf("decoded offer mismatch: %+v", offer)
	}
}

func TestFrameTooLarge(t *testing.T) {
	msg := FileChunk{Filename: "big", Data: make([]byte, MaxFrameLength)}
	if _, err := Encode(msg); err != ErrFrameTooLarge {
		t.Fatalf("Encode large frame: got %v, want ErrFrameTooLarge", err)
	}
}

func TestUnknownTag(t *testing.T) {
	if _, err := Decode(Tag(99), nil); err != ErrUnknownTag {
		t.Fatalf("Decode unknown tag: got %v, want ErrUnknownTag", err)
	}
}

func TestWriteReadMessage(t *testing.T) {
	var buf bytes.Buffer
	msgs := []Message{
		Heartbeat{TimestampMs: 1, Nickname: "a"},
		ChatMessage{Text: "hi"},
		FileChunk{Filename: "f", ChunkIndex: 1, Data: []byte{1, 2, 3}, IsLast: false},
	}

	for _, m := range msgs {
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}

	for _, want := range msgs {
		got, err := ReadMessage(&buf)
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if got.Tag() != want.Tag() {
			t.Fatalf("tag mismatch: got %v want %v", got.Tag(), want.Tag())
		}
	}
}
