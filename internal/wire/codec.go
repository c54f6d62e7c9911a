package wire

import "encoding/binary"

// builder appends fixed- and variable-length fields into a flat byte
// slice, mirroring the manual offset bookkeeping the teacher's
// handshake.MarshalBinary uses.
type builder struct {
	buf []byte
}

func newBuilder() *builder {
	return &builder{buf: make([]byte, 0, 64)}
}

func (b *builder) bytes() []byte { return b.buf }

func (b *builder) putUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *builder) putInt64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *builder) putBool(v bool) {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
}

// putBytes writes a 4-byte big-endian length prefix followed by the
// raw bytes, used for both Data and string fields.
func (b *builder) putBytes(v []byte) {
	b.putUint32(uint32(len(v)))
	b.buf = append(b.buf, v...)
}

func (b *builder) putString(v string) {
	b.putBytes([]byte(v))
}

// parser reads fields back out of a payload in the same order they
// were written, returning ErrTruncatedPayload on short reads.
type parser struct {
	buf []byte
	off int
}

func (p *parser) uint32() (uint32, error) {
	if len(p.buf)-p.off < 4 {
		return 0, ErrTruncatedPayload
	}
	v := binary.BigEndian.Uint32(p.buf[p.off:])
	p.off += 4
	return v, nil
}

func (p *parser) int64() (int64, error) {
	if len(p.buf)-p.off < 8 {
		return 0, ErrTruncatedPayload
	}
	v := binary.BigEndian.Uint64(p.buf[p.off:])
	p.off += 8
	return int64(v), nil
}

func (p *parser) bool() (bool, error) {
	if len(p.buf)-p.off < 1 {
		return false, ErrTruncatedPayload
	}
	v := p.buf[p.off] != 0
	p.off++
	return v, nil
}

func (p *parser) bytes() ([]byte, error) {
	n, err := p.uint32()
	if err != nil {
		return nil, err
	}
	if len(p.buf)-p.off < int(n) {
		return nil, ErrTruncatedPayload
	}
	v := make([]byte, n)
	copy(v, p.buf[p.off:p.off+int(n)])
	p.off += int(n)
	return v, nil
}

func (p *parser) string() (string, error) {
	b, err := p.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
