package affiliates

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf8"

	"solpay/crypto"
)

// Borsh-compatible little-endian primitives shared by records and commands.

var (
	errShortBuffer = errors.New("short buffer")
	errBadBool     = errors.New("invalid bool byte")
	errBadUTF8     = errors.New("string is not valid utf-8")
)

type encoder struct {
	buf []byte
}

func newEncoder(capacity int) *encoder {
	return &encoder{buf: make([]byte, 0, capacity)}
}

func (e *encoder) u8(v uint8) { e.buf = append(e.buf, v) }

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *encoder) i64(v int64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }

func (e *encoder) f64(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}

func (e *encoder) key(k crypto.PublicKey) { e.buf = append(e.buf, k[:]...) }

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// padded returns the encoding zero-extended to size bytes.
func (e *encoder) padded(size int) ([]byte, error) {
	if len(e.buf) > size {
		return nil, ErrInvalidDataLength
	}
	out := make([]byte, size)
	copy(out, e.buf)
	return out, nil
}

// decoder reads sequentially and latches the first error so call sites can
// decode a whole struct before checking.
type decoder struct {
	buf []byte
	off int
	err error
}

func newDecoder(buf []byte) *decoder {
	return &decoder{buf: buf}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = errShortBuffer
		return nil
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) boolean() bool {
	switch v := d.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		if d.err == nil {
			d.err = errBadBool
		}
		return false
	}
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) i64() int64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (d *decoder) f64() float64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (d *decoder) key() crypto.PublicKey {
	var k crypto.PublicKey
	b := d.take(crypto.PublicKeyLength)
	if b != nil {
		copy(k[:], b)
	}
	return k
}

func (d *decoder) str() string {
	n := d.u32()
	if d.err != nil {
		return ""
	}
	if uint64(n) > uint64(len(d.buf)-d.off) {
		d.err = errShortBuffer
		return ""
	}
	b := d.take(int(n))
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		d.err = errBadUTF8
		return ""
	}
	return string(b)
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func isZeroed(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
