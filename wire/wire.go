// Package wire implements the canonical binary encoding shared by the
// historical cache's cold tier, the bundle export format, and the
// archive RPC transport: varint(len) || payload framing for
// self-describing object/package/bundle values, and
// varint(discriminant) || payload for the transaction's tagged unions.
//
// multiformats/go-varint supplies the LEB128 length-prefix primitive,
// delimiting fields in a byte buffer the same way it delimits messages
// on a stream.
package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/multiformats/go-varint"

	"github.com/sui-replay/replaycore/errtax"
)

// snappyThreshold is the payload size above which Writer transparently
// snappy-compresses the whole buffer; wire values that never leave the
// process (arguments passed directly between the planner and the kernel)
// are small enough to stay under it in practice.
const snappyThreshold = 4096

// Writer accumulates a canonical-encoded buffer.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) WriteUvarint(v uint64) {
	w.buf.Write(varint.ToUvarint(v))
}

func (w *Writer) WriteBytes(b []byte) {
	w.WriteUvarint(uint64(len(b)))
	w.buf.Write(b)
}

func (w *Writer) WriteString(s string) { w.WriteBytes([]byte(s)) }

func (w *Writer) WriteByte(b byte) error { return w.buf.WriteByte(b) }

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// Bytes returns the encoded buffer, snappy-framed when it crosses
// snappyThreshold. The first byte of the returned slice discriminates the
// framing: 0 = raw, 1 = snappy.
func (w *Writer) Bytes() []byte {
	raw := w.buf.Bytes()
	if len(raw) < snappyThreshold {
		out := make([]byte, 0, len(raw)+1)
		out = append(out, 0)
		return append(out, raw...)
	}
	compressed := snappy.Encode(nil, raw)
	out := make([]byte, 0, len(compressed)+1)
	out = append(out, 1)
	return append(out, compressed...)
}

// Reader consumes a canonical-encoded buffer produced by Writer.
type Reader struct {
	buf    *bytes.Reader
	offset int
}

// NewReader un-frames a buffer produced by Writer.Bytes.
func NewReader(data []byte) (*Reader, error) {
	if len(data) == 0 {
		return nil, errtax.Codec(0, "empty buffer")
	}
	framing, payload := data[0], data[1:]
	switch framing {
	case 0:
		return &Reader{buf: bytes.NewReader(payload)}, nil
	case 1:
		raw, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, errtax.Codec(0, "snappy decode: "+err.Error())
		}
		return &Reader{buf: bytes.NewReader(raw)}, nil
	default:
		return nil, errtax.Codec(0, "unknown framing byte")
	}
}

func (r *Reader) pos() int { return r.offset }

func (r *Reader) ReadUvarint() (uint64, error) {
	v, err := varint.ReadUvarint(r.buf)
	if err != nil {
		return 0, errtax.Codec(r.pos(), "truncated varint")
	}
	r.offset += varint.UvarintSize(v)
	return v, nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > (1 << 32) {
		return nil, errtax.Codec(r.pos(), "length overflow")
	}
	// Empty decodes to nil so a nil field round-trips to itself.
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.buf, buf); err != nil {
		return nil, errtax.Codec(r.pos(), "truncated payload")
	}
	r.offset += int(n)
	return buf, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		return 0, errtax.Codec(r.pos(), "truncated byte")
	}
	r.offset++
	return b, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.buf, b[:]); err != nil {
		return 0, errtax.Codec(r.pos(), "truncated uint64")
	}
	r.offset += 8
	return binary.BigEndian.Uint64(b[:]), nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// Remaining reports whether any bytes remain to be consumed.
func (r *Reader) Remaining() int { return r.buf.Len() }

// CacheKeyHash returns a fast, non-cryptographic digest of a key, used by
// hydrate's predictive prefetch to derive placeholder child-key bytes;
// histcache keys its tiers and singleflight by the string key itself.
func CacheKeyHash(key []byte) uint64 {
	return xxhash.Sum64(key)
}
