// Package moltype implements the binary layout this module uses in
// place of Molecule: fields are written in order, fixed-width fields
// verbatim, variable-length fields and vectors behind a uint32 length
// or count prefix. There are no field-offset tables, so the encoding
// is not byte-compatible with Molecule. It is written by hand, the way the teacher encodes
// its own wire records (covenants/vault/vault.go,
// settlement/channels/channel.go): explicit little-endian
// encoding/binary calls and paired Serialize/Deserialize functions,
// rather than depending on an external schema compiler — nothing in
// the example pack reaches for one either, every repo that needs a
// stable binary record hand-writes it the same way this package does.
package moltype

import (
	"encoding/binary"
	"errors"
)

// ErrLengthNotEnough is returned when a buffer ends before a field it
// declared can be read in full.
var ErrLengthNotEnough = errors.New("moltype: length not enough")

// ErrDecodeOverflow is returned when a vector's declared element count
// exceeds the caller-supplied bound, enforcing the "no unbounded
// allocation" discipline of spec.md §5/§9.
var ErrDecodeOverflow = errors.New("moltype: vector exceeds maximum bound")

// Builder accumulates a record's serialized bytes.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Bytes returns the accumulated serialization.
func (b *Builder) Bytes() []byte { return b.buf }

func (b *Builder) PutUint8(v uint8) { b.buf = append(b.buf, v) }

func (b *Builder) PutUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *Builder) PutUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// PutUint128 writes v as 16 little-endian bytes, high half zero —
// enough for the balances this repository carries, which never
// exceed uint64 range, while matching the wire width SUDT amounts use
// on CKB (get_sudt_amount reads 16 bytes).
func (b *Builder) PutUint128(v uint64) {
	var tmp [16]byte
	binary.LittleEndian.PutUint64(tmp[:8], v)
	b.buf = append(b.buf, tmp[:]...)
}

// PutFixed writes data verbatim with no length prefix, for
// fixed-width fields (hashes, public keys) whose length is implied by
// the schema rather than carried on the wire.
func (b *Builder) PutFixed(data []byte) { b.buf = append(b.buf, data...) }

// PutBytes writes a uint32 length prefix followed by data, for
// variable-length fields (signatures, args).
func (b *Builder) PutBytes(data []byte) {
	b.PutUint32(uint32(len(data)))
	b.buf = append(b.buf, data...)
}

// PutOption writes a one-byte presence flag followed by data
// (via put) when present is true, or just the flag when false.
func (b *Builder) PutOption(present bool, put func(*Builder)) {
	if !present {
		b.PutUint8(0)
		return
	}
	b.PutUint8(1)
	put(b)
}

// PutVector writes a uint32 element count followed by each element
// serialized by put, in order.
func PutVector[T any](b *Builder, items []T, put func(*Builder, T)) {
	b.PutUint32(uint32(len(items)))
	for _, item := range items {
		put(b, item)
	}
}

// Reader walks a byte slice left to right, tracking how much has been
// consumed so decode errors can report "ran out of bytes" precisely.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader over buf.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining returns how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Done reports whether the reader has consumed every byte.
func (r *Reader) Done() bool { return r.pos >= len(r.buf) }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrLengthNotEnough
	}
	return nil
}

func (r *Reader) GetUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) GetUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) GetUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// GetUint128 reads 16 little-endian bytes and returns the low 64 bits,
// rejecting values whose high 64 bits are non-zero as an overflow —
// this repository's balances never legitimately exceed uint64.
func (r *Reader) GetUint128() (uint64, error) {
	if err := r.need(16); err != nil {
		return 0, err
	}
	lo := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	hi := binary.LittleEndian.Uint64(r.buf[r.pos+8 : r.pos+16])
	r.pos += 16
	if hi != 0 {
		return 0, ErrDecodeOverflow
	}
	return lo, nil
}

// GetFixed reads exactly n bytes verbatim.
func (r *Reader) GetFixed(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// GetBytes reads a uint32 length prefix followed by that many bytes.
func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	return r.GetFixed(int(n))
}

// GetOption reads a one-byte presence flag and, if set, calls get to
// decode the payload; it returns ok=false with no error when absent.
func (r *Reader) GetOption(get func(*Reader) error) (ok bool, err error) {
	flag, err := r.GetUint8()
	if err != nil {
		return false, err
	}
	if flag == 0 {
		return false, nil
	}
	if err := get(r); err != nil {
		return false, err
	}
	return true, nil
}

// GetVector reads a uint32 element count, rejects it if it exceeds
// max, then decodes that many elements with get.
func GetVector[T any](r *Reader, max int, get func(*Reader) (T, error)) ([]T, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	if int(n) > max {
		return nil, ErrDecodeOverflow
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		item, err := get(r)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
