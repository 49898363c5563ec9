package protocol

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Reader decodes the little-endian positional layout. Errors are sticky: after
// the first failure every read returns a zero value and Err reports the
// failure, so record decoders can read fields straight through.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) Offset() int { return r.off }

func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) fail(field string, err error) {
	if r.err == nil {
		r.err = &FormatError{Offset: r.off, Field: field, Err: err}
	}
}

func (r *Reader) next(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.fail(field, ErrShortRead)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8(field string) uint8 {
	b := r.next(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) I8(field string) int8 { return int8(r.U8(field)) }

func (r *Reader) Bool(field string) bool { return r.U8(field) != 0 }

func (r *Reader) U16(field string) uint16 {
	b := r.next(2, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) I16(field string) int16 { return int16(r.U16(field)) }

func (r *Reader) U32(field string) uint32 {
	b := r.next(4, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32(field string) int32 { return int32(r.U32(field)) }

func (r *Reader) U64(field string) uint64 {
	b := r.next(8, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64(field string) int64 { return int64(r.U64(field)) }

func (r *Reader) F32(field string) float32 { return math.Float32frombits(r.U32(field)) }

func (r *Reader) F64(field string) float64 { return math.Float64frombits(r.U64(field)) }

func (r *Reader) String(field string) string {
	n := r.I32(field)
	if r.err != nil {
		return ""
	}
	if n < 0 {
		r.fail(field, ErrNegativeLength)
		return ""
	}
	b := r.next(int(n), field)
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.fail(field, ErrInvalidUTF8)
		return ""
	}
	return string(b)
}

// count reads a sequence length prefix. Every element is at least one byte, so
// a count larger than the remaining input is reported as a short read before
// anything is allocated.
func (r *Reader) count(field string) int {
	n := r.I32(field)
	if r.err != nil {
		return 0
	}
	if n < 0 {
		r.fail(field, ErrNegativeLength)
		return 0
	}
	if int(n) > r.Remaining() {
		r.fail(field, ErrShortRead)
		return 0
	}
	return int(n)
}

// ReadSeq reads an i32 count followed by that many elements.
func ReadSeq[T any](r *Reader, field string, read func(*Reader) T) []T {
	n := r.count(field)
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v := read(r)
		if r.err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// ReadOpt reads a presence byte followed by the value when present.
func ReadOpt[T any](r *Reader, field string, read func(*Reader) T) *T {
	if !r.Bool(field) || r.err != nil {
		return nil
	}
	v := read(r)
	if r.err != nil {
		return nil
	}
	return &v
}
