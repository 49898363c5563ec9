package protocol

import (
	"encoding/binary"
	"math"
)

// Writer is the mirror of Reader.
type Writer struct {
	data []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte { return w.data }

func (w *Writer) Len() int { return len(w.data) }

func (w *Writer) U8(v uint8) { w.data = append(w.data, v) }

func (w *Writer) I8(v int8) { w.U8(uint8(v)) }

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

func (w *Writer) U16(v uint16) { w.data = binary.LittleEndian.AppendUint16(w.data, v) }

func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

func (w *Writer) U32(v uint32) { w.data = binary.LittleEndian.AppendUint32(w.data, v) }

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

func (w *Writer) U64(v uint64) { w.data = binary.LittleEndian.AppendUint64(w.data, v) }

func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

func (w *Writer) String(v string) {
	w.I32(int32(len(v)))
	w.data = append(w.data, v...)
}

func WriteSeq[T any](w *Writer, items []T, write func(*Writer, T)) {
	w.I32(int32(len(items)))
	for _, v := range items {
		write(w, v)
	}
}

func WriteOpt[T any](w *Writer, v *T, write func(*Writer, T)) {
	w.Bool(v != nil)
	if v != nil {
		write(w, *v)
	}
}
