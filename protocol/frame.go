package protocol

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Frame mode tags, the first byte of every decompressed datagram.
const (
	FrameKey   byte = 0
	FrameDelta byte = 1
)

// Compress deflates data in a zlib container at the level the remote uses.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Field: "payload", Err: err}
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &FormatError{Field: "payload", Err: err}
	}
	return out, nil
}

// FrameDecoder reconstructs full snapshots from key and delta frames. It keeps
// the last committed snapshot, the only history the stream needs.
type FrameDecoder struct {
	last []byte
}

func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Decode returns the reconstructed snapshot bytes for one datagram payload. It
// does not touch the retained frame; call Commit once it reconstructs, since
// the sender's next delta is against these bytes whether or not they parse.
func (d *FrameDecoder) Decode(payload []byte) ([]byte, error) {
	data, err := Decompress(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &FormatError{Field: "frame_tag", Err: ErrEmptyFrame}
	}

	switch data[0] {
	case FrameKey:
		return append([]byte(nil), data[1:]...), nil
	case FrameDelta:
		if d.last == nil {
			return nil, &DesyncError{Have: -1, Want: len(data) - 1, Err: ErrNoPreviousFrame}
		}
		return ApplyDelta(d.last, data[1:])
	default:
		return nil, &FormatError{Field: "frame_tag", Err: fmt.Errorf("%w: %d", ErrUnknownFrameTag, data[0])}
	}
}

// Commit makes frame the base for the next delta.
func (d *FrameDecoder) Commit(frame []byte) {
	d.last = frame
}

// Last returns the retained frame, nil before the first commit.
func (d *FrameDecoder) Last() []byte {
	return d.last
}

func (d *FrameDecoder) Reset() {
	d.last = nil
}

// ApplyDelta adds delta to prev byte-wise, modulo 256.
func ApplyDelta(prev, delta []byte) ([]byte, error) {
	if len(prev) != len(delta) {
		return nil, &DesyncError{Have: len(prev), Want: len(delta), Err: ErrLengthMismatch}
	}
	out := make([]byte, len(delta))
	for i := range delta {
		out[i] = delta[i] + prev[i]
	}
	return out, nil
}

// Diff is the inverse of ApplyDelta.
func Diff(prev, cur []byte) ([]byte, error) {
	if len(prev) != len(cur) {
		return nil, &DesyncError{Have: len(prev), Want: len(cur), Err: ErrLengthMismatch}
	}
	out := make([]byte, len(cur))
	for i := range cur {
		out[i] = cur[i] - prev[i]
	}
	return out, nil
}

// EncodeKeyFrame builds the compressed datagram carrying snapshot verbatim.
func EncodeKeyFrame(snapshot []byte) ([]byte, error) {
	return Compress(append([]byte{FrameKey}, snapshot...))
}

// EncodeDelta builds the compressed datagram that turns prev into cur.
func EncodeDelta(prev, cur []byte) ([]byte, error) {
	delta, err := Diff(prev, cur)
	if err != nil {
		return nil, err
	}
	return Compress(append([]byte{FrameDelta}, delta...))
}
