// Package rbsp implements the H.26x Raw Byte Sequence Payload
// emulation-prevention writer: it inserts an 0x03 escape byte before any
// 0x00/0x01/0x02/0x03 that follows two consecutive 0x00 bytes, and appends
// RBSP trailing bits on Finish.
//
// Grounded on the whole-buffer AddEPB algorithm, restructured here as an
// incremental streaming writer since NAL bodies are assembled one field at
// a time by the layers above.
package rbsp

import "github.com/zsiec/webvttmux/sink"

// TrailingBits is the RBSP trailing-bits byte: a single stop bit followed
// by byte-alignment zeros.
const TrailingBits = 0x80

// Writer wraps a [sink.Sink], escaping bytes as they are written.
type Writer struct {
	s         sink.Sink
	zeroCount int
}

// New returns a Writer that escapes bytes written through it before
// forwarding them to s.
func New(s sink.Sink) *Writer {
	return &Writer{s: s}
}

// Write escapes p byte by byte and forwards it to the underlying sink.
func (w *Writer) Write(p []byte) (int, error) {
	for _, b := range p {
		if w.zeroCount >= 2 && b <= 0x03 {
			if _, err := w.s.Write([]byte{0x03}); err != nil {
				return 0, err
			}
			w.zeroCount = 0
		}
		if _, err := w.s.Write([]byte{b}); err != nil {
			return 0, err
		}
		if b == 0x00 {
			w.zeroCount++
		} else {
			w.zeroCount = 0
		}
	}
	return len(p), nil
}

// Finish emits the RBSP trailing-bits byte (subject to the same escaping
// as any other byte) and resets the writer's window so it may be reused
// for a subsequent NAL unit.
func (w *Writer) Finish() error {
	_, err := w.Write([]byte{TrailingBits})
	w.zeroCount = 0
	return err
}
