// Package avcc implements the AVCC length-prefixed NAL unit framer: each
// NAL unit is buffered in memory, then prefixed with a big-endian
// length field (1, 2, or 4 bytes) once it is finished.
//
// Grounded on test/tools/tsutil/tsutil.go's write-then-patch style of
// handling a known-width length field (BuildPES/Packetize), adapted to
// AVCC's length-prefix-before-buffered-NAL shape.
package avcc

import (
	"fmt"

	"github.com/zsiec/webvttmux/nalwriter"
	"github.com/zsiec/webvttmux/rbsp"
	"github.com/zsiec/webvttmux/sei"
	"github.com/zsiec/webvttmux/sink"
	"github.com/zsiec/webvttmux/webvtt"
	"github.com/zsiec/webvttmux/webvtterr"
)

// maxForLengthSize maps a configured length field width to the largest
// NAL unit size it can represent.
var maxForLengthSize = map[int]int{
	1: 0xFF,
	2: 0xFFFF,
	4: 0xFFFFFFFF,
}

// Writer buffers one NAL unit at a time and prefixes it with a
// length_size-byte big-endian length when finished.
type Writer struct {
	s          sink.Sink
	lengthSize int
	phase      nalwriter.Phase
	buf        []byte
}

// New constructs a Writer using the given length field width, which must
// be 1, 2, or 4 — ISOBMFF's length_size_minus_one mapping, not the
// extended {1,2,3,4} set. Any other value fails.
func New(lengthSize int, s sink.Sink) (*Writer, error) {
	if _, ok := maxForLengthSize[lengthSize]; !ok {
		return nil, fmt.Errorf("%w: %d", webvtterr.ErrInvalidLength, lengthSize)
	}
	return &Writer{s: s, lengthSize: lengthSize}, nil
}

// StartWriteNalUnit begins buffering a new NAL unit.
func (w *Writer) StartWriteNalUnit() (*NalUnitWriter, error) {
	if w.phase != nalwriter.PhaseIdle {
		return nil, webvtterr.ErrInvalidState
	}
	w.buf = w.buf[:0]
	w.phase = nalwriter.PhaseInNalUnit
	return &NalUnitWriter{w: w}, nil
}

// NalUnitWriter accepts exactly one NAL header before the pipeline moves
// into RBSP writing.
type NalUnitWriter struct {
	w    *Writer
	done bool
}

// WriteNalHeader buffers header's wire encoding and returns an
// RbspWriter for the RBSP data that follows.
func (n *NalUnitWriter) WriteNalHeader(header nalwriter.HeaderEncoder) (*RbspWriter, error) {
	if n.done || n.w.phase != nalwriter.PhaseInNalUnit {
		return nil, webvtterr.ErrInvalidState
	}
	if err := n.w.appendBuffered(header.Encode()); err != nil {
		return nil, err
	}
	n.done = true
	n.w.phase = nalwriter.PhaseInRbsp
	return &RbspWriter{w: n.w, rbsp: rbsp.New(bufSink{n.w})}, nil
}

// bufSink adapts Writer's buffer-with-overflow-check append as a Sink,
// so the RBSP escaper writes into the same bounded buffer.
type bufSink struct{ w *Writer }

func (b bufSink) Write(p []byte) (int, error) {
	if err := b.w.appendBuffered(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *Writer) appendBuffered(p []byte) error {
	max := maxForLengthSize[w.lengthSize]
	if len(w.buf)+len(p) > max {
		return &webvtterr.MaxNalUnitSizeExceeded{Max: max, Required: len(w.buf) + len(p)}
	}
	w.buf = append(w.buf, p...)
	return nil
}

// RbspWriter writes RBSP-escaped WebVTT SEI messages into the buffered
// NAL unit, then finishes it by flushing the length-prefixed NAL to the
// underlying sink.
type RbspWriter struct {
	w        *Writer
	rbsp     *rbsp.Writer
	finished bool
}

func (r *RbspWriter) seiPrefix(s sink.Sink, bodyLen int) error {
	return sei.WriteHeader(s, sei.UserDataUnregistered, bodyLen)
}

// WriteWebvttHeader writes the one-shot WebVTT header message as an SEI
// user_data_unregistered payload into the buffered NAL unit.
func (r *RbspWriter) WriteWebvttHeader(p webvtt.HeaderParams) error {
	if r.finished || r.w.phase != nalwriter.PhaseInRbsp {
		return webvtterr.ErrInvalidState
	}
	return webvtt.WriteHeader(r.rbsp, p, r.seiPrefix)
}

// WriteWebvttPayload writes one WebVTT payload message as an SEI
// user_data_unregistered payload into the buffered NAL unit.
func (r *RbspWriter) WriteWebvttPayload(p webvtt.PayloadParams) error {
	if r.finished || r.w.phase != nalwriter.PhaseInRbsp {
		return webvtterr.ErrInvalidState
	}
	return webvtt.WritePayload(r.rbsp, p, r.seiPrefix)
}

// FinishRbsp appends the RBSP trailing bits to the buffered NAL unit,
// then flushes the big-endian length prefix and the buffered bytes to
// the underlying sink, returning the Writer ready for the next NAL unit.
func (r *RbspWriter) FinishRbsp() (*Writer, error) {
	if r.finished || r.w.phase != nalwriter.PhaseInRbsp {
		return nil, webvtterr.ErrInvalidState
	}
	if err := r.rbsp.Finish(); err != nil {
		return nil, err
	}
	r.finished = true

	length := len(r.w.buf)
	var lenBuf [4]byte
	switch r.w.lengthSize {
	case 1:
		lenBuf[0] = byte(length)
	case 2:
		lenBuf[0] = byte(length >> 8)
		lenBuf[1] = byte(length)
	case 4:
		lenBuf[0] = byte(length >> 24)
		lenBuf[1] = byte(length >> 16)
		lenBuf[2] = byte(length >> 8)
		lenBuf[3] = byte(length)
	}
	if _, err := r.w.s.Write(lenBuf[:r.w.lengthSize]); err != nil {
		return nil, err
	}
	if _, err := r.w.s.Write(r.w.buf); err != nil {
		return nil, err
	}

	r.w.phase = nalwriter.PhaseIdle
	return r.w, nil
}
