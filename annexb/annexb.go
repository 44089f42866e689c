// Package annexb implements the Annex-B start-code framer shared by the
// H.264 and H.265 WebVTT carriage writers: an optional leading
// 0x00 once per stream, then a 0x00 0x00 0x01 start code before each NAL
// unit, then the NAL header, RBSP-escaped body, and RBSP trailing bits.
//
// Grounded on the start-code literals and handling in
// test/tools/tsutil/tsutil.go's FindNALStarts, inverted from locating
// start codes to emitting them.
package annexb

import (
	"github.com/zsiec/webvttmux/nalwriter"
	"github.com/zsiec/webvttmux/rbsp"
	"github.com/zsiec/webvttmux/sei"
	"github.com/zsiec/webvttmux/sink"
	"github.com/zsiec/webvttmux/webvtt"
	"github.com/zsiec/webvttmux/webvtterr"
)

// Writer emits one or more NAL units as an Annex-B byte stream.
type Writer struct {
	s             sink.Sink
	startedStream bool
	phase         nalwriter.Phase
}

// New returns a Writer that emits Annex-B framing to s. Construction is
// infallible.
func New(s sink.Sink) *Writer {
	return &Writer{s: s}
}

// StartWriteNalUnit emits the start code (and, on the first call for this
// Writer, the single leading_zero_8bits byte) and returns a NalUnitWriter
// ready to accept a NAL header.
func (w *Writer) StartWriteNalUnit() (*NalUnitWriter, error) {
	if w.phase != nalwriter.PhaseIdle {
		return nil, webvtterr.ErrInvalidState
	}
	if !w.startedStream {
		if _, err := w.s.Write([]byte{0x00}); err != nil {
			return nil, err
		}
		w.startedStream = true
	}
	if _, err := w.s.Write([]byte{0x00, 0x00, 0x01}); err != nil {
		return nil, err
	}
	w.phase = nalwriter.PhaseInNalUnit
	return &NalUnitWriter{w: w}, nil
}

// NalUnitWriter accepts exactly one NAL header before the pipeline moves
// into RBSP writing.
type NalUnitWriter struct {
	w    *Writer
	done bool
}

// WriteNalHeader writes header's wire encoding and returns an RbspWriter
// for the RBSP data that follows.
func (n *NalUnitWriter) WriteNalHeader(header nalwriter.HeaderEncoder) (*RbspWriter, error) {
	if n.done || n.w.phase != nalwriter.PhaseInNalUnit {
		return nil, webvtterr.ErrInvalidState
	}
	if _, err := n.w.s.Write(header.Encode()); err != nil {
		return nil, err
	}
	n.done = true
	n.w.phase = nalwriter.PhaseInRbsp
	return &RbspWriter{w: n.w, rbsp: rbsp.New(n.w.s)}, nil
}

// RbspWriter writes RBSP-escaped WebVTT SEI messages, then finishes the
// NAL unit with the RBSP trailing bits.
type RbspWriter struct {
	w        *Writer
	rbsp     *rbsp.Writer
	finished bool
}

func (r *RbspWriter) seiPrefix(s sink.Sink, bodyLen int) error {
	return sei.WriteHeader(s, sei.UserDataUnregistered, bodyLen)
}

// WriteWebvttHeader writes the one-shot WebVTT header message as an SEI
// user_data_unregistered payload, escaped for RBSP.
func (r *RbspWriter) WriteWebvttHeader(p webvtt.HeaderParams) error {
	if r.finished || r.w.phase != nalwriter.PhaseInRbsp {
		return webvtterr.ErrInvalidState
	}
	return webvtt.WriteHeader(r.rbsp, p, r.seiPrefix)
}

// WriteWebvttPayload writes one WebVTT payload message as an SEI
// user_data_unregistered payload, escaped for RBSP. Multiple payload
// messages may be written into the same NAL unit before FinishRbsp.
func (r *RbspWriter) WriteWebvttPayload(p webvtt.PayloadParams) error {
	if r.finished || r.w.phase != nalwriter.PhaseInRbsp {
		return webvtterr.ErrInvalidState
	}
	return webvtt.WritePayload(r.rbsp, p, r.seiPrefix)
}

// FinishRbsp emits the RBSP trailing bits and returns the Writer, ready
// to start the next NAL unit.
func (r *RbspWriter) FinishRbsp() (*Writer, error) {
	if r.finished || r.w.phase != nalwriter.PhaseInRbsp {
		return nil, webvtterr.ErrInvalidState
	}
	if err := r.rbsp.Finish(); err != nil {
		return nil, err
	}
	r.finished = true
	r.w.phase = nalwriter.PhaseIdle
	return r.w, nil
}
