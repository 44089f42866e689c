// Package av1 encodes AV1 OBU headers and frames WebVTT-in-video messages
// as Metadata OBUs of type UnregisteredPrivate6.
//
// Grounded on the OBU header bit layout and LEB128 size-field placement in
// other_examples' pion-rtp obu-split.go and mediacommon's av1 bitstream.go,
// both adapted from OBU splitting (reading a temporal unit) to single-OBU
// emission.
package av1

import (
	"fmt"

	"github.com/zsiec/webvttmux/leb128"
	"github.com/zsiec/webvttmux/sink"
	"github.com/zsiec/webvttmux/webvtt"
	"github.com/zsiec/webvttmux/webvtterr"
)

// OBUType identifies the payload an OBU carries.
type OBUType uint8

// OBU types defined by the AV1 bitstream specification, the subset this
// module names explicitly.
const (
	OBUTypeSequenceHeader       OBUType = 1
	OBUTypeTemporalDelimiter    OBUType = 2
	OBUTypeFrameHeader          OBUType = 3
	OBUTypeTileGroup            OBUType = 4
	OBUTypeMetadata             OBUType = 5
	OBUTypeFrame                OBUType = 6
	OBUTypeRedundantFrameHeader OBUType = 7
	OBUTypeTileList             OBUType = 8
	OBUTypePadding              OBUType = 15
)

// MetadataType identifies the kind of metadata an OBU_METADATA OBU
// carries. UnregisteredPrivate6 is the value used for WebVTT carriage.
type MetadataType uint8

// UnregisteredPrivate6 is the AV1 metadata type used to mark WebVTT
// carriage payloads.
const UnregisteredPrivate6 MetadataType = 6

// ExtensionHeader is the optional 1-byte OBU extension header.
type ExtensionHeader struct {
	TemporalId int
	SpatialId  int
}

func (e ExtensionHeader) validate() error {
	if e.TemporalId < 0 || e.TemporalId > 7 {
		return fmt.Errorf("%w: %d", webvtterr.ErrOBUExtTemporalIdRange, e.TemporalId)
	}
	if e.SpatialId < 0 || e.SpatialId > 3 {
		return fmt.Errorf("%w: %d", webvtterr.ErrOBUExtSpatialIdRange, e.SpatialId)
	}
	return nil
}

func (e ExtensionHeader) encode() byte {
	return byte(e.TemporalId&0x07)<<5 | byte(e.SpatialId&0x03)<<3
}

// Header is an AV1 OBU header: type, optional extension, optional size
// field.
type Header struct {
	ObuType      OBUType
	Extension    *ExtensionHeader
	HasSizeField bool
	ObuSize      uint32
}

// maxHeaderLen is the maximum encoded header length: 1 (base) + 1
// (extension) + 5 (LEB128 obu_size).
const maxHeaderLen = 1 + 1 + 5

// Encode appends the wire encoding of h to dst. The base and extension
// bytes go through a 10-byte scratch buffer; the LEB128 obu_size is
// appended to dst directly. The result is at most maxHeaderLen bytes.
func (h Header) Encode(dst []byte) ([]byte, error) {
	var scratch [10]byte
	n := 0

	b0 := byte(h.ObuType&0x0F) << 3
	if h.Extension != nil {
		if err := h.Extension.validate(); err != nil {
			return nil, err
		}
		b0 |= 0x04
	}
	if h.HasSizeField {
		b0 |= 0x02
	}
	scratch[n] = b0
	n++

	if h.Extension != nil {
		scratch[n] = h.Extension.encode()
		n++
	}

	dst = append(dst, scratch[:n]...)
	if h.HasSizeField {
		dst = leb128.Append(dst, uint64(h.ObuSize))
	}
	return dst, nil
}

// TrailingBits is the OBU trailing-bits byte: one stop bit plus byte
// alignment, identical in shape to the RBSP trailing-bits byte used by
// H.26x.
const TrailingBits = 0x80

// Writer emits WebVTT-in-video messages as AV1 Metadata OBUs directly to
// a sink; unlike the H.26x framers it carries no phase state, since each
// call produces one complete, self-contained OBU.
type Writer struct {
	s sink.Sink
}

// New returns a Writer that emits Metadata OBUs to s.
func New(s sink.Sink) *Writer {
	return &Writer{s: s}
}

func (w *Writer) metadataPrefix(s sink.Sink, bodyLen int) error {
	n := leb128.EncodedLen(uint64(UnregisteredPrivate6)) + bodyLen
	hdr := Header{ObuType: OBUTypeMetadata, HasSizeField: true, ObuSize: uint32(n) + 1}
	buf, err := hdr.Encode(nil)
	if err != nil {
		return err
	}
	if _, err := s.Write(buf); err != nil {
		return err
	}
	return leb128.Write(s, uint64(UnregisteredPrivate6))
}

// WriteWebvttHeader emits the one-shot WebVTT configuration header as a
// Metadata OBU.
func (w *Writer) WriteWebvttHeader(p webvtt.HeaderParams) error {
	if err := webvtt.WriteHeader(w.s, p, w.metadataPrefix); err != nil {
		return err
	}
	_, err := w.s.Write([]byte{TrailingBits})
	return err
}

// WriteWebvttPayload emits one WebVTT payload message as a Metadata OBU.
func (w *Writer) WriteWebvttPayload(p webvtt.PayloadParams) error {
	if err := webvtt.WritePayload(w.s, p, w.metadataPrefix); err != nil {
		return err
	}
	_, err := w.s.Write([]byte{TrailingBits})
	return err
}
