package av1

import (
	"bytes"
	"testing"

	"github.com/zsiec/webvttmux/leb128"
	"github.com/zsiec/webvttmux/webvtt"
)

func TestMetadataOBUHeaderByte(t *testing.T) {
	t.Parallel()

	h := Header{ObuType: OBUTypeMetadata, HasSizeField: true, ObuSize: 10}
	buf, err := h.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf[0] != 0x2A {
		t.Errorf("header byte = %#x, want 0x2a", buf[0])
	}
}

func TestHeaderWithoutSizeField(t *testing.T) {
	t.Parallel()

	h := Header{ObuType: OBUTypeTemporalDelimiter, HasSizeField: false}
	buf, err := h.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != 1 {
		t.Fatalf("len = %d, want 1", len(buf))
	}
	if buf[0] != 0x10 { // type 2 << 3 = 0x10, no ext, no size
		t.Errorf("header byte = %#x, want 0x10", buf[0])
	}
}

func TestHeaderWithExtension(t *testing.T) {
	t.Parallel()

	ext := &ExtensionHeader{TemporalId: 3, SpatialId: 2}
	h := Header{ObuType: OBUTypeFrame, Extension: ext, HasSizeField: true, ObuSize: 5}
	buf, err := h.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) < 2 {
		t.Fatalf("expected at least 2 header bytes, got %d", len(buf))
	}
	if buf[0]&0x04 == 0 {
		t.Errorf("extension flag bit not set: %#x", buf[0])
	}
	wantExtByte := byte(3)<<5 | byte(2)<<3
	if buf[1] != wantExtByte {
		t.Errorf("extension byte = %#x, want %#x", buf[1], wantExtByte)
	}
}

func TestExtensionOutOfRangeRejected(t *testing.T) {
	t.Parallel()

	ext := &ExtensionHeader{TemporalId: 8, SpatialId: 0}
	h := Header{ObuType: OBUTypeFrame, Extension: ext}
	if _, err := h.Encode(nil); err == nil {
		t.Fatalf("expected error for temporal_id=8")
	}

	ext2 := &ExtensionHeader{TemporalId: 0, SpatialId: 4}
	h2 := Header{ObuType: OBUTypeFrame, Extension: ext2}
	if _, err := h2.Encode(nil); err == nil {
		t.Fatalf("expected error for spatial_id=4")
	}
}

type memSink struct {
	buf bytes.Buffer
}

func (m *memSink) Write(p []byte) (int, error) { return m.buf.Write(p) }

func TestWriteWebvttPayloadFraming(t *testing.T) {
	t.Parallel()

	var s memSink
	w := New(&s)
	p := webvtt.PayloadParams{WebvttPayload: "hi"}
	if err := w.WriteWebvttPayload(p); err != nil {
		t.Fatalf("WriteWebvttPayload: %v", err)
	}

	out := s.buf.Bytes()
	if out[0] != 0x2A {
		t.Fatalf("first byte = %#x, want 0x2a (metadata+size flag)", out[0])
	}
	obuSize, n, ok := leb128.Decode(out[1:])
	if !ok {
		t.Fatalf("could not decode obu_size leb128")
	}
	rest := out[1+n:]
	if int(obuSize) != len(rest) {
		t.Errorf("obu_size = %d, but body+trailing is %d bytes", obuSize, len(rest))
	}
	if rest[len(rest)-1] != TrailingBits {
		t.Errorf("last byte = %#x, want 0x80", rest[len(rest)-1])
	}
	metadataType, n2, ok := leb128.Decode(rest)
	if !ok || metadataType != uint64(UnregisteredPrivate6) {
		t.Errorf("metadata type = %d, want %d", metadataType, UnregisteredPrivate6)
	}
	guidStart := rest[n2:]
	if !bytes.HasPrefix(guidStart, webvtt.PayloadGUID[:]) {
		t.Errorf("body does not start with PAYLOAD_GUID")
	}
}

func TestObuSizeCoversTrailingByte(t *testing.T) {
	t.Parallel()

	var s memSink
	w := New(&s)
	if err := w.WriteWebvttHeader(webvtt.HeaderParams{SendFrequencyHz: 1}); err != nil {
		t.Fatalf("WriteWebvttHeader: %v", err)
	}
	out := s.buf.Bytes()
	obuSize, n, ok := leb128.Decode(out[1:])
	if !ok {
		t.Fatalf("decode obu_size failed")
	}
	wantRemaining := len(out) - 1 - n
	if int(obuSize) != wantRemaining {
		t.Errorf("obu_size = %d, want %d (includes trailing byte)", obuSize, wantRemaining)
	}
}
