package annexb

import (
	"bytes"
	"testing"
	"time"

	"github.com/zsiec/webvttmux/h264"
	"github.com/zsiec/webvttmux/h265"
	"github.com/zsiec/webvttmux/webvtt"
)

func TestS1H264SEIOnePayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := New(&buf)

	nu, err := w.StartWriteNalUnit()
	if err != nil {
		t.Fatalf("StartWriteNalUnit: %v", err)
	}
	hdr, err := h264.New(h264.NALTypeSEI, 0)
	if err != nil {
		t.Fatalf("h264.New: %v", err)
	}
	rw, err := nu.WriteNalHeader(hdr)
	if err != nil {
		t.Fatalf("WriteNalHeader: %v", err)
	}
	p := webvtt.PayloadParams{
		TrackIndex:    0,
		ChunkNumber:   1,
		ChunkVersion:  0,
		VideoOffset:   200 * time.Millisecond,
		WebvttPayload: "Some unverified data",
	}
	if err := rw.WriteWebvttPayload(p); err != nil {
		t.Fatalf("WriteWebvttPayload: %v", err)
	}
	if _, err := rw.FinishRbsp(); err != nil {
		t.Fatalf("FinishRbsp: %v", err)
	}

	out := buf.Bytes()
	wantPrefix := []byte{0x00, 0x00, 0x00, 0x01, 0x06, 0x05}
	if !bytes.HasPrefix(out, wantPrefix) {
		t.Fatalf("prefix = % x, want % x...", out[:len(wantPrefix)], wantPrefix)
	}
	payloadSize := out[6]
	guid := out[7:23]
	if !bytes.Equal(guid, webvtt.PayloadGUID[:]) {
		t.Errorf("GUID not at expected offset: % x", guid)
	}
	if out[len(out)-1] != 0x80 {
		t.Errorf("last byte = %#x, want 0x80", out[len(out)-1])
	}
	// payloadSize should equal the body length (GUID + fields + text),
	// which for this message is 16+1+8+1+2+20 = 48, single byte since <255.
	if int(payloadSize) != 48 {
		t.Errorf("payloadSize = %d, want 48", payloadSize)
	}
}

func TestS2H264SEITwoPayloadsOneNAL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := New(&buf)
	nu, _ := w.StartWriteNalUnit()
	hdr, _ := h264.New(h264.NALTypeSEI, 0)
	rw, err := nu.WriteNalHeader(hdr)
	if err != nil {
		t.Fatalf("WriteNalHeader: %v", err)
	}

	if err := rw.WriteWebvttPayload(webvtt.PayloadParams{WebvttPayload: "first"}); err != nil {
		t.Fatalf("first payload: %v", err)
	}
	if err := rw.WriteWebvttPayload(webvtt.PayloadParams{WebvttPayload: "second"}); err != nil {
		t.Fatalf("second payload: %v", err)
	}
	if _, err := rw.FinishRbsp(); err != nil {
		t.Fatalf("FinishRbsp: %v", err)
	}

	out := buf.Bytes()
	guidCount := bytes.Count(out, webvtt.PayloadGUID[:])
	if guidCount != 2 {
		t.Errorf("PAYLOAD_GUID appears %d times, want 2", guidCount)
	}
}

func TestS3H265PrefixSEI(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := New(&buf)
	nu, _ := w.StartWriteNalUnit()
	hdr, err := h265.New(h265.NALTypeSEIPrefix, 0, 0)
	if err != nil {
		t.Fatalf("h265.New: %v", err)
	}
	rw, err := nu.WriteNalHeader(hdr)
	if err != nil {
		t.Fatalf("WriteNalHeader: %v", err)
	}
	if err := rw.WriteWebvttPayload(webvtt.PayloadParams{WebvttPayload: "x"}); err != nil {
		t.Fatalf("WriteWebvttPayload: %v", err)
	}
	if _, err := rw.FinishRbsp(); err != nil {
		t.Fatalf("FinishRbsp: %v", err)
	}

	out := buf.Bytes()
	// start code (4 bytes incl. leading zero) + 2-byte NAL header.
	if out[4] != 0x4E || out[5] != 0x01 {
		t.Errorf("NAL header = % x, want 4e 01", out[4:6])
	}
	if out[6] != 0x05 { // SEI payloadType
		t.Errorf("payloadType = %#x, want 0x05", out[6])
	}
}

func TestLeadingZeroOnlyOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := New(&buf)

	for i := 0; i < 2; i++ {
		nu, err := w.StartWriteNalUnit()
		if err != nil {
			t.Fatalf("StartWriteNalUnit[%d]: %v", i, err)
		}
		hdr, _ := h264.New(h264.NALTypeSEI, 0)
		rw, err := nu.WriteNalHeader(hdr)
		if err != nil {
			t.Fatalf("WriteNalHeader[%d]: %v", i, err)
		}
		if err := rw.WriteWebvttPayload(webvtt.PayloadParams{WebvttPayload: "x"}); err != nil {
			t.Fatalf("WriteWebvttPayload[%d]: %v", i, err)
		}
		if _, err := rw.FinishRbsp(); err != nil {
			t.Fatalf("FinishRbsp[%d]: %v", i, err)
		}
	}

	out := buf.Bytes()
	count := bytes.Count(out, []byte{0x00, 0x00, 0x01})
	if count != 2 {
		t.Errorf("start code count = %d, want 2", count)
	}
	if out[0] != 0x00 || out[1] != 0x00 || out[2] != 0x00 || out[3] != 0x01 {
		t.Errorf("first NAL missing leading zero + start code: % x", out[:4])
	}
}

func TestPhaseMisuseRejected(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := New(&buf)
	nu, err := w.StartWriteNalUnit()
	if err != nil {
		t.Fatalf("StartWriteNalUnit: %v", err)
	}

	// Starting a second NAL unit before finishing the first must fail.
	if _, err := w.StartWriteNalUnit(); err == nil {
		t.Errorf("expected error starting a second NAL unit mid-pipeline")
	}

	hdr, _ := h264.New(h264.NALTypeSEI, 0)
	rw, err := nu.WriteNalHeader(hdr)
	if err != nil {
		t.Fatalf("WriteNalHeader: %v", err)
	}

	// Writing the header twice on the same NalUnitWriter must fail.
	if _, err := nu.WriteNalHeader(hdr); err == nil {
		t.Errorf("expected error writing NAL header twice")
	}

	if _, err := rw.FinishRbsp(); err != nil {
		t.Fatalf("FinishRbsp: %v", err)
	}

	// Using the RbspWriter again after finishing must fail.
	if err := rw.WriteWebvttPayload(webvtt.PayloadParams{WebvttPayload: "x"}); err == nil {
		t.Errorf("expected error writing to finished RbspWriter")
	}
	if _, err := rw.FinishRbsp(); err == nil {
		t.Errorf("expected error finishing already-finished RbspWriter")
	}
}
