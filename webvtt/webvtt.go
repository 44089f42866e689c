// Package webvtt implements the codec-agnostic WebVTT-in-video message
// serializer: the one-shot header message and the repeatable payload
// message, both framed by a caller-supplied container prefix callback.
package webvtt

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/zsiec/webvttmux/sink"
	"github.com/zsiec/webvttmux/webvtterr"
)

// PayloadGUID is the fixed 16-byte identifier that precedes both header
// and payload bodies inside SEI user_data_unregistered / AV1
// UnregisteredPrivate6 metadata, distinguishing WebVTT-in-video payloads
// from other unregistered user data.
var PayloadGUID = [16]byte{
	0x8A, 0xC3, 0xD2, 0x39, 0x2F, 0xFC, 0x44, 0xC1,
	0x9B, 0x0F, 0xF1, 0x1A, 0x51, 0x11, 0xF7, 0xA2,
}

// TrackKind identifies the role a subtitle track plays, as carried in a
// WebvttTrack descriptor.
type TrackKind uint8

// Track kinds defined by the WebVTT-in-video carriage convention.
const (
	KindSubtitles TrackKind = iota
	KindCaptions
	KindDescriptions
	KindChapters
	KindMetadata
)

// messageType identifies the body layout of a WebVTT-in-video message.
type messageType uint8

const (
	messageTypeHeader  messageType = 1
	messageTypePayload messageType = 2
)

// Track describes one subtitle track referenced by a header message's
// track list. Wire encoding: track_id (u8), language (length-prefixed
// UTF-8), kind (u8), label (length-prefixed UTF-8).
type Track struct {
	ID       uint8
	Language string
	Kind     TrackKind
	Label    string
}

func (t Track) encode(dst []byte) ([]byte, error) {
	dst = append(dst, t.ID)
	var err error
	dst, err = appendShortString(dst, "language", t.Language)
	if err != nil {
		return nil, err
	}
	dst = append(dst, byte(t.Kind))
	dst, err = appendShortString(dst, "label", t.Label)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func appendShortString(dst []byte, field, s string) ([]byte, error) {
	if len(s) > 255 {
		return nil, fmt.Errorf("%w: %s exceeds 255 bytes", webvtterr.ErrInvalidInput, field)
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...), nil
}

// HeaderParams are the inputs to the one-shot configuration header
// message, emitted once per stream.
type HeaderParams struct {
	MaxLatencyToVideo time.Duration
	SendFrequencyHz   uint8
	SubtitleTracks    []Track
}

// PayloadParams are the inputs to a single, repeatable payload message.
type PayloadParams struct {
	TrackIndex    uint8
	ChunkNumber   uint64
	ChunkVersion  uint8
	VideoOffset   time.Duration
	WebvttPayload string
}

// ContainerPrefix writes a container-specific prefix (e.g. an SEI
// payloadType+payloadSize pair, or an AV1 MetadataType LEB128 value) for a
// body of the given length. It is invoked after the body length has been
// measured and before the body itself is written.
type ContainerPrefix func(s sink.Sink, bodyLen int) error

// durationToMillisSaturating converts d to milliseconds, truncating
// fractional milliseconds toward zero and clamping to [0, 65535].
func durationToMillisSaturating(d time.Duration) uint16 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > 65535 {
		return 65535
	}
	return uint16(ms)
}

// durationToMillisExact converts d to milliseconds, truncating fractional
// milliseconds toward zero, and fails if the result does not fit in a
// uint16.
func durationToMillisExact(d time.Duration) (uint16, error) {
	ms := d.Milliseconds()
	if ms < 0 || ms > 65535 {
		return 0, fmt.Errorf("%w: video_offset %dms exceeds u16 range", webvtterr.ErrInvalidInput, ms)
	}
	return uint16(ms), nil
}

func encodeHeaderBody(dst []byte, p HeaderParams) ([]byte, error) {
	dst = append(dst, PayloadGUID[:]...)
	dst = append(dst, byte(messageTypeHeader))
	dst = binary.BigEndian.AppendUint16(dst, durationToMillisSaturating(p.MaxLatencyToVideo))
	dst = append(dst, p.SendFrequencyHz)
	if len(p.SubtitleTracks) > 255 {
		return nil, fmt.Errorf("%w: more than 255 subtitle tracks", webvtterr.ErrInvalidInput)
	}
	dst = append(dst, byte(len(p.SubtitleTracks)))
	var err error
	for _, tr := range p.SubtitleTracks {
		dst, err = tr.encode(dst)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func encodePayloadBody(dst []byte, p PayloadParams) ([]byte, error) {
	if containsNUL(p.WebvttPayload) {
		return nil, fmt.Errorf("%w: webvtt_payload contains a NUL byte", webvtterr.ErrInvalidInput)
	}
	offsetMs, err := durationToMillisExact(p.VideoOffset)
	if err != nil {
		return nil, err
	}

	dst = append(dst, PayloadGUID[:]...)
	dst = append(dst, p.TrackIndex)
	dst = binary.BigEndian.AppendUint64(dst, p.ChunkNumber)
	dst = append(dst, p.ChunkVersion)
	dst = binary.BigEndian.AppendUint16(dst, offsetMs)
	dst = append(dst, p.WebvttPayload...)
	return dst, nil
}

func containsNUL(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return true
		}
	}
	return false
}

// WriteHeader measures the header body, invokes prefix with its length,
// then writes the body to s.
func WriteHeader(s sink.Sink, p HeaderParams, prefix ContainerPrefix) error {
	body, err := encodeHeaderBody(nil, p)
	if err != nil {
		return err
	}
	if err := prefix(s, len(body)); err != nil {
		return err
	}
	_, err = s.Write(body)
	return err
}

// WritePayload measures the payload body, invokes prefix with its length,
// then writes the body to s.
func WritePayload(s sink.Sink, p PayloadParams, prefix ContainerPrefix) error {
	body, err := encodePayloadBody(nil, p)
	if err != nil {
		return err
	}
	if err := prefix(s, len(body)); err != nil {
		return err
	}
	_, err = s.Write(body)
	return err
}

// MeasurePayloadBody reports the number of bytes WritePayload would write
// for p's body, excluding whatever a container prefix would add. Callers
// use this to decide chunk budgets or AVCC length_size before committing
// any bytes to a real sink.
func MeasurePayloadBody(p PayloadParams) (int, error) {
	var c sink.Counting
	if err := WritePayload(&c, p, noopPrefix); err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// MeasureHeaderBody reports the number of bytes WriteHeader would write
// for p's body, excluding whatever a container prefix would add.
func MeasureHeaderBody(p HeaderParams) (int, error) {
	var c sink.Counting
	if err := WriteHeader(&c, p, noopPrefix); err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func noopPrefix(sink.Sink, int) error { return nil }

// ChunkText splits text into one or more PayloadParams sharing chunkNumber,
// each WebvttPayload piece at most maxBytes long and split only on UTF-8
// rune boundaries. ChunkVersion increments starting at 0. It does not set
// TrackIndex or VideoOffset; the caller fills those in on the returned
// messages.
func ChunkText(chunkNumber uint64, text string, maxBytes int) ([]PayloadParams, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("%w: maxBytes must be positive", webvtterr.ErrInvalidInput)
	}
	if text == "" {
		return []PayloadParams{{ChunkNumber: chunkNumber, WebvttPayload: ""}}, nil
	}

	var out []PayloadParams
	version := uint8(0)
	for len(text) > 0 {
		end := len(text)
		if end > maxBytes {
			end = maxBytes
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == 0 {
				return nil, fmt.Errorf("%w: maxBytes too small to hold one rune", webvtterr.ErrInvalidInput)
			}
		}
		out = append(out, PayloadParams{
			ChunkNumber:   chunkNumber,
			ChunkVersion:  version,
			WebvttPayload: text[:end],
		})
		text = text[end:]
		version++
	}
	return out, nil
}
