// Package h265 encodes H.265 (HEVC) NAL unit headers.
//
// Grounded on the HEVC NAL type constants and bit layout exercised by
// internal/demux/h265_test.go, inverted from parsing to encoding.
package h265

import (
	"fmt"

	"github.com/zsiec/webvttmux/webvtterr"
)

// A subset of HEVC NAL unit types relevant to this module.
const (
	NALTypeVPS       = 32
	NALTypeSPS       = 33
	NALTypePPS       = 34
	NALTypeAUD       = 35
	NALTypeSEIPrefix = 39
	NALTypeSEISuffix = 40
)

// Header is a two-byte H.265 NAL unit header.
type Header struct {
	NalUnitType   int
	NuhLayerId    int
	NuhTemporalId int
}

// New validates and constructs a Header. nuhLayerId must be in 0..=63 and
// nuhTemporalId in 0..=6 (the wire value nuh_temporal_id_plus1 is
// therefore always 1..=7, never zero).
func New(nalUnitType, nuhLayerId, nuhTemporalId int) (Header, error) {
	if nuhLayerId < 0 || nuhLayerId > 63 {
		return Header{}, fmt.Errorf("%w: %d", webvtterr.ErrNuhLayerIdOutOfRange, nuhLayerId)
	}
	if nuhTemporalId < 0 || nuhTemporalId > 6 {
		return Header{}, fmt.Errorf("%w: %d", webvtterr.ErrNuhTemporalIdOutOfRange, nuhTemporalId)
	}
	return Header{NalUnitType: nalUnitType, NuhLayerId: nuhLayerId, NuhTemporalId: nuhTemporalId}, nil
}

// Encode returns the two-byte wire encoding: forbidden_zero_bit(1)=0,
// nal_unit_type(6), nuh_layer_id(6), nuh_temporal_id_plus1(3).
func (h Header) Encode() []byte {
	b0 := byte(h.NalUnitType&0x3F) << 1
	b0 |= byte(h.NuhLayerId>>5) & 0x01
	b1 := byte(h.NuhLayerId&0x1F)<<3 | byte((h.NuhTemporalId+1)&0x07)
	return []byte{b0, b1}
}
