// Package h264 encodes H.264 (AVC) NAL unit headers and carries the NAL
// unit type constants this module needs to validate nal_ref_idc
// cross-constraints.
//
// Grounded on the NALType* constants and bit layout in
// internal/demux/h264.go, inverted from parsing to encoding.
package h264

import (
	"fmt"

	"github.com/zsiec/webvttmux/webvtterr"
)

// NAL unit types as defined in ITU-T H.264 Table 7-1, the subset this
// module's validation cross-constraints reference.
const (
	NALTypeSlice         = 1
	NALTypeIDR           = 5
	NALTypeSEI           = 6
	NALTypeSPS           = 7
	NALTypePPS           = 8
	NALTypeAUD           = 9
	NALTypeEndOfSequence = 10
	NALTypeEndOfStream   = 11
	NALTypeFillerData    = 12
)

// zeroRefIdcRequired holds the NAL unit types for which nal_ref_idc must
// be zero (SEI, AUD, end-of-sequence, end-of-stream, filler data).
var zeroRefIdcRequired = map[int]bool{
	NALTypeSEI:           true,
	NALTypeAUD:           true,
	NALTypeEndOfSequence: true,
	NALTypeEndOfStream:   true,
	NALTypeFillerData:    true,
}

// Header is a one-byte H.264 NAL unit header.
type Header struct {
	NalUnitType int
	NalRefIdc   int
}

// New validates and constructs a Header from a NAL unit type and
// nal_ref_idc, enforcing the cross-constraints from the carriage
// convention: SEI/AUD/end-of-sequence/end-of-stream/filler data require
// ref_idc == 0; IDR slices require ref_idc != 0.
func New(nalUnitType, nalRefIdc int) (Header, error) {
	if nalRefIdc < 0 || nalRefIdc > 3 {
		return Header{}, fmt.Errorf("%w: %d", webvtterr.ErrNalRefIdcOutOfRange, nalRefIdc)
	}
	if nalUnitType < 1 || nalUnitType > 31 {
		return Header{}, fmt.Errorf("%w: %d", webvtterr.ErrNalUnitTypeOutOfRange, nalUnitType)
	}
	if zeroRefIdcRequired[nalUnitType] && nalRefIdc != 0 {
		return Header{}, &webvtterr.InvalidNalRefIdcForNalUnitType{NalUnitType: nalUnitType, NalRefIdc: nalRefIdc}
	}
	if nalUnitType == NALTypeIDR && nalRefIdc == 0 {
		return Header{}, &webvtterr.InvalidNalRefIdcForNalUnitType{NalUnitType: nalUnitType, NalRefIdc: nalRefIdc}
	}
	return Header{NalUnitType: nalUnitType, NalRefIdc: nalRefIdc}, nil
}

// Encode returns the one-byte wire encoding: forbidden_zero_bit(1)=0,
// nal_ref_idc(2), nal_unit_type(5).
func (h Header) Encode() []byte {
	b := byte(h.NalRefIdc&0x03)<<5 | byte(h.NalUnitType&0x1F)
	return []byte{b}
}
