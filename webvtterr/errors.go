// Package webvtterr defines the sentinel and structured error types shared
// by every writer package in this module. Callers distinguish failure
// modes with errors.Is / errors.As rather than string matching.
package webvtterr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Most are wrapped with call-site context via fmt.Errorf's
// %w verb, so errors.Is still matches the sentinel after wrapping;
// ErrInvalidState is returned as is.
var (
	ErrInvalidInput            = errors.New("webvtt: invalid input")
	ErrInvalidLength           = errors.New("avcc: invalid length_size")
	ErrNalRefIdcOutOfRange     = errors.New("h264: nal_ref_idc out of range")
	ErrNalUnitTypeOutOfRange   = errors.New("h264: nal_unit_type out of range")
	ErrNuhLayerIdOutOfRange    = errors.New("h265: nuh_layer_id out of range")
	ErrNuhTemporalIdOutOfRange = errors.New("h265: nuh_temporal_id out of range")
	ErrOBUExtTemporalIdRange   = errors.New("av1: obu extension temporal_id out of range")
	ErrOBUExtSpatialIdRange    = errors.New("av1: obu extension spatial_id out of range")
	ErrInvalidState            = errors.New("writer: operation invalid in current phase")
)

// MaxNalUnitSizeExceeded reports that buffering one more write onto an
// AVCC NAL unit would overflow the configured length field width.
type MaxNalUnitSizeExceeded struct {
	Max      int
	Required int
}

func (e *MaxNalUnitSizeExceeded) Error() string {
	return fmt.Sprintf("avcc: nal unit size %d exceeds max %d for configured length_size", e.Required, e.Max)
}

// InvalidNalRefIdcForNalUnitType reports an H.264 nal_ref_idc value that
// violates the cross-constraint for a given nal_unit_type (SEI/AUD/EOS/
// EOB/filler require ref_idc == 0; IDR requires ref_idc != 0).
type InvalidNalRefIdcForNalUnitType struct {
	NalUnitType int
	NalRefIdc   int
}

func (e *InvalidNalRefIdcForNalUnitType) Error() string {
	return fmt.Sprintf("h264: nal_ref_idc %d invalid for nal_unit_type %d", e.NalRefIdc, e.NalUnitType)
}
