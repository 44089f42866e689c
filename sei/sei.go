// Package sei encodes H.26x Supplemental Enhancement Information message
// headers: payloadType and payloadSize, each as a run of 0xFF bytes
// followed by a final byte holding the remainder mod 255.
//
// Grounded on tsutil.EncodeSEIMessage's 0xFF-run encoding.
package sei

import "github.com/zsiec/webvttmux/sink"

// UserDataUnregistered is the SEI payloadType used for WebVTT-in-video
// carriage.
const UserDataUnregistered = 5

// AppendValue appends the 0xFF-run encoding of v (a payloadType or
// payloadSize) to dst.
func AppendValue(dst []byte, v int) []byte {
	for v >= 255 {
		dst = append(dst, 0xFF)
		v -= 255
	}
	return append(dst, byte(v))
}

// WriteHeader writes the payloadType and payloadSize fields for an SEI
// message to s.
func WriteHeader(s sink.Sink, payloadType, payloadSize int) error {
	var buf []byte
	buf = AppendValue(buf, payloadType)
	buf = AppendValue(buf, payloadSize)
	_, err := s.Write(buf)
	return err
}
