// Package leb128 implements the unsigned LEB128 variable-length integer
// encoding used by AV1 for obu_size and metadata_type fields: 7-bit groups,
// least-significant group first, with the high bit of each byte as the
// continuation flag.
package leb128

import "github.com/zsiec/webvttmux/sink"

// EncodedLen returns the number of bytes Append or Write would emit for v.
func EncodedLen(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// Append appends the LEB128 encoding of v to dst and returns the result.
func Append(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

// Write encodes v as LEB128 and writes it to s.
func Write(s sink.Sink, v uint64) error {
	var buf [10]byte
	n := 0
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf[n] = b | 0x80
			n++
			continue
		}
		buf[n] = b
		n++
		break
	}
	_, err := s.Write(buf[:n])
	return err
}

// Decode reads a LEB128-encoded value from the front of p, returning the
// value and the number of bytes consumed. It returns ok=false if p does not
// contain a complete, well-formed encoding.
func Decode(p []byte) (v uint64, n int, ok bool) {
	var shift uint
	for n = 0; n < len(p) && n < 10; n++ {
		b := p[n]
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, n + 1, true
		}
		shift += 7
	}
	return 0, 0, false
}
