// ABOUTME: Interleaved Int16 PCM <-> Frame conversion
// ABOUTME: Shared by the jitter buffer ingest path and the PCM codecs
package audio

import "encoding/binary"

// AppendPCM16 converts little-endian interleaved Int16 PCM to frames and
// appends them to dst. Mono input is duplicated to both channels; for more
// than two channels only the first two are kept. A trailing partial frame is
// not converted; its size in bytes is returned as dropped.
func AppendPCM16(dst []Frame, data []byte, channels int) ([]Frame, int) {
	if channels <= 0 {
		channels = DefaultChannels
	}
	frameBytes := channels * BytesPerSample
	n := len(data) / frameBytes
	dropped := len(data) - n*frameBytes

	for i := 0; i < n; i++ {
		off := i * frameBytes
		l := Int16ToFloat(int16(binary.LittleEndian.Uint16(data[off:])))
		r := l
		if channels > 1 {
			r = Int16ToFloat(int16(binary.LittleEndian.Uint16(data[off+2:])))
		}
		dst = append(dst, Frame{L: l, R: r})
	}

	return dst, dropped
}

// PutPCM16 writes frames as little-endian interleaved Int16 into out, which
// must hold len(frames)*channels*2 bytes. Mono output averages the channels.
// Returns the number of bytes written.
func PutPCM16(out []byte, frames []Frame, channels int) int {
	if channels <= 0 {
		channels = DefaultChannels
	}
	off := 0
	for _, f := range frames {
		if channels == 1 {
			binary.LittleEndian.PutUint16(out[off:], uint16(FloatToInt16((f.L+f.R)/2)))
			off += 2
			continue
		}
		binary.LittleEndian.PutUint16(out[off:], uint16(FloatToInt16(f.L)))
		binary.LittleEndian.PutUint16(out[off+2:], uint16(FloatToInt16(f.R)))
		off += 4
		// Extra channels are written silent
		for ch := 2; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(out[off:], 0)
			off += 2
		}
	}
	return off
}

// EncodePCM16 allocates and returns frames as interleaved Int16 bytes
func EncodePCM16(frames []Frame, channels int) []byte {
	if channels <= 0 {
		channels = DefaultChannels
	}
	out := make([]byte, len(frames)*channels*BytesPerSample)
	PutPCM16(out, frames, channels)
	return out
}
