// ABOUTME: PCM audio encoder
// ABOUTME: Encodes frames to little-endian 16-bit interleaved PCM
package encode

import (
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// PCMEncoder encodes 16-bit PCM audio
type PCMEncoder struct {
	channels int
}

// NewPCM16 creates a new PCM encoder
func NewPCM16(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	channels := format.Channels
	if channels <= 0 {
		channels = audio.DefaultChannels
	}

	return &PCMEncoder{
		channels: channels,
	}, nil
}

// Encode converts frames to PCM bytes, clamping and scaling by 32767
func (e *PCMEncoder) Encode(frames []audio.Frame) ([]byte, error) {
	return audio.EncodePCM16(frames, e.channels), nil
}

// FrameSize accepts chunks of any length
func (e *PCMEncoder) FrameSize() int {
	return 0
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
