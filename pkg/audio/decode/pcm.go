// ABOUTME: PCM audio decoder
// ABOUTME: Decodes little-endian 16-bit interleaved PCM to frames
package decode

import (
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// PCMDecoder decodes 16-bit PCM audio
type PCMDecoder struct {
	channels int
}

// NewPCM16 creates a new PCM decoder
func NewPCM16(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	channels := format.Channels
	if channels <= 0 {
		channels = audio.DefaultChannels
	}

	return &PCMDecoder{
		channels: channels,
	}, nil
}

// Decode converts PCM bytes to frames. A trailing partial frame is ignored.
func (d *PCMDecoder) Decode(data []byte) ([]audio.Frame, error) {
	frames, _ := audio.AppendPCM16(make([]audio.Frame, 0, len(data)/(d.channels*audio.BytesPerSample)), data, d.channels)
	return frames, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
