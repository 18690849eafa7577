// ABOUTME: Opus audio decoder
// ABOUTME: Decodes raw Opus packets to frames
package decode

import (
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is the largest Opus frame (120ms at 48kHz) per channel
const maxOpusFrame = 5760

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm     []int16
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", format.Channels)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm:     make([]int16, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one Opus packet to frames
func (d *OpusDecoder) Decode(data []byte) ([]audio.Frame, error) {
	n, err := d.decoder.Decode(data, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	frames := make([]audio.Frame, n)
	for i := 0; i < n; i++ {
		if d.format.Channels == 1 {
			s := audio.Int16ToFloat(d.pcm[i])
			frames[i] = audio.Frame{L: s, R: s}
			continue
		}
		frames[i] = audio.Frame{
			L: audio.Int16ToFloat(d.pcm[i*2]),
			R: audio.Int16ToFloat(d.pcm[i*2+1]),
		}
	}
	return frames, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
