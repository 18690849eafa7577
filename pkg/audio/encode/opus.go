// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms blocks of frames to raw Opus packets
package encode

import (
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest packet the encoder will produce
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder    *opus.Encoder
	sampleRate int
	channels   int
	frameSize  int
	pcm        []int16
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", format.Channels)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	// Opus frame size depends on sample rate
	frameSize := format.SampleRate / 50 // 20ms frame

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: format.SampleRate,
		channels:   format.Channels,
		frameSize:  frameSize,
		pcm:        make([]int16, frameSize*format.Channels),
	}, nil
}

// Encode converts exactly FrameSize frames to one Opus packet
func (e *OpusEncoder) Encode(frames []audio.Frame) ([]byte, error) {
	if len(frames) != e.frameSize {
		return nil, fmt.Errorf("opus encoder needs %d frames, got %d", e.frameSize, len(frames))
	}

	for i, f := range frames {
		if e.channels == 1 {
			e.pcm[i] = audio.FloatToInt16((f.L + f.R) / 2)
			continue
		}
		e.pcm[i*2] = audio.FloatToInt16(f.L)
		e.pcm[i*2+1] = audio.FloatToInt16(f.R)
	}

	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.Encode(e.pcm, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	return data[:n], nil
}

// FrameSize returns the 20ms block size in frames
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
