// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for the wire codecs a broadcaster can send
package encode

import (
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// Encoder encodes stereo frames into one wire message
type Encoder interface {
	// Encode converts frames to encoded audio data
	Encode(frames []audio.Frame) ([]byte, error)

	// FrameSize is the exact number of frames Encode expects, or 0 for any
	FrameSize() int

	// Close releases encoder resources
	Close() error
}

// New returns the encoder for format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm", "":
		format.Codec = "pcm"
		if format.BitDepth == 0 {
			format.BitDepth = audio.DefaultBitDepth
		}
		return NewPCM16(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
