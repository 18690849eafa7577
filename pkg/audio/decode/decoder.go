// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for the wire codecs a listener can receive
package decode

import (
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// Decoder decodes one wire message into stereo frames
type Decoder interface {
	// Decode converts an encoded message to frames
	Decode(data []byte) ([]audio.Frame, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder for format.Codec
func New(format audio.Format) (Decoder, error) {
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
