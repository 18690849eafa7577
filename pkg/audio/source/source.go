// ABOUTME: Audio source abstraction for the broadcaster
// ABOUTME: Sources deliver stereo frames from files, streams, devices or a test tone
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedFormat is returned by Open for unknown file extensions
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Source provides stereo frames at its native sample rate
type Source interface {
	// Read fills frames and returns how many were written. io.EOF marks the
	// end of a non-looping source.
	Read(frames []audio.Frame) (int, error)
	// SampleRate returns the native sample rate
	SampleRate() int
	// Title returns a display name for the source
	Title() string
	// Close closes the audio source
	Close() error
}

// Options control how Open builds a source
type Options struct {
	// Loop restarts file sources at EOF
	Loop bool
	// Logger for source events
	Logger logrus.FieldLogger
}

// Open creates a source from a file path or HTTP URL. An empty path
// returns the test tone; "capture" opens the default input device.
func Open(pathOrURL string, opts Options) (Source, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	logger := opts.Logger.WithField("source", pathOrURL)

	switch {
	case pathOrURL == "":
		return NewTestTone(DefaultToneFrequency, audio.DefaultSampleRate), nil
	case pathOrURL == "capture":
		return NewCapture(audio.DefaultSampleRate, audio.DefaultChannels)
	case strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://"):
		if strings.Contains(pathOrURL, ".m3u8") {
			logger.Info("Streaming from HLS URL via ffmpeg")
			return NewFFmpeg(pathOrURL, audio.DefaultSampleRate)
		}
		logger.Info("Streaming MP3 from HTTP URL")
		return NewHTTPMP3(pathOrURL)
	}

	if _, err := os.Stat(pathOrURL); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", pathOrURL)
	}

	ext := strings.ToLower(filepath.Ext(pathOrURL))
	var (
		src Source
		err error
	)
	switch ext {
	case ".mp3":
		src, err = NewMP3(pathOrURL, opts.Loop)
	case ".flac":
		src, err = NewFLAC(pathOrURL, opts.Loop)
	case ".wav":
		src, err = NewWAV(pathOrURL, opts.Loop)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .mp3, .flac, .wav)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	logger.WithField("sample_rate", src.SampleRate()).Infof("Loaded %s", src.Title())
	return src, nil
}

// titleFromPath uses the file name without extension as the title
func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// pcmReader converts a little-endian stereo Int16 byte stream to frames
type pcmReader struct {
	r   io.Reader
	buf []byte
}

func (p *pcmReader) read(frames []audio.Frame) (int, error) {
	need := len(frames) * 2 * audio.BytesPerSample
	if cap(p.buf) < need {
		p.buf = make([]byte, need)
	}
	buf := p.buf[:need]

	n, err := io.ReadFull(p.r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	out, _ := audio.AppendPCM16(frames[:0], buf[:n], 2)
	return len(out), err
}
