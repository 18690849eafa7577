// ABOUTME: FLAC source backed by mewkiz/flac
// ABOUTME: Decodes any bit depth to stereo frames, optionally looping
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// FLAC reads from a FLAC file
type FLAC struct {
	file       *os.File
	stream     *flac.Stream
	loop       bool
	sampleRate int
	channels   int
	scale      float32
	title      string

	// decoded frames not yet returned
	pending []audio.Frame
}

// NewFLAC creates a new FLAC audio source
func NewFLAC(filePath string, loop bool) (*FLAC, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLAC{
		file:       f,
		stream:     stream,
		loop:       loop,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		scale:      1.0 / float32(int64(1)<<(info.BitsPerSample-1)),
		title:      titleFromPath(filePath),
	}, nil
}

func (s *FLAC) Read(frames []audio.Frame) (int, error) {
	read := 0
	for read < len(frames) {
		if len(s.pending) > 0 {
			n := copy(frames[read:], s.pending)
			s.pending = s.pending[n:]
			read += n
			continue
		}

		fr, err := s.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			if !s.loop {
				return read, io.EOF
			}
			if err := s.rewind(); err != nil {
				return read, err
			}
			continue
		}
		if err != nil {
			return read, fmt.Errorf("flac decode error: %w", err)
		}

		s.pending = s.convert(fr)
	}

	return read, nil
}

// convert turns one FLAC frame into stereo frames
func (s *FLAC) convert(fr *frame.Frame) []audio.Frame {
	out := make([]audio.Frame, fr.BlockSize)
	for i := range out {
		l := float32(fr.Subframes[0].Samples[i]) * s.scale
		r := l
		if s.channels > 1 {
			r = float32(fr.Subframes[1].Samples[i]) * s.scale
		}
		out[i] = audio.Frame{L: l, R: r}
	}
	return out
}

func (s *FLAC) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	s.stream = stream
	return nil
}

func (s *FLAC) SampleRate() int { return s.sampleRate }
func (s *FLAC) Title() string   { return s.title }
func (s *FLAC) Close() error    { return s.file.Close() }
