// ABOUTME: WAV source backed by go-audio/wav
// ABOUTME: Decodes PCM WAV files of any bit depth to stereo frames
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// WAV reads from a PCM WAV file
type WAV struct {
	file       *os.File
	decoder    *wav.Decoder
	buf        *goaudio.IntBuffer
	loop       bool
	sampleRate int
	channels   int
	scale      float32
	title      string
}

// NewWAV creates a new WAV audio source
func NewWAV(filePath string, loop bool) (*WAV, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", filePath)
	}
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to find WAV data chunk: %w", err)
	}

	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)
	bitDepth := int(decoder.BitDepth)
	if channels <= 0 || sampleRate <= 0 || bitDepth <= 0 {
		f.Close()
		return nil, fmt.Errorf("invalid WAV format: %dHz %dch %d-bit", sampleRate, channels, bitDepth)
	}

	return &WAV{
		file:    f,
		decoder: decoder,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		loop:       loop,
		sampleRate: sampleRate,
		channels:   channels,
		scale:      1.0 / float32(int64(1)<<(bitDepth-1)),
		title:      titleFromPath(filePath),
	}, nil
}

func (s *WAV) Read(frames []audio.Frame) (int, error) {
	read := 0
	rewound := false
	for read < len(frames) {
		want := (len(frames) - read) * s.channels
		if cap(s.buf.Data) < want {
			s.buf.Data = make([]int, want)
		}
		s.buf.Data = s.buf.Data[:want]

		n, err := s.decoder.PCMBuffer(s.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return read, fmt.Errorf("wav decode error: %w", err)
		}
		if n == 0 {
			// An empty data chunk must not spin forever when looping
			if !s.loop || rewound {
				return read, io.EOF
			}
			rewound = true
			// PCMBuffer forwards to the data chunk again after a rewind
			if err := s.decoder.Rewind(); err != nil {
				return read, fmt.Errorf("failed to rewind: %w", err)
			}
			continue
		}

		rewound = false
		for i := 0; i+s.channels <= n; i += s.channels {
			l := float32(s.buf.Data[i]) * s.scale
			r := l
			if s.channels > 1 {
				r = float32(s.buf.Data[i+1]) * s.scale
			}
			frames[read] = audio.Frame{L: l, R: r}
			read++
		}
	}

	return read, nil
}

func (s *WAV) SampleRate() int { return s.sampleRate }
func (s *WAV) Title() string   { return s.title }
func (s *WAV) Close() error    { return s.file.Close() }
