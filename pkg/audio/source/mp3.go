// ABOUTME: MP3 sources backed by go-mp3
// ABOUTME: Reads local files (optionally looping) and HTTP streams
package source

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3 reads from an MP3 file. go-mp3 always decodes to 16-bit stereo.
type MP3 struct {
	file       *os.File
	decoder    *mp3.Decoder
	pcm        pcmReader
	loop       bool
	sampleRate int
	title      string
}

// NewMP3 creates a new MP3 audio source
func NewMP3(filePath string, loop bool) (*MP3, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &MP3{
		file:       f,
		decoder:    decoder,
		pcm:        pcmReader{r: decoder},
		loop:       loop,
		sampleRate: decoder.SampleRate(),
		title:      titleFromPath(filePath),
	}, nil
}

func (s *MP3) Read(frames []audio.Frame) (int, error) {
	n, err := s.pcm.read(frames)
	if !errors.Is(err, io.EOF) {
		return n, err
	}
	if !s.loop {
		return n, io.EOF
	}

	// Loop the audio - seek back to start
	if _, seekErr := s.file.Seek(0, io.SeekStart); seekErr != nil {
		return n, fmt.Errorf("failed to seek to start: %w", seekErr)
	}
	decoder, decErr := mp3.NewDecoder(s.file)
	if decErr != nil {
		return n, fmt.Errorf("failed to create new decoder: %w", decErr)
	}
	s.decoder = decoder
	s.pcm.r = decoder

	return n, nil
}

func (s *MP3) SampleRate() int { return s.sampleRate }
func (s *MP3) Title() string   { return s.title }
func (s *MP3) Close() error    { return s.file.Close() }

// HTTPMP3 streams MP3 from an HTTP URL
type HTTPMP3 struct {
	url        string
	response   *http.Response
	pcm        pcmReader
	sampleRate int
}

// NewHTTPMP3 creates a new HTTP MP3 streaming source
func NewHTTPMP3(url string) (*HTTPMP3, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	decoder, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}

	return &HTTPMP3{
		url:        url,
		response:   resp,
		pcm:        pcmReader{r: decoder},
		sampleRate: decoder.SampleRate(),
	}, nil
}

// Read never loops; a live stream ends on EOF
func (s *HTTPMP3) Read(frames []audio.Frame) (int, error) {
	return s.pcm.read(frames)
}

func (s *HTTPMP3) SampleRate() int { return s.sampleRate }
func (s *HTTPMP3) Title() string   { return s.url }
func (s *HTTPMP3) Close() error {
	if s.response != nil {
		return s.response.Body.Close()
	}
	return nil
}
