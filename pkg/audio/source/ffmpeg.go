// ABOUTME: ffmpeg-backed source for HLS and other streaming URLs
// ABOUTME: Runs ffmpeg as a subprocess producing 16-bit stereo PCM
package source

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// FFmpeg streams audio from any URL/format using ffmpeg
type FFmpeg struct {
	url        string
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	pcm        pcmReader
	sampleRate int
}

// NewFFmpeg starts ffmpeg decoding url to stereo PCM at sampleRate
func NewFFmpeg(url string, sampleRate int) (*FFmpeg, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-loglevel", "error",
		"-i", url,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "2",
		"-")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &FFmpeg{
		url:        url,
		cmd:        cmd,
		stdout:     stdout,
		pcm:        pcmReader{r: bufio.NewReader(stdout)},
		sampleRate: sampleRate,
	}, nil
}

func (s *FFmpeg) Read(frames []audio.Frame) (int, error) {
	return s.pcm.read(frames)
}

func (s *FFmpeg) SampleRate() int { return s.sampleRate }
func (s *FFmpeg) Title() string   { return s.url }
func (s *FFmpeg) Close() error {
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	return nil
}
