// ABOUTME: Audio output tests
// ABOUTME: Verifies the tick reader, the null output and backend selection
package output

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// rampSource emits frames with increasing left values and counts ticks
type rampSource struct {
	mu     sync.Mutex
	next   int
	frames int
}

func (s *rampSource) Tick(dst []audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range dst {
		v := float32(s.next) / 32767.0
		dst[i] = audio.Frame{L: v, R: -v}
		s.next++
	}
	s.frames += len(dst)
}

func (s *rampSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func TestBackendsImplementOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
	var _ Output = (*Malgo)(nil)
	var _ Output = (*PortAudio)(nil)
	var _ Output = (*Null)(nil)
}

func TestNewByName(t *testing.T) {
	src := &rampSource{}
	for _, name := range []string{"", "oto", "malgo", "portaudio", "null"} {
		out, ok := New(name, src)
		if !ok || out == nil {
			t.Errorf("expected backend for %q", name)
		}
	}

	if _, ok := New("alsa", src); ok {
		t.Error("expected unknown backend to be rejected")
	}
}

func TestTickReaderStereo(t *testing.T) {
	src := &rampSource{}
	r := NewTickReader(src, 2)

	p := make([]byte, 16)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 16 {
		t.Fatalf("expected 16 bytes, got %d", n)
	}

	for i := 0; i < 4; i++ {
		l := int16(binary.LittleEndian.Uint16(p[i*4:]))
		rr := int16(binary.LittleEndian.Uint16(p[i*4+2:]))
		if l != int16(i) || rr != -int16(i) {
			t.Errorf("frame %d: expected (%d, %d), got (%d, %d)", i, i, -i, l, rr)
		}
	}
	if src.count() != 4 {
		t.Errorf("expected exactly 4 frames ticked, got %d", src.count())
	}
}

func TestTickReaderPartialFrame(t *testing.T) {
	src := &rampSource{}
	r := NewTickReader(src, 2)

	// 6 bytes needs two frames; the last two bytes carry over
	p := make([]byte, 6)
	if n, _ := r.Read(p); n != 6 {
		t.Fatalf("expected 6 bytes, got %d", n)
	}

	rest := make([]byte, 8)
	n, _ := r.Read(rest)
	if n != 2 {
		t.Fatalf("expected 2 carried bytes, got %d", n)
	}
	if got := int16(binary.LittleEndian.Uint16(rest)); got != -1 {
		t.Errorf("expected right sample of frame 1 (-1), got %d", got)
	}

	n, _ = r.Read(rest)
	if n != 8 {
		t.Fatalf("expected fresh tick of 8 bytes, got %d", n)
	}
	if got := int16(binary.LittleEndian.Uint16(rest)); got != 2 {
		t.Errorf("expected frame 2 after carry-over, got %d", got)
	}
}

func TestTickReaderMono(t *testing.T) {
	src := &rampSource{}
	r := NewTickReader(src, 1)

	p := make([]byte, 4)
	if n, _ := r.Read(p); n != 4 {
		t.Fatalf("expected 4 bytes, got %d", n)
	}
	// Mono averages L and R, which cancel out in the ramp source
	if binary.LittleEndian.Uint16(p) != 0 || binary.LittleEndian.Uint16(p[2:]) != 0 {
		t.Errorf("expected averaged silence, got %v", p)
	}
}

func TestTickReaderClosed(t *testing.T) {
	r := NewTickReader(&rampSource{}, 2)
	r.Close()

	if _, err := r.Read(make([]byte, 4)); err == nil {
		t.Error("expected error after close")
	}
}

func TestNullDrivesSource(t *testing.T) {
	src := &rampSource{}
	out := NewNull(src)

	if err := out.Open(48000, 2); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for src.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := out.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if src.count() == 0 {
		t.Fatal("expected null output to tick the source")
	}
	if src.count()%480 != 0 {
		t.Errorf("expected 10ms ticks of 480 frames, got %d frames", src.count())
	}

	after := src.count()
	time.Sleep(30 * time.Millisecond)
	if src.count() != after {
		t.Error("source ticked after close")
	}
}

func TestPortAudioStub(t *testing.T) {
	out := NewPortAudio(&rampSource{})
	if out == nil {
		t.Fatal("NewPortAudio returned nil")
	}
}
