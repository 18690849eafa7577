// ABOUTME: Resampling wrapper around a source
// ABOUTME: Delivers frames at the stream rate regardless of the file's native rate
package source

import (
	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/fmradio/fmradio-go/pkg/audio/resample"
)

// Resampled wraps a Source and resamples to a target sample rate
type Resampled struct {
	source     Source
	resampler  *resample.Resampler
	targetRate int
	in         []audio.Frame
	out        []audio.Frame
}

// NewResampled returns src unchanged when it already runs at targetRate
func NewResampled(src Source, targetRate int) Source {
	if src.SampleRate() == targetRate {
		return src
	}
	return &Resampled{
		source:     src,
		resampler:  resample.New(src.SampleRate(), targetRate),
		targetRate: targetRate,
	}
}

// Read fills frames completely unless the underlying source ends
func (r *Resampled) Read(frames []audio.Frame) (int, error) {
	for len(r.out) < len(frames) {
		need := r.resampler.InputFramesNeeded(len(frames)-len(r.out)) + 1
		if cap(r.in) < need {
			r.in = make([]audio.Frame, need)
		}
		n, err := r.source.Read(r.in[:need])
		r.out = r.resampler.Resample(r.out, r.in[:n])
		if err != nil {
			copied := copy(frames, r.out)
			r.out = r.out[:copy(r.out, r.out[copied:])]
			return copied, err
		}
		if n == 0 {
			break
		}
	}

	copied := copy(frames, r.out)
	r.out = r.out[:copy(r.out, r.out[copied:])]
	return copied, nil
}

func (r *Resampled) SampleRate() int { return r.targetRate }
func (r *Resampled) Title() string   { return r.source.Title() }
func (r *Resampled) Close() error    { return r.source.Close() }
