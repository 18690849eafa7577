// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used by the broadcaster to bring sources to the stream rate
package resample

import "github.com/fmradio/fmradio-go/pkg/audio"

// Resampler performs linear interpolation to convert between sample rates.
// It keeps the last input frame so consecutive chunks join without a gap.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
	position   float64
	last       audio.Frame
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Resample converts input frames to the output rate and appends them to dst
func (r *Resampler) Resample(dst, input []audio.Frame) []audio.Frame {
	if len(input) == 0 {
		return dst
	}
	if r.Passthrough() {
		return append(dst, input...)
	}

	// Position 0 refers to the carried-over frame from the previous chunk
	if !r.primed {
		r.last = input[0]
		r.primed = true
	}

	at := func(i int) audio.Frame {
		if i == 0 {
			return r.last
		}
		return input[i-1]
	}

	for {
		idx := int(r.position)
		if idx+1 > len(input) {
			break
		}

		frac := float32(r.position - float64(idx))
		a, b := at(idx), at(idx+1)
		dst = append(dst, audio.Frame{
			L: a.L*(1-frac) + b.L*frac,
			R: a.R*(1-frac) + b.R*frac,
		})
		r.position += r.ratio
	}

	// Rebase on the last input frame, keeping the fractional part
	r.position -= float64(len(input))
	r.last = input[len(input)-1]

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.last = audio.Silence
	r.primed = false
}

// OutputFramesNeeded estimates how many output frames inputFrames will produce
func (r *Resampler) OutputFramesNeeded(inputFrames int) int {
	return int(float64(inputFrames) / r.ratio)
}

// InputFramesNeeded estimates how many input frames produce outputFrames
func (r *Resampler) InputFramesNeeded(outputFrames int) int {
	return int(float64(outputFrames) * r.ratio)
}
