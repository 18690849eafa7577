// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts stereo frames between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling across chunk boundaries.
//
// Example:
//
//	r := resample.New(44100, 48000)
//	out = r.Resample(out[:0], chunk)
package resample
