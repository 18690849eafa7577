// ABOUTME: Audio output package for playing the received stream
// ABOUTME: Provides pull-based Output backends for oto, malgo, PortAudio and a null sink
// Package output provides audio playback backends.
//
// Every backend is pull-based: the device asks for N frames and the backend
// ticks its Source (normally the jitter buffer) for exactly N frames.
//
// Example:
//
//	out := output.NewMalgo(buf)
//	err := out.Open(48000, 2)
//	defer out.Close()
package output
