//go:build !portaudio

// ABOUTME: Capture stub when PortAudio is not available
// ABOUTME: Provides compile-time placeholder when built without the portaudio tag
package source

import "errors"

// ErrCaptureDisabled is returned when the binary was built without PortAudio
var ErrCaptureDisabled = errors.New("live capture not enabled (build with -tags portaudio)")

// NewCapture reports that capture is unavailable
func NewCapture(sampleRate, channels int) (Source, error) {
	return nil, ErrCaptureDisabled
}
