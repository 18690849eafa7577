// ABOUTME: Audio encoder package for the radio wire codecs
// ABOUTME: Provides Encoder interface and implementations for PCM16 and Opus
// Package encode turns stereo frames into WebSocket audio messages.
//
// Supports: 16-bit interleaved PCM and raw 20ms Opus packets.
//
// Example:
//
//	encoder, err := encode.New(format)
//	data, err := encoder.Encode(frames)
package encode
