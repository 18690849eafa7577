// ABOUTME: Audio decoder package for the radio wire codecs
// ABOUTME: Provides Decoder interface and implementations for PCM16 and Opus
// Package decode turns WebSocket audio messages into stereo frames.
//
// Supports: 16-bit interleaved PCM (the browser format) and raw Opus packets.
//
// Example:
//
//	decoder, err := decode.New(format)
//	frames, err := decoder.Decode(message)
package decode
