// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Frame, Format and sample conversion functions
// Package audio provides the sample types shared by the radio.
//
// Audio travels on the wire as interleaved little-endian Int16 and lives in
// memory as float Frames in [-1.0, 1.0]. Decoding divides by 32768 and
// encoding multiplies by 32767, so a round trip stays within one LSB.
//
// Example:
//
//	f := audio.Frame{L: audio.Int16ToFloat(l), R: audio.Int16ToFloat(r)}
//	out := audio.FloatToInt16(f.L)
package audio
