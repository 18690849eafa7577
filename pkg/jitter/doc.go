// Package jitter implements the adaptive jitter buffer that sits between the
// network and the audio device on the listening side.
//
// Chunks of interleaved Int16 PCM arrive at irregular intervals via Ingest.
// The audio device pulls fixed-size ticks via Tick. The buffer emits silence
// while Buffering, switches to Playing once the target fill is reached and
// falls back to Buffering when it runs dry. Underruns fade out the last
// emitted frame rather than cutting to zero.
//
// Example:
//
//	buf, err := jitter.New(jitter.DefaultConfig(48000))
//	if err != nil {
//		return err
//	}
//
//	// network goroutine
//	buf.Ingest(chunk)
//
//	// audio callback
//	buf.Tick(frames)
package jitter
