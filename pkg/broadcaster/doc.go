// Package broadcaster streams a local audio source to the radio relay.
//
// The broadcaster sends "clear" once so listeners drop stale audio, then
// sends one encoded chunk per message at the rate the audio plays.
package broadcaster
