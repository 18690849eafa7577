// Package listener connects to the radio relay and feeds a jitter buffer.
//
// Run dials the relay, clears the buffer on every connection, ingests each
// binary message, and reconnects after a delay when the connection drops.
// The output device pulls render ticks from Buffer().
package listener
