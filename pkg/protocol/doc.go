// ABOUTME: Radio wire protocol package
// ABOUTME: Defines control messages, the health document and the WebSocket client
// Package protocol implements the radio wire protocol.
//
// Binary WebSocket messages carry audio chunks (interleaved Int16 PCM by
// default). Text messages carry controls: "ping", "pong" and "clear".
//
// Example:
//
//	client, err := protocol.Dial(ctx, protocol.Config{ServerURL: "localhost:10000"})
//	err = client.SendControl(protocol.ControlPing)
package protocol
