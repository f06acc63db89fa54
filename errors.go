package gelf

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageTooLarge is returned when a compressed message needs more than
	// maxChunksCount chunks. Nothing is sent for the message.
	ErrMessageTooLarge = errors.New("gelf: message exceeds the maximum chunk count")

	// ErrTransportClosed is returned for every send attempted after the
	// transport (or the Client owning it) was closed.
	ErrTransportClosed = errors.New("gelf: transport closed")

	// ErrNoEndpoints is returned when a Client or EndpointSelector is created
	// without any collector endpoints.
	ErrNoEndpoints = errors.New("gelf: at least one endpoint is required")

	// ErrQueueFull is returned by asynchronous Clients with DropIfQueueFull set
	// when the send queue cannot take another message.
	ErrQueueFull = errors.New("gelf: send queue full, message dropped")
)

// SerializationError reports a failure to render a message, or a value
// inside it, as JSON.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("gelf: failed to serialize message: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// CompressionError reports a failure of the compression writer.
type CompressionError struct {
	Type CompressType
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("gelf: failed to compress message (%s): %v", e.Type, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// SocketSendError reports a datagram write that failed at the socket. Chunk is
// the zero-based index of the failed datagram within its message.
type SocketSendError struct {
	Endpoint Endpoint
	Chunk    int
	Err      error
}

func (e *SocketSendError) Error() string {
	return fmt.Sprintf("gelf: failed to send datagram %d to %s: %v", e.Chunk, e.Endpoint, e.Err)
}

func (e *SocketSendError) Unwrap() error { return e.Err }

// StackParseWarning describes a stack trace whose first line did not carry a
// "(file:line)" fragment. It is logged in verbose mode and never returned.
type StackParseWarning struct {
	Line string
}

func (w *StackParseWarning) Error() string {
	return fmt.Sprintf("gelf: no file:line fragment in stack line %q", w.Line)
}
