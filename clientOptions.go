package gelf

import (
	"io"
	"os"
)

// ClientOptions are used to customize the GELF Client.
//
// # Invalid options are coerced
//
// NB: The struct pointer options approach is used to be consistent with the
// options used for the Handler, which uses the struct pointer approach to be
// consistent with the `HandlerOptions` used by log/slog.
type ClientOptions struct {

	// Endpoints are the collectors' GELF UDP inputs. Each message goes to one
	// endpoint, chosen round-robin. At least one is required.
	Endpoints []Endpoint

	// Hostname is sent as the GELF host of every message. The default is the
	// local host name.
	Hostname string

	// Facility is sent as the GELF facility of every message. The default is
	// "gelf-go".
	Facility string

	// BufferSize is the maximum size of a datagram. Larger payloads are split
	// into GELF chunks. Must be larger than the 12 byte chunk header. The
	// default, 1420, keeps datagrams below a typical link MTU.
	BufferSize int

	// CompressType selects payload compression. The default is zlib.
	CompressType CompressType

	// CompressionLevel is passed to the compressor, in [-2, 9]. 0 selects the
	// compressor's default level; use CompressNone to disable compression.
	CompressionLevel int

	// MaxOpenTries bounds the attempts to create the UDP socket on first use.
	// The default is 3.
	MaxOpenTries int

	// SendBufferSize sets SO_SNDBUF on the UDP socket, where supported. The
	// default, 0, keeps the system default.
	SendBufferSize int

	// Workers controls the number of goroutines running send pipelines. With
	// the default of 0, each log call runs its pipeline on the calling
	// goroutine and returns its outcome.
	Workers int

	// QueueDepth sets the maximum number of log calls that can be buffered for
	// the Workers before logging blocks. Only used when Workers > 0.
	QueueDepth int

	// DropIfQueueFull controls how log calls are handled when the queue is
	// full. The default is to block the caller until the queue can receive the
	// message. With this option enabled, overflow messages are dropped with
	// ErrQueueFull.
	DropIfQueueFull bool

	// Rand is the source of chunked message ids. The default is
	// crypto/rand.Reader.
	Rand io.Reader

	// Transport overrides the UDP transport; MaxOpenTries and SendBufferSize
	// are then ignored.
	Transport Transport

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const (
	defaultFacility = "gelf-go"
	defaultHostname = "localhost"
)

// DefaultClientOptions returns *ClientOptions with all default values, and no
// endpoints.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Hostname:         localHostname(),
		Facility:         defaultFacility,
		BufferSize:       DefaultBufferSize,
		CompressType:     CompressZlib,
		CompressionLevel: defaultCompressionLevel,
		MaxOpenTries:     defaultOpenTries,
	}
}

// resolve ensures that all options have valid values.
func (o *ClientOptions) resolve() {

	if len(o.Hostname) == 0 {
		o.Hostname = localHostname()
	}

	if len(o.Facility) == 0 {
		o.Facility = defaultFacility
	}

	// must leave room for data after the chunk header
	if o.BufferSize <= chunkedHeaderLen {
		o.BufferSize = DefaultBufferSize
	}

	if o.CompressType < CompressZlib || o.CompressType > CompressNone {
		o.CompressType = CompressZlib
	}

	if o.CompressionLevel == 0 || o.CompressionLevel < minCompressionLevel || o.CompressionLevel > maxCompressionLevel {
		o.CompressionLevel = defaultCompressionLevel
	}

	// must be positive
	if o.MaxOpenTries < 1 {
		o.MaxOpenTries = defaultOpenTries
	}

	if o.SendBufferSize < 0 {
		o.SendBufferSize = 0
	}

	if o.Workers < 0 {
		o.Workers = 0
	}

	if o.QueueDepth < 0 {
		o.QueueDepth = 0
	}
}

func localHostname() string {
	h, err := os.Hostname()
	if err != nil || len(h) == 0 {
		return defaultHostname
	}
	return h
}
