package gelf

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Used to control GELF chunking. Should be less than (MTU - len(UDP
// header)).
const (
	DefaultBufferSize = 1420
	chunkedHeaderLen  = 12
	// maxChunksCount is limited by the protocol to a maximum of 128
	// https://docs.graylog.org/docs/gelf#gelf-via-udp
	maxChunksCount = 128
	messageIDLen   = 8
)

var magicChunked = []byte{0x1e, 0x0f}

// ChunkHeader is the decoded 12 byte header of a GELF chunk.
type ChunkHeader struct {
	ID    [messageIDLen]byte
	Seq   uint8
	Count uint8
}

// ChunkEncoder turns compressed payloads into the datagrams that carry them.
type ChunkEncoder struct {
	// BufferSize is the maximum datagram size. Payloads up to BufferSize bytes
	// are sent as a single datagram, larger ones in chunks of BufferSize bytes
	// including the chunk header. It must be larger than the header.
	BufferSize int

	// Rand provides the message ids of chunked messages. The default is
	// crypto/rand.Reader.
	Rand io.Reader
}

// Encode returns the datagrams for payload, in sequence order. A payload that
// fits into one datagram is returned as is, without a chunk header. Payloads
// needing more than 128 chunks fail with ErrMessageTooLarge.
func (e *ChunkEncoder) Encode(payload []byte) ([][]byte, error) {
	if e.BufferSize <= chunkedHeaderLen {
		return nil, fmt.Errorf("gelf: buffer size %d must exceed the %d byte chunk header", e.BufferSize, chunkedHeaderLen)
	}

	if len(payload) <= e.BufferSize {
		return [][]byte{payload}, nil
	}

	dataLen := e.BufferSize - chunkedHeaderLen
	count := numChunks(len(payload), dataLen)
	if count > maxChunksCount {
		return nil, fmt.Errorf("%w: %d bytes need %d chunks of %d bytes (max %d)",
			ErrMessageTooLarge, len(payload), count, dataLen, maxChunksCount)
	}

	r := e.Rand
	if r == nil {
		r = rand.Reader
	}
	var id [messageIDLen]byte
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, fmt.Errorf("gelf: failed to generate chunked message id: %w", err)
	}

	// one backing array for every frame of the message
	backing := make([]byte, len(payload)+count*chunkedHeaderLen)
	frames := make([][]byte, count)
	for i := 0; i < count; i++ {
		start := i * dataLen
		stop := min(start+dataLen, len(payload))

		frame := backing[:chunkedHeaderLen+stop-start]
		backing = backing[len(frame):]

		copy(frame, magicChunked)
		copy(frame[2:], id[:])
		frame[10] = byte(i)
		frame[11] = byte(count)
		copy(frame[chunkedHeaderLen:], payload[start:stop])

		frames[i] = frame
	}

	return frames, nil
}

// numChunks returns the number of GELF chunks necessary to transmit n bytes
// with dataLen bytes of payload per chunk.
func numChunks(n, dataLen int) int {
	return (n + dataLen - 1) / dataLen
}

// ParseChunk decodes a chunked datagram into its header and data. It fails
// for datagrams that do not start with the chunk magic bytes.
func ParseChunk(b []byte) (ChunkHeader, []byte, error) {
	var h ChunkHeader
	if !IsChunk(b) {
		return h, nil, errors.New("gelf: datagram is not a GELF chunk")
	}
	copy(h.ID[:], b[2:10])
	h.Seq = b[10]
	h.Count = b[11]
	if h.Count == 0 || h.Count > maxChunksCount || h.Seq >= h.Count {
		return h, nil, fmt.Errorf("gelf: invalid chunk sequence %d of %d", h.Seq, h.Count)
	}
	return h, b[chunkedHeaderLen:], nil
}

// IsChunk reports whether b carries a GELF chunk header.
func IsChunk(b []byte) bool {
	return len(b) >= chunkedHeaderLen && b[0] == magicChunked[0] && b[1] == magicChunked[1]
}
