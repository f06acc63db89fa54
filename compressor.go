package gelf

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// CompressType selects the payload compression. GELF collectors detect zlib
// and gzip payloads by their magic bytes and accept uncompressed JSON.
type CompressType int

const (
	CompressZlib CompressType = iota
	CompressGzip
	CompressNone
)

func (t CompressType) String() string {
	switch t {
	case CompressZlib:
		return "zlib"
	case CompressGzip:
		return "gzip"
	case CompressNone:
		return "none"
	}
	return "unknown"
}

const (
	minCompressionLevel     = -2 // huffman only
	maxCompressionLevel     = 9
	defaultCompressionLevel = -1
	defaultBufferCap        = 1024
	maxPooledBufferCap      = 64 << 10
)

type compressWriter interface {
	io.WriteCloser
	Reset(io.Writer)
}

// Compressor serializes Messages and compresses them. Writers and buffers are
// pooled, so a Compressor should be shared by every send of a Client.
type Compressor struct {
	typ     CompressType
	level   int
	writers sync.Pool
	bufs    sync.Pool
}

// NewCompressor returns a Compressor for the given type and compression
// level. Levels outside [-2, 9] fall back to the default level.
func NewCompressor(typ CompressType, level int) *Compressor {
	if level < minCompressionLevel || level > maxCompressionLevel {
		level = defaultCompressionLevel
	}
	c := &Compressor{typ: typ, level: level}
	c.bufs.New = func() any {
		return bytes.NewBuffer(make([]byte, 0, defaultBufferCap))
	}
	return c
}

// Type returns the compression type.
func (c *Compressor) Type() CompressType { return c.typ }

// Compress renders m as JSON and compresses it. It returns a
// *SerializationError or a *CompressionError on failure.
func (c *Compressor) Compress(m *Message) ([]byte, error) {
	js, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}

	if c.typ == CompressNone {
		return js, nil
	}

	buf := c.bufs.Get().(*bytes.Buffer)
	defer c.putBuffer(buf)

	w, err := c.writer(buf)
	if err != nil {
		return nil, &CompressionError{Type: c.typ, Err: err}
	}

	if _, err = w.Write(js); err != nil {
		return nil, &CompressionError{Type: c.typ, Err: err}
	}
	if err = w.Close(); err != nil {
		return nil, &CompressionError{Type: c.typ, Err: err}
	}
	c.writers.Put(w)

	return bytes.Clone(buf.Bytes()), nil
}

func (c *Compressor) writer(dst io.Writer) (compressWriter, error) {
	if w, ok := c.writers.Get().(compressWriter); ok {
		w.Reset(dst)
		return w, nil
	}

	switch c.typ {
	case CompressGzip:
		return gzip.NewWriterLevel(dst, c.level)
	default:
		return zlib.NewWriterLevel(dst, c.level)
	}
}

func (c *Compressor) putBuffer(buf *bytes.Buffer) {
	// drop if the buffer got too large
	if buf.Cap() > maxPooledBufferCap {
		return
	}
	buf.Reset()
	c.bufs.Put(buf)
}
