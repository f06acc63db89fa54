package gelf

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testHost = "127.0.0.1"

// testCollector is a minimal GELF UDP input. It reassembles chunked messages,
// decompresses them and decodes the JSON documents.
type testCollector struct {
	conn      *net.UDPConn
	port      int
	messageCh chan map[string]any
	rawCh     chan []byte
	errCh     chan error
	chunks    map[[messageIDLen]byte][][]byte
	done      chan struct{}
}

func newTestCollector(t *testing.T) *testCollector {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(testHost), Port: 0})
	require.NoError(t, err)

	c := &testCollector{
		conn:      conn,
		port:      conn.LocalAddr().(*net.UDPAddr).Port,
		messageCh: make(chan map[string]any, 128),
		rawCh:     make(chan []byte, 1024),
		errCh:     make(chan error, 128),
		chunks:    map[[messageIDLen]byte][][]byte{},
		done:      make(chan struct{}),
	}
	go c.run()

	t.Cleanup(func() {
		c.conn.Close()
		<-c.done
	})
	return c
}

func (c *testCollector) endpoint() Endpoint {
	return Endpoint{Host: testHost, Port: c.port}
}

func (c *testCollector) run() {
	defer close(c.done)
	buf := make([]byte, 65536)
	for {
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		b := bytes.Clone(buf[:n])
		c.rawCh <- b

		payload, complete, err := c.reassemble(b)
		if err != nil {
			c.errCh <- err
			continue
		}
		if !complete {
			continue
		}

		m, err := decodePayload(payload)
		if err != nil {
			c.errCh <- err
			continue
		}
		c.messageCh <- m
	}
}

func (c *testCollector) reassemble(b []byte) ([]byte, bool, error) {
	if !IsChunk(b) {
		return b, true, nil
	}

	h, data, err := ParseChunk(b)
	if err != nil {
		return nil, false, err
	}
	parts, ok := c.chunks[h.ID]
	if !ok {
		parts = make([][]byte, h.Count)
		c.chunks[h.ID] = parts
	}
	if int(h.Count) != len(parts) {
		return nil, false, fmt.Errorf("chunk count changed within message: %d != %d", h.Count, len(parts))
	}
	parts[h.Seq] = data

	for _, p := range parts {
		if p == nil {
			return nil, false, nil
		}
	}
	delete(c.chunks, h.ID)
	return bytes.Join(parts, nil), true, nil
}

// next returns the next complete message, failing the test after a second.
func (c *testCollector) next(t *testing.T) map[string]any {
	t.Helper()

	timeout, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	select {
	case <-timeout.Done():
		t.Fatalf("no message was received in time")
	case err := <-c.errCh:
		t.Fatalf("collector failed to decode datagram: %v", err)
	case m := <-c.messageCh:
		return m
	}
	return nil
}

// decodePayload detects the compression by its magic bytes, like a collector.
func decodePayload(b []byte) (map[string]any, error) {
	var r io.Reader = bytes.NewReader(b)
	switch {
	case len(b) > 1 && b[0] == 0x1f && b[1] == 0x8b:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		r = gr
	case len(b) > 0 && b[0] == 0x78:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, err
		}
		r = zr
	}

	js, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, fmt.Errorf("failed to decode GELF document: %w", err)
	}
	return m, nil
}

// testSend is one datagram recorded by stubTransport.
type testSend struct {
	data     []byte
	endpoint Endpoint
}

// stubTransport records datagrams rather than send them. It implements the
// Transport interface.
type stubTransport struct {
	mu     sync.Mutex
	sends  []testSend
	calls  int
	failAt int // 1-based call that fails; 0 never fails
	closed bool
}

func (s *stubTransport) Send(b []byte, e Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrTransportClosed
	}
	s.calls++
	if s.calls == s.failAt {
		return &SocketSendError{Endpoint: e, Err: errors.New("network is unreachable")}
	}
	s.sends = append(s.sends, testSend{data: bytes.Clone(b), endpoint: e})
	return nil
}

func (s *stubTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubTransport) sent() []testSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]testSend(nil), s.sends...)
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fixedID is a deterministic message id source.
func fixedID() io.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89}, 64))
}

// incompressible returns n bytes that deflate cannot shrink much.
func incompressible(n int) []byte {
	b := make([]byte, n)
	x := uint32(2463534242)
	for i := range b {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		b[i] = byte(x)
	}
	return b
}

func assertHasSuffix(t *testing.T, str string, sfx string, msg string) {
	t.Helper()

	if !strings.HasSuffix(str, sfx) {
		t.Errorf("expected %s, got %s: %s", sfx, str, msg)
	}
}
