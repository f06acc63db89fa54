package gelf

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bitdabbler/backoff"
)

// Transport delivers datagrams to collector endpoints.
type Transport interface {
	// Send writes b as one datagram to e. It returns when the datagram was
	// handed to the network, or failed to be.
	Send(b []byte, e Endpoint) error

	// Close permanently stops the Transport. Sends after Close fail with
	// ErrTransportClosed. Close is idempotent.
	Close() error
}

type transportState int

const (
	stateUninitialized transportState = iota
	stateOpen
	stateClosed
)

func (s transportState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// UDPTransport sends datagrams from a single UDP socket, shared by every
// message and endpoint. The socket is created by the first Send, and destroyed
// by Close; a closed UDPTransport never reopens.
type UDPTransport struct {
	maxOpenTries   int
	sendBufferSize int
	verbose        bool

	mu    sync.RWMutex
	state transportState
	conn  net.PacketConn

	// openMu serializes socket creation. It is held across the open attempts
	// and their backoff, mu is not.
	openMu sync.Mutex
	listen func() (net.PacketConn, error)

	addrs sync.Map // Endpoint -> *net.UDPAddr
}

// UDPTransportOptions are used to customize the UDPTransport.
type UDPTransportOptions struct {
	// MaxOpenTries bounds the attempts to create the socket on first use.
	// Datagrams themselves are never retried. The default is 3.
	MaxOpenTries int

	// SendBufferSize sets SO_SNDBUF on the socket, where supported. 0 keeps
	// the system default.
	SendBufferSize int

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const defaultOpenTries = 3

// NewUDPTransport returns a UDPTransport in its uninitialized state. No
// socket is created until the first Send.
func NewUDPTransport(opts *UDPTransportOptions) *UDPTransport {
	if opts == nil {
		opts = &UDPTransportOptions{}
	}
	t := &UDPTransport{
		maxOpenTries:   opts.MaxOpenTries,
		sendBufferSize: max(opts.SendBufferSize, 0),
		verbose:        opts.Verbose,
	}
	if t.maxOpenTries < 1 {
		t.maxOpenTries = defaultOpenTries
	}
	t.listen = t.open
	return t
}

// Send writes b as one datagram to e, creating the socket if this is the first
// Send. It fails with ErrTransportClosed, without any network activity, once
// the transport is closed.
func (t *UDPTransport) Send(b []byte, e Endpoint) error {
	conn, err := t.socket()
	if err != nil {
		return err
	}

	addr, err := t.resolve(e)
	if err != nil {
		return &SocketSendError{Endpoint: e, Err: err}
	}

	if _, err = conn.WriteTo(b, addr); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrTransportClosed
		}
		return &SocketSendError{Endpoint: e, Err: err}
	}
	return nil
}

// Close closes the socket, if one was created, and moves the transport to its
// terminal closed state.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn := t.conn
	if err := t.transition(stateClosed, nil); err != nil {
		// already closed
		return nil
	}
	if conn == nil {
		return nil
	}

	t.debug("closing UDP socket %s", conn.LocalAddr())
	return conn.Close()
}

// socket returns the open socket, creating it on first use.
func (t *UDPTransport) socket() (net.PacketConn, error) {
	t.mu.RLock()
	state, conn := t.state, t.conn
	t.mu.RUnlock()

	switch state {
	case stateOpen:
		return conn, nil
	case stateClosed:
		return nil, ErrTransportClosed
	}

	t.openMu.Lock()
	defer t.openMu.Unlock()

	// another sender may have won the race to open
	t.mu.RLock()
	state, conn = t.state, t.conn
	t.mu.RUnlock()

	switch state {
	case stateOpen:
		return conn, nil
	case stateClosed:
		return nil, ErrTransportClosed
	}

	conn, err := t.tryOpen()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Close may have run while the socket was being created
	if err = t.transition(stateOpen, conn); err != nil {
		conn.Close()
		if t.state == stateClosed {
			return nil, ErrTransportClosed
		}
		return nil, err
	}
	return conn, nil
}

// transition is the only place the lifecycle state changes. The caller holds
// the write lock.
func (t *UDPTransport) transition(to transportState, conn net.PacketConn) error {
	from := t.state
	switch {
	case from == stateUninitialized && to == stateOpen:
		t.conn = conn
	case from != stateClosed && to == stateClosed:
		t.conn = nil
	default:
		return fmt.Errorf("gelf: invalid transport state transition: %s -> %s", from, to)
	}

	t.state = to
	t.debug("transport state: %s -> %s", from, to)
	return nil
}

func (t *UDPTransport) tryOpen() (net.PacketConn, error) {
	b, err := backoff.New(
		backoff.WithInitialDelay(0),
		backoff.WithExponentialLimit(time.Second),
	)
	if err != nil {
		return nil, err
	}

	i := 0
	for {
		i++
		conn, err := t.listen()
		if err == nil {
			t.debug("opened UDP socket %s", conn.LocalAddr())
			return conn, nil
		}

		InternalLogger().Printf("failed to open UDP socket on attempt %d: %v", i, err)

		if i >= t.maxOpenTries {
			return nil, fmt.Errorf("gelf: failed to open UDP socket; maxOpenTries reached: %d: %w", t.maxOpenTries, err)
		}

		b.Sleep()

		if t.isClosed() {
			return nil, ErrTransportClosed
		}
	}
}

func (t *UDPTransport) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state == stateClosed
}

func (t *UDPTransport) open() (net.PacketConn, error) {
	lc := net.ListenConfig{Control: socketControl(t.sendBufferSize)}
	return lc.ListenPacket(context.Background(), "udp", ":0")
}

func (t *UDPTransport) resolve(e Endpoint) (*net.UDPAddr, error) {
	if a, ok := t.addrs.Load(e); ok {
		return a.(*net.UDPAddr), nil
	}

	addr, err := net.ResolveUDPAddr("udp", e.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve endpoint: %w", err)
	}
	t.addrs.Store(e, addr)
	return addr, nil
}

func (t *UDPTransport) debug(format string, args ...any) {
	if !t.verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}
