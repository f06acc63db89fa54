package gelf

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUDPTransport_LazyOpen(t *testing.T) {
	c := newTestCollector(t)
	tr := NewUDPTransport(nil)
	defer tr.Close()

	require.Equal(t, stateUninitialized, tr.state)
	require.Nil(t, tr.conn)

	require.NoError(t, tr.Send([]byte("awesomesauce"), c.endpoint()))
	require.Equal(t, stateOpen, tr.state)

	select {
	case b := <-c.rawCh:
		require.Equal(t, "awesomesauce", string(b))
	case <-time.After(time.Second):
		t.Fatal("datagram was not received in time")
	}
}

func TestUDPTransport_SharedSocket(t *testing.T) {
	c1 := newTestCollector(t)
	c2 := newTestCollector(t)
	tr := NewUDPTransport(&UDPTransportOptions{SendBufferSize: 1 << 16})
	defer tr.Close()

	require.NoError(t, tr.Send([]byte("one"), c1.endpoint()))
	conn := tr.conn
	require.NoError(t, tr.Send([]byte("two"), c2.endpoint()))
	require.Same(t, conn, tr.conn)

	require.Equal(t, "one", string(<-c1.rawCh))
	require.Equal(t, "two", string(<-c2.rawCh))
}

func TestUDPTransport_ConcurrentFirstSend(t *testing.T) {
	c := newTestCollector(t)
	tr := NewUDPTransport(nil)
	defer tr.Close()

	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func() {
			defer wg.Done()
			require.NoError(t, tr.Send([]byte("x"), c.endpoint()))
		}()
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		<-c.rawCh
	}
	require.Equal(t, stateOpen, tr.state)
}

func TestUDPTransport_SendAfterClose(t *testing.T) {
	c := newTestCollector(t)
	tr := NewUDPTransport(nil)

	require.NoError(t, tr.Send([]byte("before"), c.endpoint()))
	<-c.rawCh

	require.NoError(t, tr.Close())
	require.Equal(t, stateClosed, tr.state)
	require.Nil(t, tr.conn)

	require.ErrorIs(t, tr.Send([]byte("after"), c.endpoint()), ErrTransportClosed)

	select {
	case b := <-c.rawCh:
		t.Fatalf("unexpected datagram after Close: %q", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUDPTransport_CloseBeforeOpen(t *testing.T) {
	c := newTestCollector(t)
	tr := NewUDPTransport(nil)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	require.Equal(t, stateClosed, tr.state)

	// closed is terminal; the socket is never created
	require.ErrorIs(t, tr.Send([]byte("x"), c.endpoint()), ErrTransportClosed)
	require.Nil(t, tr.conn)
}

func TestUDPTransport_CloseWhileOpening(t *testing.T) {
	c := newTestCollector(t)
	tr := NewUDPTransport(nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var opened net.PacketConn
	tr.listen = func() (net.PacketConn, error) {
		close(entered)
		<-release
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		opened = conn
		return conn, err
	}

	sendErr := make(chan error, 1)
	go func() { sendErr <- tr.Send([]byte("x"), c.endpoint()) }()
	<-entered

	// Close does not wait for the socket being created
	closed := make(chan error, 1)
	go func() { closed <- tr.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close blocked on the socket being opened")
	}

	close(release)
	require.ErrorIs(t, <-sendErr, ErrTransportClosed)
	require.Equal(t, stateClosed, tr.state)
	require.Nil(t, tr.conn)

	// the late socket was not leaked
	_, err := opened.WriteTo([]byte("x"), c.conn.LocalAddr())
	require.ErrorIs(t, err, net.ErrClosed)
}

func TestUDPTransport_CloseStopsOpenAttempts(t *testing.T) {
	c := newTestCollector(t)
	tr := NewUDPTransport(&UDPTransportOptions{MaxOpenTries: 5})

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	tr.listen = func() (net.PacketConn, error) {
		calls++
		if calls == 1 {
			close(entered)
			<-release
		}
		return nil, errors.New("no sockets available")
	}

	sendErr := make(chan error, 1)
	go func() { sendErr <- tr.Send([]byte("x"), c.endpoint()) }()
	<-entered

	require.NoError(t, tr.Close())
	close(release)

	require.ErrorIs(t, <-sendErr, ErrTransportClosed)
	require.Equal(t, 1, calls)
}

func TestUDPTransport_Transition(t *testing.T) {
	tr := NewUDPTransport(nil)

	require.NoError(t, tr.transition(stateClosed, nil))
	require.Error(t, tr.transition(stateOpen, nil))
	require.Error(t, tr.transition(stateClosed, nil))
	require.Equal(t, stateClosed, tr.state)
}

func TestNewUDPTransport_Options(t *testing.T) {
	tr := NewUDPTransport(&UDPTransportOptions{MaxOpenTries: -1, SendBufferSize: -5})
	require.Equal(t, defaultOpenTries, tr.maxOpenTries)
	require.Equal(t, 0, tr.sendBufferSize)

	tr = NewUDPTransport(&UDPTransportOptions{MaxOpenTries: 7})
	require.Equal(t, 7, tr.maxOpenTries)
}
