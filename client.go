package gelf

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// logCall is one queued log call, waiting for a worker.
type logCall struct {
	level Level
	msg   any
	d     *Details
}

// Client sends log events to GELF collectors over UDP. Each log call runs the
// pipeline build -> compress -> chunk -> send, picks one endpoint for all of
// its datagrams, and never retries. A Client is safe for concurrent use.
type Client struct {
	opts       *ClientOptions
	builder    *Builder
	compressor *Compressor
	chunker    *ChunkEncoder
	selector   *EndpointSelector
	transport  Transport

	wg     *sync.WaitGroup
	sendCh chan *logCall

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a GELF client. No socket is opened until the first
// message is sent. It fails if opts has no valid endpoints.
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = DefaultClientOptions()
	} else {
		opts.resolve()
	}

	selector, err := NewEndpointSelector(opts.Endpoints)
	if err != nil {
		return nil, err
	}

	transport := opts.Transport
	if transport == nil {
		transport = NewUDPTransport(&UDPTransportOptions{
			MaxOpenTries:   opts.MaxOpenTries,
			SendBufferSize: opts.SendBufferSize,
			Verbose:        opts.Verbose,
		})
	}

	c := &Client{
		opts: opts,
		builder: &Builder{
			Host:     opts.Hostname,
			Facility: opts.Facility,
			Verbose:  opts.Verbose,
		},
		compressor: NewCompressor(opts.CompressType, opts.CompressionLevel),
		chunker:    &ChunkEncoder{BufferSize: opts.BufferSize, Rand: opts.Rand},
		selector:   selector,
		transport:  transport,
		wg:         &sync.WaitGroup{},
	}

	c.debug("starting Client with the resolved ClientOptions: %+v", c.opts)

	if opts.Workers > 0 {
		c.sendCh = make(chan *logCall, opts.QueueDepth)
		c.wg.Add(opts.Workers)
		for i := 0; i < opts.Workers; i++ {
			go c.run(i + 1)
		}
	}

	return c, nil
}

// Emergency logs msg at LevelEmergency. See Log.
func (c *Client) Emergency(msg any, d *Details) error { return c.Log(LevelEmergency, msg, d) }

// Alert logs msg at LevelAlert. See Log.
func (c *Client) Alert(msg any, d *Details) error { return c.Log(LevelAlert, msg, d) }

// Critical logs msg at LevelCritical. See Log.
func (c *Client) Critical(msg any, d *Details) error { return c.Log(LevelCritical, msg, d) }

// Error logs msg at LevelError. See Log.
func (c *Client) Error(msg any, d *Details) error { return c.Log(LevelError, msg, d) }

// Warning logs msg at LevelWarning. See Log.
func (c *Client) Warning(msg any, d *Details) error { return c.Log(LevelWarning, msg, d) }

// Notice logs msg at LevelNotice. See Log.
func (c *Client) Notice(msg any, d *Details) error { return c.Log(LevelNotice, msg, d) }

// Info logs msg at LevelInfo. See Log.
func (c *Client) Info(msg any, d *Details) error { return c.Log(LevelInfo, msg, d) }

// Debug logs msg at LevelDebug. See Log.
func (c *Client) Debug(msg any, d *Details) error { return c.Log(LevelDebug, msg, d) }

// Log sends msg at the given level. d may be nil.
//
// Without workers, Log runs the whole pipeline and returns its outcome, which
// is also passed to d.OnComplete. With workers, Log only queues the call and
// returns nil, or ErrQueueFull when the message was shed; the outcome of the
// send goes to d.OnComplete.
//
// Every failure is also reported to the internal logger.
func (c *Client) Log(level Level, msg any, d *Details) error {
	if !level.Valid() {
		err := fmt.Errorf("gelf: invalid level: %d", int(level))
		c.reportError("message dropped: %v", err)
		complete(d, err)
		return err
	}

	if c.sendCh == nil {
		if c.isClosed() {
			complete(d, ErrTransportClosed)
			return ErrTransportClosed
		}
		return c.send(level, msg, d)
	}

	return c.enqueue(&logCall{level: level, msg: msg, d: d})
}

func (c *Client) enqueue(lc *logCall) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		complete(lc.d, ErrTransportClosed)
		return ErrTransportClosed
	}

	if c.opts.DropIfQueueFull {
		select {
		case c.sendCh <- lc:
		default:
			c.debug("full queue: dropping message: queue depth: %d", c.opts.QueueDepth)
			complete(lc.d, ErrQueueFull)
			return ErrQueueFull
		}
		return nil
	}

	// otherwise block if the queue is full
	c.sendCh <- lc
	return nil
}

// send runs the pipeline for one message.
func (c *Client) send(level Level, msg any, d *Details) (err error) {
	defer func() { complete(d, err) }()

	m, err := c.builder.Build(msg, d, level)
	if err != nil {
		c.reportError("message dropped: %v", err)
		return err
	}

	payload, err := c.compressor.Compress(m)
	if err != nil {
		c.reportError("message dropped: %v", err)
		return err
	}

	frames, err := c.chunker.Encode(payload)
	if err != nil {
		c.reportError("message dropped: %v", err)
		return err
	}

	// one endpoint per message; the collector reassembles chunks per message
	ep := c.selector.Next()

	// strictly in order, each datagram only after the previous one was sent
	for i, frame := range frames {
		if err = c.transport.Send(frame, ep); err != nil {
			var se *SocketSendError
			if errors.As(err, &se) {
				se.Chunk = i
			}
			c.reportError("message dropped: datagram %d of %d to %s: %v", i+1, len(frames), ep, err)
			return err
		}
	}

	c.debug("sent %d byte message in %d datagram(s) to %s", len(payload), len(frames), ep)
	return nil
}

func (c *Client) run(id int) {
	for lc := range c.sendCh {
		c.send(lc.level, lc.msg, lc.d)
	}
	c.debug("worker %d: send queue closed; returning from worker goroutine", id)
	c.wg.Done()
}

// Close destroys the transport immediately. Messages still queued, or with
// datagrams still to send, fail with ErrTransportClosed, as does every later
// log call. Close is idempotent.
func (c *Client) Close() error {
	c.markClosed()
	return c.transport.Close()
}

// Shutdown is used to support graceful shutdown. It stops accepting log calls,
// waits until queued messages were sent or the context expires, whichever
// occurs first, and then closes the transport.
func (c *Client) Shutdown(ctx context.Context) error {
	c.markClosed()
	c.debug("message send queue closed; writing out previously enqueued messages")

	doneCh := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(doneCh)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-doneCh:
		c.debug("message send queue successfully drained")
	}

	return errors.Join(err, c.transport.Close())
}

func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.sendCh != nil {
		close(c.sendCh)
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func complete(d *Details, err error) {
	if d != nil && d.OnComplete != nil {
		d.OnComplete(err)
	}
}

// internal logging helpers:
func (c *Client) debug(format string, args ...any) {
	if !c.opts.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

func (c *Client) reportError(format string, args ...any) {
	InternalLogger().Printf(format, args...)
}
