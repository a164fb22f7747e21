package framed

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Errors returned by Conn operations.
var (
	// ErrInvalidFramed is returned when no Framed is provided.
	ErrInvalidFramed = errors.New("invalid framed adapter")
	// ErrInvalidOnMessage is returned when no message handler is provided.
	ErrInvalidOnMessage = errors.New("invalid on message callback")
)

// ErrConnectionClosed is returned when operating on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// ErrBufferFull is returned when the outbound queue is full and cannot accept
// more frames. This indicates backpressure: the transport is not taking
// datagrams as fast as they are produced.
// Recommended handling strategies:
//   - Drop the frame (for non-critical data like metrics)
//   - Use WriteBlocking or WriteTimeout to wait for queue space
//   - Implement application-level flow control
var ErrBufferFull = errors.New("send buffer full")

// Default configuration values.
const (
	// defaultBufferSize is the default size of the outbound frame queue.
	defaultBufferSize = 1
	// defaultPollInterval is used for transports that are not a Waiter.
	defaultPollInterval = time.Millisecond
)

// outbound is a frame queued for a destination.
type outbound[T any] struct {
	frame T
	addr  net.Addr
}

// Conn drives a Framed from two goroutines: one pulls frames and hands them
// to the message handler, the other sends queued frames. Between polls it
// parks on the transport's Waiter, or sleeps when the transport has none.
//
// Because decoding and encoding run concurrently, the codec's Decode and
// Encode must be safe to call at the same time. The stateless codecs in
// package codec are.
type Conn[T any] struct {
	framed    *Framed[T]
	waiter    Waiter
	logger    Logger
	onMessage func(frame T, addr net.Addr) error

	opts options

	sendMsg chan outbound[T]
	closed  atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewConn creates a connection around f. onMessage is invoked for every
// decoded frame with the address of the datagram it came from; returning an
// error stops the connection.
func NewConn[T any](f *Framed[T], onMessage func(frame T, addr net.Addr) error, opt ...Option) (*Conn[T], error) {
	if f == nil {
		return nil, ErrInvalidFramed
	}

	if onMessage == nil {
		return nil, ErrInvalidOnMessage
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	waiter, ok := f.Transport().(Waiter)
	if !ok {
		waiter = pollWaiter{interval: opts.pollInterval}
	}

	return &Conn[T]{
		framed:    f,
		waiter:    waiter,
		logger:    opts.logger,
		onMessage: onMessage,
		opts:      opts,
		sendMsg:   make(chan outbound[T], opts.bufferSize),
	}, nil
}

// checkOptions sets default values for connection options.
func checkOptions(opts *options) {
	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.pollInterval <= 0 {
		opts.pollInterval = defaultPollInterval
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Disconnect }
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}

// Run starts the connection's read and write loops.
// It blocks until an error occurs or the context is canceled. On return it
// makes one last non-blocking attempt to send a buffered frame; frames that
// still could not be sent are dropped and logged. The transport is not
// closed.
func (c *Conn[T]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// closed is checked under mu so a concurrent Close either stops Run
	// here or finds cancel set.
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Info("connection started", "addr", c.Addr(), "mode", c.framed.Mode())
	c.logger.Debug("connection options", "addr", c.Addr(),
		"buffer_size", c.opts.bufferSize,
		"poll_interval", c.opts.pollInterval)

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	err := group.Wait()
	c.closed.Store(true)
	c.drain()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
	} else {
		c.logger.Info("connection closed", "addr", c.Addr())
	}

	return err
}

// Close stops the loops started by Run. It does not close the transport.
// Safe to call multiple times.
func (c *Conn[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return nil // already closed
	}

	if c.cancel != nil {
		c.cancel()
	}

	return nil
}

// IsClosed returns true if the connection has been closed.
func (c *Conn[T]) IsClosed() bool {
	return c.closed.Load()
}

// Framed returns the adapter driven by this connection.
func (c *Conn[T]) Framed() *Framed[T] {
	return c.framed
}

// Addr returns the local address of the transport, or nil if the transport
// does not expose one.
func (c *Conn[T]) Addr() net.Addr {
	if la, ok := c.framed.Transport().(interface{ LocalAddr() net.Addr }); ok {
		return la.LocalAddr()
	}
	return nil
}

// Write queues a frame for addr without blocking (fire-and-forget).
// Encoding happens on the write loop, so encode errors are reported through
// the OnErrorOption callback rather than returned here.
//
// Returns:
//   - nil: frame was queued (not yet sent)
//   - ErrBufferFull: queue is full, frame was NOT queued
//   - ErrConnectionClosed: connection is closed
func (c *Conn[T]) Write(frame T, addr net.Addr) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	select {
	case c.sendMsg <- outbound[T]{frame: frame, addr: addr}:
		return nil
	default:
		return ErrBufferFull
	}
}

// WriteBlocking queues a frame for addr, blocking until there is room in the
// queue or the context is canceled.
//
// Returns:
//   - nil: frame was queued
//   - context.Canceled or context.DeadlineExceeded: context was canceled
//   - ErrConnectionClosed: connection is closed
func (c *Conn[T]) WriteBlocking(ctx context.Context, frame T, addr net.Addr) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	select {
	case c.sendMsg <- outbound[T]{frame: frame, addr: addr}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteTimeout queues a frame for addr, waiting at most timeout for room in
// the queue.
//
// Returns:
//   - nil: frame was queued
//   - ErrBufferFull: timeout expired before the frame could be queued
//   - ErrConnectionClosed: connection is closed
func (c *Conn[T]) WriteTimeout(frame T, addr net.Addr, timeout time.Duration) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.sendMsg <- outbound[T]{frame: frame, addr: addr}:
		return nil
	case <-timer.C:
		return ErrBufferFull
	}
}

// readLoop pulls frames from the adapter and calls the message handler.
// Returns when the context is canceled or an unrecoverable error occurs.
func (c *Conn[T]) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, addr, ok, err := c.framed.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				if err = c.waiter.WaitReadable(ctx); err != nil {
					return err
				}
				continue
			}

			c.logger.Debug("read error", "addr", c.Addr(), "error", err)
			if c.opts.onError(err) == Disconnect {
				return err
			}

			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				c.framed.DiscardDatagram()
				continue
			}

			// Transport errors may persist, so wait before receiving again.
			if err = c.waiter.WaitReadable(ctx); err != nil {
				return err
			}
			continue
		}

		if !ok {
			continue
		}

		if err = c.onMessage(frame, addr); err != nil {
			return err
		}
	}
}

// writeLoop sends queued frames one datagram at a time.
// Returns when the context is canceled or an unrecoverable error occurs.
func (c *Conn[T]) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.sendMsg:
			if err := c.write(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// write hands msg to the adapter and flushes it, parking while the
// transport is not ready. If an error occurs and onError returns Disconnect,
// the error is propagated. Otherwise the frame is dropped.
func (c *Conn[T]) write(ctx context.Context, msg outbound[T]) error {
	for {
		accepted, err := c.framed.WriteFrame(msg.frame, msg.addr)
		if err != nil {
			return c.writeError(err)
		}
		if accepted {
			break
		}
		if err = c.waiter.WaitWritable(ctx); err != nil {
			return err
		}
	}

	for {
		err := c.framed.Flush()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return c.writeError(err)
		}
		if err = c.waiter.WaitWritable(ctx); err != nil {
			return err
		}
	}
}

func (c *Conn[T]) writeError(err error) error {
	c.logger.Debug("write error", "addr", c.Addr(), "error", err)
	if c.opts.onError(err) == Disconnect {
		return err
	}
	c.framed.DiscardPending()
	return nil
}

// drain makes one non-blocking attempt to send what the write loop left
// behind and logs anything that is lost.
func (c *Conn[T]) drain() {
	if err := c.framed.Close(); err != nil {
		c.logger.Warn("unflushed frame dropped", "addr", c.Addr(),
			"pending", c.framed.Pending(), "error", err)
		c.framed.DiscardPending()
	}

	if n := len(c.sendMsg); n > 0 {
		c.logger.Warn("queued frames dropped", "addr", c.Addr(), "count", n)
	}
}
