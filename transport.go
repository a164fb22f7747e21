package framed

import (
	"context"
	"net"
	"time"
)

// Transport is a non-blocking datagram transport.
//
// ReceiveFrom reads one whole datagram into p and reports its size and
// source. SendTo transmits p as one datagram and reports how many bytes the
// transport took. Both return ErrWouldBlock when the operation cannot make
// progress right now; the caller retries later.
//
// p is only borrowed for the duration of the call.
type Transport interface {
	ReceiveFrom(p []byte) (n int, addr net.Addr, err error)
	SendTo(p []byte, addr net.Addr) (n int, err error)
}

// Waiter is implemented by transports that can park the caller until a
// receive or send is likely to make progress. Conn uses it between polls.
type Waiter interface {
	WaitReadable(ctx context.Context) error
	WaitWritable(ctx context.Context) error
}

// pollWaiter is the fallback Waiter for transports without readiness
// notification: it sleeps for a fixed interval.
type pollWaiter struct {
	interval time.Duration
}

func (p pollWaiter) WaitReadable(ctx context.Context) error {
	return p.wait(ctx)
}

func (p pollWaiter) WaitWritable(ctx context.Context) error {
	return p.wait(ctx)
}

func (p pollWaiter) wait(ctx context.Context) error {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
