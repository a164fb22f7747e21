//go:build linux || darwin

// Command echo is a line echo server that drives framed.Framed by hand,
// without Conn: it polls the adapter and parks on the socket between polls.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zereker/framed"
	"github.com/Zereker/framed/codec"
)

func main() {
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:12345")
	if err != nil {
		panic(err)
	}

	transport, err := framed.ListenUDP(addr)
	if err != nil {
		slog.Error("failed to listen", "error", err)
		return
	}
	defer transport.Close()

	f, err := framed.New[string](transport, codec.Lines{MaxLength: 1024}, framed.DecodeRepeat)
	if err != nil {
		slog.Error("failed to create adapter", "error", err)
		return
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("server start", "addr", transport.LocalAddr())
	if err := serve(ctx, f, transport); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutting down server...")
}

func serve(ctx context.Context, f *framed.Framed[string], w framed.Waiter) error {
	for {
		line, from, ok, err := f.ReadFrame()
		switch {
		case errors.Is(err, framed.ErrWouldBlock):
			if err = w.WaitReadable(ctx); err != nil {
				return err
			}
			continue
		case err != nil:
			// Drop the bad datagram and keep serving.
			slog.Warn("bad datagram", "error", err)
			f.DiscardDatagram()
			continue
		case !ok:
			continue
		}

		if err = reply(ctx, f, w, line, from); err != nil {
			return err
		}
	}
}

func reply(ctx context.Context, f *framed.Framed[string], w framed.Waiter, line string, to net.Addr) error {
	for {
		accepted, err := f.WriteFrame(line, to)
		if err != nil {
			return err
		}
		if accepted {
			break
		}
		if err = w.WaitWritable(ctx); err != nil {
			return err
		}
	}

	for {
		err := f.Flush()
		if !errors.Is(err, framed.ErrWouldBlock) {
			return err
		}
		if err = w.WaitWritable(ctx); err != nil {
			return err
		}
	}
}
