//go:build linux || darwin

package main

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Zereker/framed"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Echo every decoded frame back to its sender",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		err := withCodec(cfg.Codec,
			func(c framed.Codec[string]) error { return serveEcho(ctx, cfg, c) },
			func(c framed.Codec[[]byte]) error { return serveEcho(ctx, cfg, c) },
		)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "address to bind (default from config)")
}

func serveEcho[T any](ctx context.Context, cfg Config, c framed.Codec[T]) error {
	server, err := newEchoServer(cfg, c)
	if err != nil {
		return err
	}

	return server.Serve(ctx)
}

// newEchoServer binds cfg.Listen and answers every frame with itself.
func newEchoServer[T any](cfg Config, c framed.Codec[T]) (*framed.Server[T], error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", cfg.Listen)
	}

	handler := framed.HandlerFunc[T](func(conn *framed.Conn[T], frame T, from net.Addr) error {
		logger.Debug("echo", "peer", from)

		if err := conn.Write(frame, from); err != nil {
			logger.Warn("echo dropped", "peer", from, "error", err)
		}
		return nil
	})

	return framed.NewServer[T](addr, c, cfg.DecodeMode(), handler,
		framed.LoggerOption(logger),
		framed.BufferSizeOption(cfg.BufferSize),
		framed.OnErrorOption(onServeError),
	)
}

// onServeError skips datagrams the codec rejects and stops on anything else.
func onServeError(err error) framed.ErrorAction {
	var decodeErr *framed.DecodeError
	if errors.As(err, &decodeErr) {
		logger.Warn("bad datagram", "error", err)
		return framed.Continue
	}
	return framed.Disconnect
}
