//go:build linux || darwin

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/framed"
)

var (
	sendTo      string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send --to addr msg...",
	Short: "Send frames to a server and print the replies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := net.ResolveUDPAddr("udp", sendTo)
		if err != nil {
			return errors.Wrapf(err, "resolve %s", sendTo)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
		defer cancel()

		out := cmd.OutOrStdout()
		return withCodec(cfg.Codec,
			func(c framed.Codec[string]) error {
				return sendFrames(ctx, c, to, args, out, func(s string) string { return s })
			},
			func(c framed.Codec[[]byte]) error {
				frames := make([][]byte, len(args))
				for i, a := range args {
					frames[i] = []byte(a)
				}
				return sendFrames(ctx, c, to, frames, out, func(b []byte) string { return string(b) })
			},
		)
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "server address")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 2*time.Second, "how long to wait for all replies")
	_ = sendCmd.MarkFlagRequired("to")
}

// sendFrames sends frames to the server from an ephemeral socket and prints
// one line per reply until every frame has been answered or ctx expires.
func sendFrames[T any](ctx context.Context, c framed.Codec[T], to *net.UDPAddr, frames []T, out io.Writer, show func(T) string) error {
	transport, err := framed.ListenUDP(nil)
	if err != nil {
		return err
	}
	defer transport.Close()

	f, err := framed.New[T](transport, c, cfg.DecodeMode())
	if err != nil {
		return err
	}

	replies := make(chan T, len(frames))
	conn, err := framed.NewConn(f, func(frame T, from net.Addr) error {
		select {
		case replies <- frame:
		default:
			logger.Warn("unexpected reply", "peer", from)
		}
		return nil
	}, framed.LoggerOption(logger), framed.BufferSizeOption(len(frames)))
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	group, gctx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		// Stopping or timing out is reported by the collector below.
		if err := conn.Run(gctx); err != nil && runCtx.Err() == nil {
			return err
		}
		return nil
	})

	group.Go(func() error {
		defer stop()

		for _, frame := range frames {
			if err := conn.WriteBlocking(gctx, frame, to); err != nil {
				return errors.Wrap(err, "send")
			}
		}

		for got := 0; got < len(frames); got++ {
			select {
			case r := <-replies:
				fmt.Fprintln(out, show(r))
			case <-gctx.Done():
				if ctx.Err() != nil {
					return errors.Wrapf(ctx.Err(), "waiting for replies (%d of %d received)", got, len(frames))
				}
				return gctx.Err()
			}
		}
		return nil
	})

	return group.Wait()
}
