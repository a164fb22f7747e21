//go:build linux || darwin

package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/framed"
	"github.com/Zereker/framed/codec"
)

func setupEcho[T any](t *testing.T, mode string, c framed.Codec[T]) *net.UDPAddr {
	t.Helper()

	var err error
	logger, err = newLogger(io.Discard, "error")
	require.NoError(t, err)

	cfg = DefaultConfig()
	cfg.Listen = "127.0.0.1:0"
	cfg.Mode = mode
	require.NoError(t, cfg.Validate())

	server, err := newEchoServer(cfg, c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return server.Addr().(*net.UDPAddr)
}

func TestSendFrames_Lines(t *testing.T) {
	to := setupEcho[string](t, "repeat", codec.Lines{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := sendFrames(ctx, codec.Lines{}, to, []string{"alpha"}, &out, func(s string) string { return s })
	require.NoError(t, err)
	assert.Equal(t, "alpha\n", out.String())
}

func TestSendFrames_LengthPrefixed(t *testing.T) {
	to := setupEcho[[]byte](t, "single", codec.LengthPrefixed{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := sendFrames(ctx, codec.LengthPrefixed{}, to, [][]byte{[]byte("payload")}, &out,
		func(b []byte) string { return string(b) })
	require.NoError(t, err)
	assert.Equal(t, "payload\n", out.String())
}

func TestSendFrames_TimesOutWithoutServer(t *testing.T) {
	var err error
	logger, err = newLogger(io.Discard, "error")
	require.NoError(t, err)
	cfg = DefaultConfig()

	// Bind and close a socket so nothing answers on its port.
	pc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	to := pc.LocalAddr().(*net.UDPAddr)
	require.NoError(t, pc.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = sendFrames(ctx, codec.Raw{}, to, [][]byte{[]byte("x")}, io.Discard,
		func(b []byte) string { return string(b) })
	require.Error(t, err)
}

func TestOnServeError(t *testing.T) {
	var err error
	logger, err = newLogger(io.Discard, "error")
	require.NoError(t, err)

	assert.Equal(t, framed.Continue, onServeError(&framed.DecodeError{Err: codec.ErrLineTooLong}))
	assert.Equal(t, framed.Disconnect, onServeError(net.ErrClosed))
}
