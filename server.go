//go:build linux || darwin

package framed

import (
	"context"
	"errors"
	"net"
)

// Handler is the interface for handling frames received by a Server.
type Handler[T any] interface {
	// ServeFrame is called for each decoded frame with the address of the
	// datagram it came from. Replies go through c. Returning an error stops
	// the server.
	ServeFrame(c *Conn[T], frame T, from net.Addr) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc[T any] func(c *Conn[T], frame T, from net.Addr) error

// ServeFrame calls f(c, frame, from).
func (f HandlerFunc[T]) ServeFrame(c *Conn[T], frame T, from net.Addr) error {
	return f(c, frame, from)
}

// Server owns a UDP socket and serves the frames arriving on it.
// A UDP server has a single socket, so one Conn covers every peer; replies
// are addressed per frame.
type Server[T any] struct {
	transport *UDPTransport
	conn      *Conn[T]
	logger    Logger
}

// NewServer binds a UDP socket on addr and prepares it to decode frames with
// codec in the given mode. Options configure the underlying Conn.
func NewServer[T any](addr *net.UDPAddr, codec Codec[T], mode DecodeMode, handler Handler[T], opts ...Option) (*Server[T], error) {
	if handler == nil {
		return nil, ErrInvalidOnMessage
	}

	transport, err := ListenUDP(addr)
	if err != nil {
		return nil, err
	}

	f, err := New[T](transport, codec, mode)
	if err != nil {
		transport.Close()
		return nil, err
	}

	s := &Server[T]{transport: transport}

	s.conn, err = NewConn(f, func(frame T, from net.Addr) error {
		return handler.ServeFrame(s.conn, frame, from)
	}, opts...)
	if err != nil {
		transport.Close()
		return nil, err
	}
	s.logger = s.conn.logger

	return s, nil
}

// Serve processes frames until the context is canceled, Close is called or
// an unrecoverable error occurs. The socket is closed when Serve returns.
func (s *Server[T]) Serve(ctx context.Context) error {
	s.logger.Info("server started", "addr", s.Addr(), "mode", s.conn.Framed().Mode())

	err := s.conn.Run(ctx)
	_ = s.transport.Close()

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		s.logger.Info("server stopped", "addr", s.Addr())
		return ctx.Err()
	}

	// Close races the loops: a loop may see the closed socket before the
	// canceled context, or Close may come before Run starts.
	if (errors.Is(err, net.ErrClosed) || errors.Is(err, ErrConnectionClosed)) && s.conn.IsClosed() {
		err = nil
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("serve error", "addr", s.Addr(), "error", err)
		return err
	}

	s.logger.Info("server stopped", "addr", s.Addr())
	return nil
}

// Close stops the server and closes the socket.
func (s *Server[T]) Close() error {
	_ = s.conn.Close()
	return s.transport.Close()
}

// Addr returns the socket's local address.
func (s *Server[T]) Addr() net.Addr {
	return s.transport.LocalAddr()
}

// Conn returns the connection serving the socket.
func (s *Server[T]) Conn() *Conn[T] {
	return s.conn
}
