package framed

import (
	"time"
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect stops the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue drops the offending datagram or frame and keeps going.
	Continue
)

// options holds the configuration for a Conn.
type options struct {
	logger Logger

	// onError is called when a read or write error occurs.
	// Returns Disconnect to stop the connection, Continue to recover.
	onError func(error) ErrorAction

	bufferSize   int           // size of the outbound frame channel
	pollInterval time.Duration // wait between polls when the transport is not a Waiter
}

// Option is a function that configures connection options.
type Option func(*options)

// BufferSizeOption returns an Option that sets the size of the outbound
// frame queue. A larger queue allows more frames to wait for the transport.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// PollIntervalOption returns an Option that sets how long Conn sleeps
// between polls when the transport cannot signal readiness itself.
func PollIntervalOption(interval time.Duration) Option {
	return func(o *options) {
		o.pollInterval = interval
	}
}

// OnErrorOption returns an Option that sets the error callback.
// The callback is invoked when a decode, encode or transport error occurs.
// Return Disconnect to stop the connection, or Continue to drop the bad
// datagram (on read) or the pending frame (on write) and keep going.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
