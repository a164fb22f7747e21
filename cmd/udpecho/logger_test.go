//go:build linux || darwin

package main

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	var out bytes.Buffer
	l, err := newLogger(&out, "warn")
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", "peer", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000})

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
	assert.Contains(t, out.String(), "127.0.0.1:9000")
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	got := fields([]any{
		"error", errors.New("boom"),
		"addr", &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 53},
		"n", 3,
		"dangling",
	})

	assert.Equal(t, []any{
		"error", "boom",
		"addr", "10.0.0.1:53",
		"n", 3,
		"!BADKEY", "dangling",
	}, got)
}
