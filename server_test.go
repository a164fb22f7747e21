//go:build linux || darwin

package framed

import (
	"context"
	"net"
	"testing"
	"time"
)

func echoHandler() Handler[string] {
	return HandlerFunc[string](func(c *Conn[string], frame string, from net.Addr) error {
		return c.WriteBlocking(context.Background(), frame, from)
	})
}

func newTestServer(t *testing.T) *Server[string] {
	t.Helper()

	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}
	server, err := NewServer[string](addr, lineCodec{}, DecodeRepeat, echoHandler(), BufferSizeOption(8))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	if server.transport == nil {
		t.Error("transport is nil")
	}
	if server.Conn() == nil {
		t.Error("conn is nil")
	}
	if server.Conn().Framed().Mode() != DecodeRepeat {
		t.Errorf("mode = %v, want repeat", server.Conn().Framed().Mode())
	}
}

func TestNewServer_InvalidAddr(t *testing.T) {
	server1 := newTestServer(t)
	defer server1.Close()

	occupied := server1.Addr().(*net.UDPAddr)
	_, err := NewServer[string](occupied, lineCodec{}, DecodeSingle, echoHandler())
	if err == nil {
		t.Error("expected error for occupied port")
	}
}

func TestNewServer_Validation(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}

	if _, err := NewServer[string](addr, lineCodec{}, DecodeSingle, nil); err != ErrInvalidOnMessage {
		t.Errorf("nil handler: err = %v, want ErrInvalidOnMessage", err)
	}
	if _, err := NewServer[string](addr, lineCodec{}, DecodeMode(0), echoHandler()); err != ErrInvalidDecodeMode {
		t.Errorf("zero mode: err = %v, want ErrInvalidDecodeMode", err)
	}
}

func TestServer_Addr(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	addr, ok := server.Addr().(*net.UDPAddr)
	if !ok {
		t.Fatalf("Addr() = %T, want *net.UDPAddr", server.Addr())
	}
	if addr.Port == 0 {
		t.Error("expected an ephemeral port to be assigned")
	}
}

func TestServer_Serve(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("client listen failed: %v", err)
	}
	defer client.Close()

	if _, err = client.WriteTo([]byte("one\ntwo\n"), server.Addr()); err != nil {
		t.Fatalf("client write failed: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 64)
	for _, want := range []string{"one\n", "two\n"} {
		n, _, err := client.ReadFrom(buf)
		if err != nil {
			t.Fatalf("client read failed: %v", err)
		}
		if string(buf[:n]) != want {
			t.Errorf("echo = %q, want %q", buf[:n], want)
		}
	}

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Serve to return")
	}
}

func TestServer_Close(t *testing.T) {
	server := newTestServer(t)

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	if err := server.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve after Close = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Serve to return")
	}
}
