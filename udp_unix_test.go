//go:build linux || darwin

package framed

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func listenLoopback(t *testing.T) *UDPTransport {
	t.Helper()

	transport, err := ListenUDP(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	t.Cleanup(func() { transport.Close() })
	return transport
}

func waitReadable(t *testing.T, transport *UDPTransport) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := transport.WaitReadable(ctx); err != nil {
		t.Fatalf("WaitReadable failed: %v", err)
	}
}

func TestUDPTransport_SendReceive(t *testing.T) {
	a := listenLoopback(t)
	b := listenLoopback(t)

	n, err := a.SendTo([]byte("ping"), b.LocalAddr())
	if err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}
	if n != 4 {
		t.Errorf("SendTo wrote %d bytes, want 4", n)
	}

	waitReadable(t, b)

	buf := make([]byte, MaxDatagramSize)
	n, from, err := b.ReceiveFrom(buf)
	if err != nil {
		t.Fatalf("ReceiveFrom failed: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Errorf("received %q, want ping", buf[:n])
	}

	fromUDP, ok := from.(*net.UDPAddr)
	if !ok {
		t.Fatalf("source is %T, want *net.UDPAddr", from)
	}
	if fromUDP.Port != a.LocalAddr().(*net.UDPAddr).Port {
		t.Errorf("source port = %d, want %d", fromUDP.Port, a.LocalAddr().(*net.UDPAddr).Port)
	}
}

func TestUDPTransport_ReceiveWouldBlock(t *testing.T) {
	transport := listenLoopback(t)

	_, _, err := transport.ReceiveFrom(make([]byte, 16))
	if !errors.Is(err, ErrWouldBlock) {
		t.Errorf("ReceiveFrom err = %v, want ErrWouldBlock", err)
	}
}

func TestUDPTransport_WaitReadableCanceled(t *testing.T) {
	a := listenLoopback(t)
	b := listenLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := b.WaitReadable(ctx); err != context.DeadlineExceeded {
		t.Fatalf("WaitReadable err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("WaitReadable took %v to notice cancellation", elapsed)
	}

	// The deadline used for cancellation must not leak into later waits.
	if _, err := a.SendTo([]byte("after"), b.LocalAddr()); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}
	waitReadable(t, b)
}

func TestUDPTransport_WaitWritable(t *testing.T) {
	transport := listenLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := transport.WaitWritable(ctx); err != nil {
		t.Errorf("WaitWritable failed: %v", err)
	}
}

func TestUDPTransport_WaitAfterClose(t *testing.T) {
	transport, err := ListenUDP(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	transport.Close()

	if err := transport.WaitReadable(context.Background()); !errors.Is(err, net.ErrClosed) {
		t.Errorf("WaitReadable err = %v, want net.ErrClosed", err)
	}
}

func TestUDPTransport_UnsupportedAddr(t *testing.T) {
	transport := listenLoopback(t)

	_, err := transport.SendTo([]byte("x"), &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1})
	if !errors.Is(err, ErrUnsupportedAddr) {
		t.Errorf("SendTo(TCPAddr) err = %v, want ErrUnsupportedAddr", err)
	}

	_, err = transport.SendTo([]byte("x"), &net.UDPAddr{IP: net.ParseIP("::1"), Port: 1})
	if !errors.Is(err, ErrUnsupportedAddr) {
		t.Errorf("SendTo(ipv6) on ipv4 socket err = %v, want ErrUnsupportedAddr", err)
	}
}

func TestUDPTransport_SatisfiesWaiter(t *testing.T) {
	var _ Transport = (*UDPTransport)(nil)
	var _ Waiter = (*UDPTransport)(nil)
}

func TestFramed_OverUDP(t *testing.T) {
	sender := listenLoopback(t)
	receiver := listenLoopback(t)

	out, err := New[string](sender, lineCodec{}, DecodeSingle)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	in, err := New[string](receiver, lineCodec{}, DecodeRepeat)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if accepted, err := out.WriteFrame("hello", receiver.LocalAddr()); err != nil || !accepted {
		t.Fatalf("WriteFrame = %v, %v", accepted, err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Two frames packed into one datagram, sent out of band.
	if _, err := sender.SendTo([]byte("x\ny"), receiver.LocalAddr()); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}

	want := []string{"hello", "x", "y"}
	var got []string

	deadline := time.Now().Add(5 * time.Second)
	for len(got) < len(want) && time.Now().Before(deadline) {
		frame, from, ok, err := in.ReadFrame()
		if errors.Is(err, ErrWouldBlock) {
			waitReadable(t, receiver)
			continue
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if !ok {
			continue
		}
		if from.(*net.UDPAddr).Port != sender.LocalAddr().(*net.UDPAddr).Port {
			t.Errorf("frame %q from %v, want sender port", frame, from)
		}
		got = append(got, frame)
	}

	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConn_OverUDP(t *testing.T) {
	server := listenLoopback(t)
	client := listenLoopback(t)

	f, err := New[string](server, lineCodec{}, DecodeRepeat)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var conn *Conn[string]
	conn, err = NewConn(f, func(frame string, addr net.Addr) error {
		return conn.Write(frame+"!", addr)
	}, BufferSizeOption(4))
	if err != nil {
		t.Fatalf("NewConn failed: %v", err)
	}
	if _, ok := conn.waiter.(*UDPTransport); !ok {
		t.Errorf("waiter = %T, want the UDP transport", conn.waiter)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := runConn(ctx, conn)

	if _, err := client.SendTo([]byte("hi\n"), server.LocalAddr()); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}

	waitReadable(t, client)
	buf := make([]byte, 64)
	n, _, err := client.ReceiveFrom(buf)
	if err != nil {
		t.Fatalf("ReceiveFrom failed: %v", err)
	}
	if string(buf[:n]) != "hi!\n" {
		t.Errorf("reply = %q, want %q", buf[:n], "hi!\n")
	}

	cancel()
	if err := waitDone(t, done); err != context.Canceled {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
}
