//go:build linux || darwin

package framed

import (
	"context"
	"net"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrUnsupportedAddr is returned when a destination is not a UDP address the
// socket can reach.
var ErrUnsupportedAddr = errors.New("unsupported destination address")

// UDPTransport is a non-blocking Transport over a UDP socket.
// Receives and sends go straight to the socket with MSG_DONTWAIT and report
// EAGAIN as ErrWouldBlock. WaitReadable and WaitWritable park on the
// runtime network poller, so UDPTransport is also a Waiter.
type UDPTransport struct {
	conn   *net.UDPConn
	raw    syscall.RawConn
	family int
}

// ListenUDP binds a UDP socket on addr and wraps it. A nil addr binds an
// ephemeral port on all interfaces.
func ListenUDP(addr *net.UDPAddr) (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen udp")
	}

	t, err := NewUDPTransport(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return t, nil
}

// NewUDPTransport wraps an existing UDP socket. The transport takes over
// the socket; use Close to release it.
func NewUDPTransport(conn *net.UDPConn) (*UDPTransport, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, errors.Wrap(err, "udp syscall conn")
	}

	t := &UDPTransport{conn: conn, raw: raw, family: unix.AF_INET}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		var sa unix.Sockaddr
		sa, sockErr = unix.Getsockname(int(fd))
		if _, ok := sa.(*unix.SockaddrInet6); ok {
			t.family = unix.AF_INET6
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "udp control")
	}
	if sockErr != nil {
		return nil, errors.Wrap(sockErr, "getsockname")
	}

	return t, nil
}

// ReceiveFrom reads one datagram into p.
func (t *UDPTransport) ReceiveFrom(p []byte) (int, net.Addr, error) {
	var (
		n     int
		from  unix.Sockaddr
		opErr error
	)

	err := t.raw.Read(func(fd uintptr) bool {
		n, from, opErr = unix.Recvfrom(int(fd), p, unix.MSG_DONTWAIT)
		return true
	})
	if err != nil {
		return 0, nil, errors.Wrap(err, "udp receive")
	}

	if wouldBlock(opErr) {
		return 0, nil, ErrWouldBlock
	}
	if opErr != nil {
		return 0, nil, errors.Wrap(opErr, "recvfrom")
	}

	return n, sockaddrToUDP(from), nil
}

// SendTo sends p as one datagram to addr, which must be a *net.UDPAddr.
func (t *UDPTransport) SendTo(p []byte, addr net.Addr) (int, error) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return 0, errors.Wrapf(ErrUnsupportedAddr, "%T", addr)
	}

	sa, err := t.sockaddr(udpAddr)
	if err != nil {
		return 0, err
	}

	var (
		n     int
		opErr error
	)

	err = t.raw.Write(func(fd uintptr) bool {
		n, opErr = unix.SendmsgN(int(fd), p, nil, sa, unix.MSG_DONTWAIT)
		return true
	})
	if err != nil {
		return 0, errors.Wrap(err, "udp send")
	}

	if wouldBlock(opErr) {
		return 0, ErrWouldBlock
	}
	if opErr != nil {
		return 0, errors.Wrapf(opErr, "sendto %v", udpAddr)
	}

	return n, nil
}

// WaitReadable blocks until a datagram is queued on the socket or ctx is
// done.
func (t *UDPTransport) WaitReadable(ctx context.Context) error {
	return t.wait(ctx, unix.POLLIN, t.conn.SetReadDeadline, t.raw.Read)
}

// WaitWritable blocks until the socket can take a datagram or ctx is done.
func (t *UDPTransport) WaitWritable(ctx context.Context) error {
	return t.wait(ctx, unix.POLLOUT, t.conn.SetWriteDeadline, t.raw.Write)
}

// wait parks on the network poller until fd reports events. Cancellation is
// delivered by moving the deadline into the past, which wakes the poller.
func (t *UDPTransport) wait(
	ctx context.Context,
	events int16,
	setDeadline func(time.Time) error,
	park func(func(uintptr) bool) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = setDeadline(time.Unix(1, 0))
		close(fired)
	})

	err := park(func(fd uintptr) bool {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, perr := unix.Poll(fds, 0)
		if perr != nil {
			// Let the caller retry the real operation and see the error.
			return true
		}
		return n > 0
	})

	if !stop() {
		<-fired
		_ = setDeadline(time.Time{})
		return ctx.Err()
	}

	if err != nil {
		return errors.Wrap(err, "udp wait")
	}

	return nil
}

// LocalAddr returns the address the socket is bound to.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Conn returns the underlying socket for out-of-band use such as setting
// buffer sizes.
func (t *UDPTransport) Conn() *net.UDPConn {
	return t.conn
}

// Close closes the socket. Blocked waits return an error.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// sockaddr converts addr for this socket's address family. IPv4
// destinations are mapped into IPv6 on dual-stack sockets.
func (t *UDPTransport) sockaddr(addr *net.UDPAddr) (unix.Sockaddr, error) {
	if t.family == unix.AF_INET {
		ip4 := addr.IP.To4()
		if ip4 == nil {
			return nil, errors.Wrapf(ErrUnsupportedAddr, "ipv6 destination %v on ipv4 socket", addr)
		}
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}

	ip16 := addr.IP.To16()
	if ip16 == nil {
		return nil, errors.Wrapf(ErrUnsupportedAddr, "invalid ip in %v", addr)
	}

	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip16)
	if addr.Zone != "" {
		if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		}
	}
	return sa, nil
}

func sockaddrToUDP(sa unix.Sockaddr) *net.UDPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3]), Port: sa.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa.Addr[:])
		addr := &net.UDPAddr{IP: ip, Port: sa.Port}
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	default:
		return &net.UDPAddr{}
	}
}

func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
