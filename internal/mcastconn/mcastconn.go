// Package mcastconn provides the UDP endpoint both roles share: a socket
// that can join the command multicast group, set its TTL, send to a
// specific peer or to the group, and receive with a caller-supplied
// deadline.
package mcastconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"

	"distfs/internal/wire"
)

// MulticastTTL is the outgoing TTL set on every multicast-capable socket.
const MulticastTTL = 5

// ErrTimeout is returned by Receive when no datagram arrived before the
// requested deadline elapsed.
var ErrTimeout = errors.New("mcastconn: receive timed out")

// Conn wraps a UDP socket. pc is its ipv4 view, used to set the multicast
// options; for sockets created with NewServerSocket it has also joined the
// command group.
type Conn struct {
	udp *net.UDPConn
	pc  *ipv4.PacketConn
}

// reuseAddrControl sets SO_REUSEADDR (and SO_REUSEPORT where available) on
// the listening socket before bind, so multiple local processes can share
// the multicast command port.
func reuseAddrControl(_, _ string, c syscall.RawConn) error {
	var ctrlErr error
	if err := c.Control(func(fd uintptr) {
		if e := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); e != nil {
			ctrlErr = e
			return
		}
		if runtime.GOOS != "windows" {
			if e := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEPORT, 1); e != nil {
				ctrlErr = e
			}
		}
	}); err != nil {
		return err
	}
	return ctrlErr
}

// NewClientSocket opens an ephemeral-port UDP socket suitable for a client:
// it can send unicast requests and send/receive on the multicast group, but
// does not bind to the well-known command port.
func NewClientSocket() (*Conn, error) {
	udp, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("mcastconn: open client socket: %w", err)
	}
	pc := ipv4.NewPacketConn(udp)
	if err := pc.SetMulticastTTL(MulticastTTL); err != nil {
		udp.Close()
		return nil, fmt.Errorf("mcastconn: set multicast ttl: %w", err)
	}
	_ = pc.SetMulticastLoopback(true)
	return &Conn{udp: udp, pc: pc}, nil
}

// NewServerSocket binds the command port with SO_REUSEADDR and joins the
// given multicast group on the default interface.
func NewServerSocket(port int, group net.IP) (*Conn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	pcConn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("mcastconn: bind command port %d: %w", port, err)
	}
	udp, ok := pcConn.(*net.UDPConn)
	if !ok {
		pcConn.Close()
		return nil, fmt.Errorf("mcastconn: unexpected packet conn type %T", pcConn)
	}

	pc := ipv4.NewPacketConn(udp)
	if err := pc.SetMulticastTTL(MulticastTTL); err != nil {
		udp.Close()
		return nil, fmt.Errorf("mcastconn: set multicast ttl: %w", err)
	}
	_ = pc.SetMulticastLoopback(true)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
		udp.Close()
		return nil, fmt.Errorf("mcastconn: join group %s: %w", group, err)
	}
	return &Conn{udp: udp, pc: pc}, nil
}

// LocalAddr returns the socket's bound local address.
func (c *Conn) LocalAddr() *net.UDPAddr {
	return c.udp.LocalAddr().(*net.UDPAddr)
}

// Send writes frame to a specific peer address.
func (c *Conn) Send(frame []byte, addr *net.UDPAddr) error {
	if len(frame) > wire.MaxDatagram {
		return fmt.Errorf("mcastconn: frame of %d bytes exceeds max datagram size", len(frame))
	}
	_, err := c.udp.WriteToUDP(frame, addr)
	return err
}

// SendToGroup writes frame to the multicast group address and port.
func (c *Conn) SendToGroup(frame []byte, group net.IP, port int) error {
	return c.Send(frame, &net.UDPAddr{IP: group, Port: port})
}

// Receive blocks for up to deadline for one datagram. A non-positive
// deadline returns ErrTimeout immediately without touching the socket,
// which is what a caller's gather loop wants once its window has expired.
func (c *Conn) Receive(deadline time.Duration) ([]byte, *net.UDPAddr, error) {
	if deadline <= 0 {
		return nil, nil, ErrTimeout
	}
	if err := c.udp.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return nil, nil, err
	}
	buf := make([]byte, wire.MaxDatagram)
	n, addr, err := c.udp.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil, ErrTimeout
		}
		return nil, nil, err
	}
	return buf[:n], addr, nil
}

// ReceiveBlocking reads the next datagram with no deadline, for the
// server's main dispatch loop which listens forever.
func (c *Conn) ReceiveBlocking() ([]byte, *net.UDPAddr, error) {
	if err := c.udp.SetReadDeadline(time.Time{}); err != nil {
		return nil, nil, err
	}
	buf := make([]byte, wire.MaxDatagram)
	n, addr, err := c.udp.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	return buf[:n], addr, nil
}

// Close releases the underlying socket.
func (c *Conn) Close() error {
	return c.udp.Close()
}
