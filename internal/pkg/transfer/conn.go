package transfer

import (
	"net"
	"time"

	"tftp/internal/pkg/wire"

	"github.com/pkg/errors"
)

// Conn is the datagram transport a session runs over. It is the seam mocked
// in unit tests; in production it is a UDPConn on an ephemeral port.
type Conn interface {
	// Send marshals the packet and transmits it to the given address.
	Send(pkt wire.Packet, addr net.Addr) error
	// Receive blocks for up to wait for the next datagram, returning its
	// bytes and origin address, or ErrReceiveTimeout.
	Receive(wait time.Duration) ([]byte, net.Addr, error)
	LocalAddr() net.Addr
	Close() error
}

// maxDatagram comfortably holds a full data packet or a request with options.
const maxDatagram = 2048

// UDPConn adapts a *net.UDPConn to the Conn interface.
type UDPConn struct {
	conn *net.UDPConn
	buf  []byte
}

// NewUDPConn wraps an already-bound UDP socket.
func NewUDPConn(conn *net.UDPConn) *UDPConn {
	return &UDPConn{
		conn: conn,
		buf:  make([]byte, maxDatagram),
	}
}

// Bind opens a UDP socket on a fresh ephemeral port, giving the session its
// own transfer ID.
func Bind() (*UDPConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, errors.Wrap(err, "bind ephemeral socket failed")
	}
	return NewUDPConn(conn), nil
}

// Send implements Conn.
func (c *UDPConn) Send(pkt wire.Packet, addr net.Addr) error {
	b, err := pkt.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshal packet failed")
	}
	if _, err := c.conn.WriteTo(b, addr); err != nil {
		return errors.Wrap(err, "write datagram failed")
	}
	return nil
}

// Receive implements Conn.
func (c *UDPConn) Receive(wait time.Duration) ([]byte, net.Addr, error) {
	if wait <= 0 {
		return nil, nil, ErrReceiveTimeout
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, nil, errors.Wrap(err, "set read deadline failed")
	}
	n, addr, err := c.conn.ReadFromUDP(c.buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, nil, ErrReceiveTimeout
		}
		return nil, nil, errors.Wrap(err, "read datagram failed")
	}
	out := make([]byte, n)
	copy(out, c.buf[:n])
	return out, addr, nil
}

// LocalAddr implements Conn.
func (c *UDPConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close implements Conn.
func (c *UDPConn) Close() error {
	return c.conn.Close()
}
