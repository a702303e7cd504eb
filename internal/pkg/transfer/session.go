package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"tftp/internal/pkg/log"
	"tftp/internal/pkg/wire"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Defaults for the per-attempt wait and the retransmission bound. Both are
// configuration, not protocol.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultMaxRetries = 3
)

// Direction says which way file content flows in a session.
type Direction int

// Session directions.
const (
	directionNone Direction = iota
	Read                    // server sends DATA, peer sends ACK
	Write                   // peer sends DATA, server sends ACK
)

// String implements the Stringer interface for printing Direction values.
func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "none"
	}
}

// Session drives one stop-and-wait transfer with a single peer. At most one
// unacknowledged data block (or final-block ack) is ever in flight.
type Session struct {
	id         uuid.UUID
	conn       Conn
	peer       net.Addr
	dir        Direction
	src        io.Reader
	sink       io.Writer
	timeout    time.Duration
	maxRetries int

	block uint16
}

// Cfg configures a Session.
type Cfg func(*Session) error

// WithConn sets the datagram transport the session runs over.
func WithConn(conn Conn) Cfg {
	return func(s *Session) error {
		s.conn = conn
		return nil
	}
}

// WithPeer fixes the peer address for the session's lifetime. Datagrams from
// any other address are foreign traffic.
func WithPeer(peer net.Addr) Cfg {
	return func(s *Session) error {
		s.peer = peer
		return nil
	}
}

// WithSource makes this a read-direction session sending the given bytes.
func WithSource(src io.Reader) Cfg {
	return func(s *Session) error {
		if s.dir != directionNone {
			return errors.New("session direction already set")
		}
		s.src = src
		s.dir = Read
		return nil
	}
}

// WithSink makes this a write-direction session receiving into the given sink.
func WithSink(sink io.Writer) Cfg {
	return func(s *Session) error {
		if s.dir != directionNone {
			return errors.New("session direction already set")
		}
		s.sink = sink
		s.dir = Write
		return nil
	}
}

// WithTimeout sets the per-attempt wait for a response.
func WithTimeout(d time.Duration) Cfg {
	return func(s *Session) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		s.timeout = d
		return nil
	}
}

// WithMaxRetries bounds the retransmissions of one unit before the peer is
// presumed gone.
func WithMaxRetries(n int) Cfg {
	return func(s *Session) error {
		if n < 0 {
			return errors.New("max retries cannot be negative")
		}
		s.maxRetries = n
		return nil
	}
}

// NewSession creates a new Session with the given configuration.
func NewSession(cfgs ...Cfg) (*Session, error) {
	s := &Session{
		id:         uuid.New(),
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
	}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Session cfg failed")
		}
	}
	if s.conn == nil {
		return nil, errors.New("session requires a conn")
	}
	if s.peer == nil {
		return nil, errors.New("session requires a peer address")
	}
	if s.dir == directionNone {
		return nil, errors.New("session requires a source or a sink")
	}
	return s, nil
}

// ID returns the session's identity, used in log fields.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Direction returns which way file content flows.
func (s *Session) Direction() Direction {
	return s.dir
}

// Run drives the session to a terminal outcome. It returns nil when the
// transfer completed, ErrTimeoutExhausted when the peer stopped responding,
// ErrProtocolViolation after answering an illegal packet with an error
// datagram, or a PeerError when the peer reported an error.
func (s *Session) Run(ctx context.Context) error {
	switch s.dir {
	case Read:
		return s.sendFile(ctx)
	case Write:
		return s.receiveFile(ctx)
	}
	return errors.New("session has no direction")
}

// sendFile streams the source to the peer, one acknowledged block at a time.
// Blocks are numbered from 1; a file sized an exact multiple of the block
// size ends with a zero-length block.
func (s *Session) sendFile(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf := make([]byte, wire.BlockSize)
		n, err := io.ReadFull(s.src, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return errors.Wrap(err, "read block failed")
		}
		s.block++
		data := wire.Data{Block: s.block, Payload: buf[:n]}
		if err := s.sendAwaitAck(ctx, data); err != nil {
			return err
		}
		if n < wire.BlockSize {
			s.log().WithField("blocks", s.block).Debug("read transfer complete")
			return nil
		}
	}
}

// sendAwaitAck transmits one data block and waits for its acknowledgment,
// retransmitting on timeout up to the retry bound. Acks for any other block
// are stale duplicates and consume the current wait rather than rearming it.
func (s *Session) sendAwaitAck(ctx context.Context, data wire.Data) error {
	if err := s.conn.Send(data, s.peer); err != nil {
		return errors.Wrap(err, "send data block failed")
	}
	retries := s.maxRetries
	deadline := time.Now().Add(s.timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkt, err := s.recv(deadline)
		switch {
		case err == nil:
		case errors.Is(err, ErrReceiveTimeout):
			if retries == 0 {
				s.log().WithField("block", data.Block).Warn("peer unresponsive, giving up")
				return ErrTimeoutExhausted
			}
			retries--
			if err := s.conn.Send(data, s.peer); err != nil {
				return errors.Wrap(err, "resend data block failed")
			}
			deadline = time.Now().Add(s.timeout)
			continue
		default:
			return err
		}
		ack, ok := pkt.(wire.Ack)
		if !ok {
			return s.violation(fmt.Sprintf("expected ACK, got %s", pkt.Op()))
		}
		if ack.Block != data.Block {
			s.log().WithFields(logrus.Fields{"got": ack.Block, "want": data.Block}).Debug("ignoring stale ack")
			continue
		}
		return nil
	}
}

// receiveFile collects blocks from the peer into the sink, acknowledging each
// one. A duplicate of the last acknowledged block is re-acked without being
// written again; any other unexpected block aborts the session.
func (s *Session) receiveFile(ctx context.Context) error {
	expected := uint16(1)
	var lastAck *wire.Ack
	retries := s.maxRetries
	deadline := time.Now().Add(s.timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkt, err := s.recv(deadline)
		switch {
		case err == nil:
		case errors.Is(err, ErrReceiveTimeout):
			if retries == 0 {
				s.log().WithField("block", expected).Warn("peer unresponsive, giving up")
				return ErrTimeoutExhausted
			}
			retries--
			if lastAck != nil {
				if err := s.conn.Send(*lastAck, s.peer); err != nil {
					return errors.Wrap(err, "resend ack failed")
				}
			}
			deadline = time.Now().Add(s.timeout)
			continue
		default:
			return err
		}
		data, ok := pkt.(wire.Data)
		if !ok {
			return s.violation(fmt.Sprintf("expected DATA, got %s", pkt.Op()))
		}
		switch {
		case data.Block == expected:
			if _, err := s.sink.Write(data.Payload); err != nil {
				return errors.Wrap(err, "write block failed")
			}
			ack := wire.Ack{Block: expected}
			if err := s.conn.Send(ack, s.peer); err != nil {
				return errors.Wrap(err, "send ack failed")
			}
			lastAck = &ack
			s.block = expected
			if len(data.Payload) < wire.BlockSize {
				s.log().WithField("blocks", expected).Debug("write transfer complete")
				return nil
			}
			expected++ // wraps at 65536 with the block counter
			retries = s.maxRetries
			deadline = time.Now().Add(s.timeout)
		case lastAck != nil && data.Block == lastAck.Block:
			if err := s.conn.Send(*lastAck, s.peer); err != nil {
				return errors.Wrap(err, "resend ack failed")
			}
			deadline = time.Now().Add(s.timeout)
		default:
			return s.violation(fmt.Sprintf("unexpected block %d, want %d", data.Block, expected))
		}
	}
}

// recv waits for the next datagram from the session's peer. Foreign senders
// are answered with an UnknownTransferID error and do not disturb the wait
// deadline or any other session state. An error packet from the peer is a
// non-retryable abort, returned as a PeerError.
func (s *Session) recv(deadline time.Time) (wire.Packet, error) {
	for {
		raw, from, err := s.conn.Receive(time.Until(deadline))
		if err != nil {
			return nil, err
		}
		if from.String() != s.peer.String() {
			s.log().WithField("from", from.String()).Warn("datagram from foreign transfer id")
			foreign := wire.Error{Code: wire.CodeUnknownTransferID, Message: wire.CodeUnknownTransferID.Message()}
			if err := s.conn.Send(foreign, from); err != nil {
				return nil, errors.Wrap(err, "send unknown transfer id error failed")
			}
			continue
		}
		pkt, err := wire.Unmarshal(raw)
		if err != nil {
			s.log().WithError(err).Warn("undecodable datagram from peer")
			return nil, s.violation("undecodable packet")
		}
		s.log().WithFields(log.PacketToFields(pkt)).Trace("received packet")
		if e, ok := pkt.(wire.Error); ok {
			return nil, &PeerError{Code: e.Code, Message: e.Message}
		}
		return pkt, nil
	}
}

// violation answers the peer with one best-effort IllegalOperation error and
// reports the session as aborted.
func (s *Session) violation(reason string) error {
	pkt := wire.Error{Code: wire.CodeIllegalOperation, Message: wire.CodeIllegalOperation.Message()}
	if err := s.conn.Send(pkt, s.peer); err != nil {
		s.log().WithError(err).Warn("send illegal operation error failed")
	}
	return errors.Wrap(ErrProtocolViolation, reason)
}

func (s *Session) log() logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"session": s.id.String(),
		"peer":    s.peer.String(),
		"dir":     s.dir.String(),
	})
}
