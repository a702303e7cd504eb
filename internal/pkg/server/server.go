package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"tftp/internal/pkg/log"
	"tftp/internal/pkg/storage"
	"tftp/internal/pkg/transfer"
	"tftp/internal/pkg/wire"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Server dispatches transfer sessions from a rendezvous UDP socket. Each
// accepted request runs on its own goroutine with its own ephemeral socket;
// the accept loop never blocks on a session.
type Server struct {
	addr       string
	store      storage.Store
	timeout    time.Duration
	maxRetries int

	conn *net.UDPConn
	wg   sync.WaitGroup
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithStore sets the file store requests are served from.
func WithStore(store storage.Store) Cfg {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

// WithAddr sets the rendezvous listen address, e.g. ":69".
func WithAddr(addr string) Cfg {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithTimeout sets the per-attempt response wait for sessions.
func WithTimeout(d time.Duration) Cfg {
	return func(s *Server) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		s.timeout = d
		return nil
	}
}

// WithMaxRetries sets the retransmission bound for sessions.
func WithMaxRetries(n int) Cfg {
	return func(s *Server) error {
		if n < 0 {
			return errors.New("max retries cannot be negative")
		}
		s.maxRetries = n
		return nil
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfgs ...Cfg) (*Server, error) {
	server := &Server{
		addr:       ":69",
		timeout:    transfer.DefaultTimeout,
		maxRetries: transfer.DefaultMaxRetries,
	}
	for _, cfg := range cfgs {
		if err := cfg(server); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if server.store == nil {
		return nil, errors.New("server requires a store")
	}
	return server, nil
}

// Listen binds the rendezvous socket. Serve calls it if it has not been
// called already; tests call it first to learn the bound address.
func (s *Server) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return errors.Wrap(err, "resolve listen address failed")
	}
	s.conn, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return errors.Wrap(err, "bind rendezvous socket failed")
	}
	return nil
}

// Addr returns the bound rendezvous address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Serve accepts request datagrams until the context is canceled, spawning an
// independent session for each valid request.
func (s *Server) Serve(ctx context.Context) error {
	if s.conn == nil {
		if err := s.Listen(); err != nil {
			return errors.Wrap(err, "listen failed")
		}
	}
	defer s.conn.Close()
	logger.WithField("addr", s.conn.LocalAddr().String()).Info("tftp server listening")

	go func() {
		<-ctx.Done()
		// Unblock the accept loop so it can observe the cancellation.
		_ = s.conn.SetReadDeadline(time.Now())
	}()

	buf := make([]byte, 2048)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				if ctx.Err() != nil {
					s.wg.Wait()
					return ctx.Err()
				}
				continue
			}
			return errors.Wrap(err, "read request datagram failed")
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])
		s.handleRequest(ctx, raw, peer)
	}
}

func (s *Server) handleRequest(ctx context.Context, raw []byte, peer *net.UDPAddr) {
	pkt, err := wire.Unmarshal(raw)
	if err != nil {
		s.reject(peer, requestErrorCode(err), err.Error())
		return
	}
	logger.WithField("peer", peer.String()).WithFields(log.PacketToFields(pkt)).Info("request received")
	switch req := pkt.(type) {
	case wire.ReadRequest:
		src, err := s.store.Get(req.Filename)
		if err != nil {
			s.reject(peer, storageErrorCode(err), err.Error())
			return
		}
		s.spawn(ctx, peer, req.Filename, src, nil)
	case wire.WriteRequest:
		sink, err := s.store.Put(req.Filename)
		if err != nil {
			s.reject(peer, storageErrorCode(err), err.Error())
			return
		}
		s.spawn(ctx, peer, req.Filename, nil, sink)
	default:
		s.reject(peer, wire.CodeIllegalOperation, "expected RRQ or WRQ, got "+pkt.Op().String())
	}
}

// requestErrorCode maps a request decode failure to the most specific wire
// error code.
func requestErrorCode(err error) wire.ErrCode {
	switch {
	case errors.Is(err, wire.ErrUnknownMode):
		return wire.CodeAccessViolation
	case errors.Is(err, wire.ErrEmptyFilename):
		return wire.CodeFileNotFound
	case errors.Is(err, wire.ErrUnknownOpcode):
		return wire.CodeIllegalOperation
	default:
		return wire.CodeNotDefined
	}
}

func storageErrorCode(err error) wire.ErrCode {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrEmptyPath):
		return wire.CodeFileNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return wire.CodeFileExists
	case errors.Is(err, storage.ErrAccessViolation):
		return wire.CodeAccessViolation
	default:
		return wire.CodeNotDefined
	}
}

// reject sends one best-effort error datagram from the rendezvous socket.
// A malformed request has no transfer to error against persistently, so no
// session is created and delivery is not retried.
func (s *Server) reject(peer *net.UDPAddr, code wire.ErrCode, msg string) {
	pkt := wire.Error{Code: code, Message: msg}
	b, err := pkt.MarshalBinary()
	if err == nil {
		_, err = s.conn.WriteToUDP(b, peer)
	}
	if err != nil {
		logger.WithError(err).WithField("peer", peer.String()).Warn("send request error failed")
		return
	}
	logger.WithFields(logrus.Fields{
		"peer": peer.String(),
		"code": code.String(),
		"msg":  msg,
	}).Info("rejected request")
}

// spawn allocates a fresh ephemeral socket, hands it and the open source or
// sink to a new session, and runs the session on its own goroutine.
func (s *Server) spawn(ctx context.Context, peer *net.UDPAddr, filename string, src io.ReadCloser, sink io.WriteCloser) {
	closeAll := func() {
		if src != nil {
			_ = src.Close()
		}
		if sink != nil {
			_ = sink.Close()
		}
	}
	conn, err := transfer.Bind()
	if err != nil {
		logger.WithError(err).Warn("bind session socket failed")
		closeAll()
		s.reject(peer, wire.CodeNotDefined, "cannot allocate transfer socket")
		return
	}
	cfgs := []transfer.Cfg{
		transfer.WithConn(conn),
		transfer.WithPeer(peer),
		transfer.WithTimeout(s.timeout),
		transfer.WithMaxRetries(s.maxRetries),
	}
	if src != nil {
		cfgs = append(cfgs, transfer.WithSource(src))
	} else {
		cfgs = append(cfgs, transfer.WithSink(sink))
	}
	sess, err := transfer.NewSession(cfgs...)
	if err != nil {
		logger.WithError(err).Warn("create session failed")
		closeAll()
		_ = conn.Close()
		s.reject(peer, wire.CodeNotDefined, "cannot create transfer session")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer conn.Close()
		fields := logrus.Fields{
			"session": sess.ID().String(),
			"peer":    peer.String(),
			"file":    filename,
			"dir":     sess.Direction().String(),
			"local":   conn.LocalAddr().String(),
		}
		err := sess.Run(ctx)
		if src != nil {
			_ = src.Close()
		}
		if sink != nil {
			if cerr := sink.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "close sink failed")
			}
		}
		if err != nil {
			logger.WithFields(fields).WithError(err).Warn("transfer aborted")
			return
		}
		logger.WithFields(fields).Info("transfer complete")
	}()
}
