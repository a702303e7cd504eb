package transfer

import (
	"fmt"

	"tftp/internal/pkg/wire"

	"github.com/pkg/errors"
)

// ErrReceiveTimeout is returned by a Conn when no datagram arrives within the wait.
var ErrReceiveTimeout = errors.New("receive timed out")

// ErrTimeoutExhausted indicates the retry bound was reached with no response
// from the peer.
var ErrTimeoutExhausted = errors.New("retries exhausted waiting for peer")

// ErrProtocolViolation indicates the peer sent a packet the session's state
// does not permit.
var ErrProtocolViolation = errors.New("protocol violation")

// PeerError is an abort caused by an error packet received from the peer.
type PeerError struct {
	Code    wire.ErrCode
	Message string
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("peer reported error %d (%s): %s", uint16(e.Code), e.Code, e.Message)
}
