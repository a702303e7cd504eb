package wire

import "github.com/pkg/errors"

// ErrMalformedPacket indicates a datagram that cannot be parsed as any packet type.
var ErrMalformedPacket = errors.New("malformed packet")

// ErrUnknownOpcode indicates an opcode outside the protocol's range.
var ErrUnknownOpcode = errors.New("unknown opcode")

// ErrUnknownMode indicates a transfer mode that is not octet, netascii or mail.
var ErrUnknownMode = errors.New("unknown transfer mode")

// ErrEmptyFilename indicates a request with a zero-length filename.
var ErrEmptyFilename = errors.New("empty filename")
