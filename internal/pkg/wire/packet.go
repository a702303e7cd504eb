// Package wire implements the TFTP wire format: five packet types framed as
// big-endian binary datagrams, per RFC 1350.
package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// BlockSize is the fixed payload size of a full data block. A data packet
// carrying fewer than BlockSize bytes terminates the transfer.
const BlockSize = 512

// Opcode identifies a TFTP packet type.
type Opcode uint16

// Opcodes, in wire order.
const (
	OpRrq Opcode = iota + 1
	OpWrq
	OpData
	OpAck
	OpError
)

// String implements the Stringer interface for printing Opcode values.
func (o Opcode) String() string {
	switch o {
	case OpRrq:
		return "RRQ"
	case OpWrq:
		return "WRQ"
	case OpData:
		return "DATA"
	case OpAck:
		return "ACK"
	case OpError:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// Mode is a transfer mode carried by a request packet.
type Mode string

// Transfer modes. The payload is moved verbatim in every mode.
const (
	ModeOctet    Mode = "octet"
	ModeNetascii Mode = "netascii"
	ModeMail     Mode = "mail"
)

// ParseMode normalizes the wire representation of a transfer mode,
// which is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeOctet:
		return ModeOctet, nil
	case ModeNetascii:
		return ModeNetascii, nil
	case ModeMail:
		return ModeMail, nil
	}
	return "", errors.Wrapf(ErrUnknownMode, "mode %q", s)
}

// Packet is the in-memory representation of one TFTP datagram.
type Packet interface {
	Op() Opcode
	MarshalBinary() ([]byte, error)
}

// ReadRequest asks the server to send the named file.
type ReadRequest struct {
	Filename string
	Mode     Mode
}

// WriteRequest asks the server to receive the named file.
type WriteRequest struct {
	Filename string
	Mode     Mode
}

// Data carries one block of file content. A payload shorter than BlockSize
// marks the final block of the transfer.
type Data struct {
	Block   uint16
	Payload []byte
}

// Ack acknowledges receipt of one data block.
type Ack struct {
	Block uint16
}

// Error reports a terminal protocol or storage failure to the peer.
type Error struct {
	Code    ErrCode
	Message string
}

// Op implements Packet.
func (p ReadRequest) Op() Opcode { return OpRrq }

// Op implements Packet.
func (p WriteRequest) Op() Opcode { return OpWrq }

// Op implements Packet.
func (p Data) Op() Opcode { return OpData }

// Op implements Packet.
func (p Ack) Op() Opcode { return OpAck }

// Op implements Packet.
func (p Error) Op() Opcode { return OpError }

func marshalRequest(op Opcode, filename string, mode Mode) ([]byte, error) {
	var buf bytes.Buffer
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(op))
	buf.Write(b)
	buf.WriteString(filename)
	buf.WriteByte(0)
	buf.WriteString(string(mode))
	buf.WriteByte(0)
	return buf.Bytes(), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p ReadRequest) MarshalBinary() ([]byte, error) {
	return marshalRequest(OpRrq, p.Filename, p.Mode)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p WriteRequest) MarshalBinary() ([]byte, error) {
	return marshalRequest(OpWrq, p.Filename, p.Mode)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Data) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4+len(p.Payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpData))
	binary.BigEndian.PutUint16(buf[2:4], p.Block)
	copy(buf[4:], p.Payload)
	return buf, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Ack) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(OpAck))
	binary.BigEndian.PutUint16(buf[2:4], p.Block)
	return buf, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Error) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 5+len(p.Message))
	buf = binary.BigEndian.AppendUint16(buf, uint16(OpError))
	buf = binary.BigEndian.AppendUint16(buf, uint16(p.Code))
	buf = append(buf, p.Message...)
	buf = append(buf, 0)
	return buf, nil
}

// Unmarshal parses a wire-format datagram into a Packet.
//
// It fails with ErrMalformedPacket when the datagram is shorter than an
// opcode, a NUL-terminated field has no terminator, a text field is not
// valid UTF-8, or a fixed-size field is the wrong length. Unrecognized
// opcodes fail with ErrUnknownOpcode, unrecognized transfer modes with
// ErrUnknownMode, and zero-length filenames with ErrEmptyFilename.
func Unmarshal(pkt []byte) (Packet, error) {
	if len(pkt) < 2 {
		return nil, errors.Wrap(ErrMalformedPacket, "packet shorter than opcode")
	}
	op := Opcode(binary.BigEndian.Uint16(pkt[0:2]))
	switch op {
	case OpRrq, OpWrq:
		filename, mode, err := unmarshalRequest(pkt[2:])
		if err != nil {
			return nil, err
		}
		if op == OpRrq {
			return ReadRequest{Filename: filename, Mode: mode}, nil
		}
		return WriteRequest{Filename: filename, Mode: mode}, nil
	case OpData:
		if len(pkt) < 4 {
			return nil, errors.Wrap(ErrMalformedPacket, "data packet shorter than header")
		}
		if len(pkt) > 4+BlockSize {
			return nil, errors.Wrapf(ErrMalformedPacket, "data payload of %d bytes exceeds block size", len(pkt)-4)
		}
		payload := make([]byte, len(pkt)-4)
		copy(payload, pkt[4:])
		return Data{Block: binary.BigEndian.Uint16(pkt[2:4]), Payload: payload}, nil
	case OpAck:
		if len(pkt) != 4 {
			return nil, errors.Wrapf(ErrMalformedPacket, "ack packet of %d bytes", len(pkt))
		}
		return Ack{Block: binary.BigEndian.Uint16(pkt[2:4])}, nil
	case OpError:
		if len(pkt) < 5 {
			return nil, errors.Wrap(ErrMalformedPacket, "error packet shorter than header")
		}
		code := ErrCode(binary.BigEndian.Uint16(pkt[2:4]))
		if !code.valid() {
			return nil, errors.Wrapf(ErrMalformedPacket, "error code %d out of range", uint16(code))
		}
		msg, rest, err := readCString(pkt[4:])
		if err != nil {
			return nil, errors.Wrap(err, "read error message failed")
		}
		if len(rest) != 0 {
			return nil, errors.Wrap(ErrMalformedPacket, "trailing bytes after error message")
		}
		return Error{Code: code, Message: msg}, nil
	}
	return nil, errors.Wrapf(ErrUnknownOpcode, "opcode %d", uint16(op))
}

func unmarshalRequest(body []byte) (string, Mode, error) {
	filename, rest, err := readCString(body)
	if err != nil {
		return "", "", errors.Wrap(err, "read filename failed")
	}
	rawMode, _, err := readCString(rest)
	if err != nil {
		return "", "", errors.Wrap(err, "read mode failed")
	}
	// Bytes past the mode terminator would be RFC 2347 options; we do not
	// negotiate them, so they are ignored rather than rejected.
	if filename == "" {
		return "", "", errors.Wrap(ErrEmptyFilename, "filename cannot be empty")
	}
	mode, err := ParseMode(rawMode)
	if err != nil {
		return "", "", err
	}
	return filename, mode, nil
}

// readCString splits off a NUL-terminated UTF-8 string, returning the string
// and the bytes following the terminator.
func readCString(b []byte) (string, []byte, error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", nil, errors.Wrap(ErrMalformedPacket, "missing NUL terminator")
	}
	if !utf8.Valid(b[:i]) {
		return "", nil, errors.Wrap(ErrMalformedPacket, "field is not valid UTF-8")
	}
	return string(b[:i]), b[i+1:], nil
}
