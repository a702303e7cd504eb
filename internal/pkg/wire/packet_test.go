package wire

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input Packet
	}{
		{
			name:  "read request",
			input: ReadRequest{Filename: "kernel.img", Mode: ModeOctet},
		},
		{
			name:  "write request",
			input: WriteRequest{Filename: "upload/config.txt", Mode: ModeNetascii},
		},
		{
			name:  "data with payload",
			input: Data{Block: 7, Payload: []byte("hello world")},
		},
		{
			name:  "data with full block",
			input: Data{Block: 65535, Payload: bytes.Repeat([]byte{0xab}, BlockSize)},
		},
		{
			name:  "data with empty payload",
			input: Data{Block: 3, Payload: []byte{}},
		},
		{
			name:  "ack",
			input: Ack{Block: 42},
		},
		{
			name:  "error",
			input: Error{Code: CodeFileNotFound, Message: "file not found"},
		},
		{
			name:  "error with empty message",
			input: Error{Code: CodeNotDefined, Message: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.input.MarshalBinary()
			require.NoError(t, err)
			got, err := Unmarshal(encoded)
			require.NoError(t, err)
			require.Equal(t, tt.input, got)
		})
	}
}

func TestMarshalLayout(t *testing.T) {
	tests := []struct {
		name  string
		input Packet
		want  []byte
	}{
		{
			name:  "read request",
			input: ReadRequest{Filename: "a.txt", Mode: ModeOctet},
			want:  []byte{0, 1, 'a', '.', 't', 'x', 't', 0, 'o', 'c', 't', 'e', 't', 0},
		},
		{
			name:  "write request",
			input: WriteRequest{Filename: "b", Mode: ModeMail},
			want:  []byte{0, 2, 'b', 0, 'm', 'a', 'i', 'l', 0},
		},
		{
			name:  "data",
			input: Data{Block: 258, Payload: []byte{0xde, 0xad}},
			want:  []byte{0, 3, 1, 2, 0xde, 0xad},
		},
		{
			name:  "ack",
			input: Ack{Block: 1},
			want:  []byte{0, 4, 0, 1},
		},
		{
			name:  "error",
			input: Error{Code: CodeUnknownTransferID, Message: "?"},
			want:  []byte{0, 5, 0, 5, '?', 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.MarshalBinary()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{
			name:  "single byte",
			input: []byte{0},
			want:  ErrMalformedPacket,
		},
		{
			name:  "unrecognized opcode",
			input: []byte{0, 6, 'x', 0},
			want:  ErrUnknownOpcode,
		},
		{
			name:  "request missing mode terminator",
			input: []byte{0, 1, 'a', 0, 'o', 'c', 't', 'e', 't'},
			want:  ErrMalformedPacket,
		},
		{
			name:  "request missing filename terminator",
			input: []byte{0, 1, 'a'},
			want:  ErrMalformedPacket,
		},
		{
			name:  "unrecognized mode",
			input: []byte{0, 1, 'a', 0, 'f', 'o', 'o', 0},
			want:  ErrUnknownMode,
		},
		{
			name:  "empty filename",
			input: []byte{0, 1, 0, 'o', 'c', 't', 'e', 't', 0},
			want:  ErrEmptyFilename,
		},
		{
			name:  "filename not UTF-8",
			input: []byte{0, 1, 0xff, 0xfe, 0, 'o', 'c', 't', 'e', 't', 0},
			want:  ErrMalformedPacket,
		},
		{
			name:  "data shorter than header",
			input: []byte{0, 3, 0},
			want:  ErrMalformedPacket,
		},
		{
			name:  "data payload over block size",
			input: append([]byte{0, 3, 0, 1}, make([]byte, BlockSize+1)...),
			want:  ErrMalformedPacket,
		},
		{
			name:  "ack too long",
			input: []byte{0, 4, 0, 1, 0},
			want:  ErrMalformedPacket,
		},
		{
			name:  "ack too short",
			input: []byte{0, 4, 0},
			want:  ErrMalformedPacket,
		},
		{
			name:  "error missing message terminator",
			input: []byte{0, 5, 0, 1, 'x'},
			want:  ErrMalformedPacket,
		},
		{
			name:  "error code out of range",
			input: []byte{0, 5, 0, 8, 0},
			want:  ErrMalformedPacket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.input)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestUnmarshalModeIsCaseInsensitive(t *testing.T) {
	pkt, err := Unmarshal([]byte{0, 2, 'f', 0, 'N', 'e', 't', 'A', 's', 'c', 'i', 'i', 0})
	require.NoError(t, err)
	require.Equal(t, WriteRequest{Filename: "f", Mode: ModeNetascii}, pkt)
}

func TestUnmarshalIgnoresRequestOptions(t *testing.T) {
	// RFC 2347 option extensions follow the mode terminator; we accept and
	// ignore them.
	pkt, err := Unmarshal([]byte{0, 1, 'f', 0, 'o', 'c', 't', 'e', 't', 0, 'b', 'l', 'k', 's', 'i', 'z', 'e', 0, '1', '4', '3', '2', 0})
	require.NoError(t, err)
	require.Equal(t, ReadRequest{Filename: "f", Mode: ModeOctet}, pkt)
}

func TestErrCodeNames(t *testing.T) {
	require.Equal(t, "FILE_NOT_FOUND", CodeFileNotFound.String())
	require.Equal(t, "NO_SUCH_USER", CodeNoSuchUser.String())
	require.Equal(t, "INVALID", ErrCode(8).String())
	require.Equal(t, "illegal TFTP operation", CodeIllegalOperation.Message())
}
