package server_test

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"tftp/internal/pkg/server"
	"tftp/internal/pkg/storage"
	"tftp/internal/pkg/wire"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, store storage.Store) (*server.Server, func()) {
	t.Helper()
	srv, err := server.NewServer(
		server.WithStore(store),
		server.WithAddr("127.0.0.1:0"),
		server.WithTimeout(250*time.Millisecond),
		server.WithMaxRetries(2),
	)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	return srv, func() {
		cancel()
		<-done
	}
}

func clientSocket(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendPacket(t *testing.T, conn *net.UDPConn, pkt wire.Packet, to net.Addr) {
	t.Helper()
	b, err := pkt.MarshalBinary()
	require.NoError(t, err)
	_, err = conn.WriteTo(b, to)
	require.NoError(t, err)
}

func recvPacket(t *testing.T, conn *net.UDPConn) (wire.Packet, *net.UDPAddr) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	n, from, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	pkt, err := wire.Unmarshal(buf[:n])
	require.NoError(t, err)
	return pkt, from
}

func TestServeReadTransfer(t *testing.T) {
	store := storage.NewMemoryStore()
	content := bytes.Repeat([]byte{0xcd}, 700)
	store.Add("image.bin", content)
	srv, stop := startServer(t, store)
	defer stop()

	conn := clientSocket(t)
	sendPacket(t, conn, wire.ReadRequest{Filename: "image.bin", Mode: wire.ModeOctet}, srv.Addr())

	var got []byte
	for {
		pkt, from := recvPacket(t, conn)
		data, ok := pkt.(wire.Data)
		require.True(t, ok, "expected DATA, got %T", pkt)
		got = append(got, data.Payload...)
		sendPacket(t, conn, wire.Ack{Block: data.Block}, from)
		if len(data.Payload) < wire.BlockSize {
			break
		}
	}
	require.Equal(t, content, got)
}

func TestServeReadMissingFile(t *testing.T) {
	srv, stop := startServer(t, storage.NewMemoryStore())
	defer stop()

	conn := clientSocket(t)
	sendPacket(t, conn, wire.ReadRequest{Filename: "nope.bin", Mode: wire.ModeOctet}, srv.Addr())

	pkt, _ := recvPacket(t, conn)
	errPkt, ok := pkt.(wire.Error)
	require.True(t, ok, "expected ERROR, got %T", pkt)
	require.Equal(t, wire.CodeFileNotFound, errPkt.Code)
}

func TestServeWriteExistingFileRejected(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Add("taken.bin", []byte("old"))
	srv, stop := startServer(t, store)
	defer stop()

	conn := clientSocket(t)
	sendPacket(t, conn, wire.WriteRequest{Filename: "taken.bin", Mode: wire.ModeOctet}, srv.Addr())

	pkt, _ := recvPacket(t, conn)
	errPkt, ok := pkt.(wire.Error)
	require.True(t, ok, "expected ERROR, got %T", pkt)
	require.Equal(t, wire.CodeFileExists, errPkt.Code)
}

func TestServeMalformedRequest(t *testing.T) {
	srv, stop := startServer(t, storage.NewMemoryStore())
	defer stop()

	conn := clientSocket(t)
	// A valid filename with an unrecognized transfer mode.
	_, err := conn.WriteTo([]byte{0, 1, 'f', 0, 'f', 'o', 'o', 0}, srv.Addr())
	require.NoError(t, err)

	pkt, _ := recvPacket(t, conn)
	errPkt, ok := pkt.(wire.Error)
	require.True(t, ok, "expected ERROR, got %T", pkt)
	require.Equal(t, wire.CodeAccessViolation, errPkt.Code)
}

func TestServeNonRequestPacket(t *testing.T) {
	srv, stop := startServer(t, storage.NewMemoryStore())
	defer stop()

	conn := clientSocket(t)
	sendPacket(t, conn, wire.Ack{Block: 1}, srv.Addr())

	pkt, _ := recvPacket(t, conn)
	errPkt, ok := pkt.(wire.Error)
	require.True(t, ok, "expected ERROR, got %T", pkt)
	require.Equal(t, wire.CodeIllegalOperation, errPkt.Code)
}

func TestServeConcurrentReads(t *testing.T) {
	store := storage.NewMemoryStore()
	content := bytes.Repeat([]byte{0x11}, 1024)
	store.Add("shared.bin", content)
	srv, stop := startServer(t, store)
	defer stop()

	results := make(chan []byte, 2)
	for i := 0; i < 2; i++ {
		conn := clientSocket(t)
		go func(conn *net.UDPConn) {
			b, err := wire.ReadRequest{Filename: "shared.bin", Mode: wire.ModeOctet}.MarshalBinary()
			if err != nil {
				results <- nil
				return
			}
			if _, err := conn.WriteTo(b, srv.Addr()); err != nil {
				results <- nil
				return
			}
			var got []byte
			buf := make([]byte, 2048)
			for {
				if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
					results <- nil
					return
				}
				n, from, err := conn.ReadFromUDP(buf)
				if err != nil {
					results <- nil
					return
				}
				pkt, err := wire.Unmarshal(buf[:n])
				if err != nil {
					results <- nil
					return
				}
				data, ok := pkt.(wire.Data)
				if !ok {
					results <- nil
					return
				}
				got = append(got, data.Payload...)
				ab, err := wire.Ack{Block: data.Block}.MarshalBinary()
				if err != nil {
					results <- nil
					return
				}
				if _, err := conn.WriteTo(ab, from); err != nil {
					results <- nil
					return
				}
				if len(data.Payload) < wire.BlockSize {
					results <- got
					return
				}
			}
		}(conn)
	}
	for i := 0; i < 2; i++ {
		require.Equal(t, content, <-results)
	}
}
