// Package server implements the TFTP session dispatcher.
//
// The server performs the following steps:
//	1. Binds the well-known rendezvous UDP socket and reads request datagrams.
//	2. Decodes each datagram; a datagram that is not a valid read or write
//	   request is answered with one best-effort error datagram and dropped,
//	   creating no session.
//	3. Opens the requested file through the storage collaborator, mapping
//	   storage failures to their wire error codes (missing file or empty name
//	   to FILE_NOT_FOUND, an existing upload target to FILE_EXISTS, permission
//	   problems to ACCESS_VIOLATION).
//	4. On success, binds a fresh ephemeral socket and hands it, the peer
//	   address and the open source or sink to a transfer session running on
//	   its own goroutine.
//
// Sessions are fully independent of the dispatcher and of each other; no
// failure in one transfer affects another or the accept loop. Canceling the
// serve context stops the accept loop and, through the shared context, the
// running sessions.
package server
