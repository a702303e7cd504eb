// Package transfer implements the per-session stop-and-wait state machine.
//
// A read-direction session performs the following steps:
//	1. Read up to one block of the source and send it as the next DATA packet.
//	2. Wait for the matching ACK, ignoring stale acknowledgments and answering
//	   foreign senders with an UNKNOWN_TRANSFER_ID error.
//	3. On timeout, resend the same DATA packet, up to the retry bound.
//	4. When the matching ACK arrives, advance to the next block; a block
//	   shorter than the full block size completes the transfer.
//
// A write-direction session mirrors these steps: it waits for the next
// expected DATA block, appends it to the sink and acknowledges it, re-acking
// duplicates of the last acknowledged block without writing them again.
//
// Any packet the current state does not permit is answered with one
// ILLEGAL_OPERATION error datagram and aborts the session; an error packet
// from the peer aborts it silently. Exhausting the retry bound presumes the
// peer gone and aborts without a further send.
//
// A session owns its Conn (an ephemeral UDP socket in production) and its
// byte source or sink exclusively; sessions share no state with one another.
package transfer
