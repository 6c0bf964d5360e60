// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tcpcl

import (
	"errors"
	"time"

	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/stages"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/utils"
)

// ErrContactHeaderMismatch indicates a peer with an unknown Contact Header magic
// or an unsupported protocol version.
var ErrContactHeaderMismatch = msgs.ErrContactHeaderMismatch

// ErrSessionStalled indicates an established session without any traffic for twice
// the negotiated keepalive interval.
var ErrSessionStalled = stages.ErrSessionStalled

// ErrSessionNotEstablished is returned when sending a bundle over a session which
// is not in the SessionEstablished or SessionTransferring state.
var ErrSessionNotEstablished = errors.New("session is not established")

// SessionState describes the state of a Client's session.
type SessionState int32

const (
	// SessionIdle is a created, not yet started session.
	SessionIdle SessionState = iota

	// SessionConnecting is an active session dialing its peer.
	SessionConnecting

	// SessionContactNegotiation covers the Contact Header and SESS_INIT exchanges.
	SessionContactNegotiation

	// SessionEstablished is a negotiated session without running transfers.
	SessionEstablished

	// SessionTransferring is an established session with at least one unacknowledged
	// outbound or unfinished inbound transfer.
	SessionTransferring

	// SessionTerminating is a session amidst its two-way SESS_TERM exchange.
	SessionTerminating

	// SessionClosedClean is a gracefully closed session.
	SessionClosedClean

	// SessionClosedError is a session closed by a failure, to be inspected by Err.
	SessionClosedError
)

func (ss SessionState) String() string {
	switch ss {
	case SessionIdle:
		return "idle"
	case SessionConnecting:
		return "connecting"
	case SessionContactNegotiation:
		return "contact negotiation"
	case SessionEstablished:
		return "established"
	case SessionTransferring:
		return "transferring"
	case SessionTerminating:
		return "terminating"
	case SessionClosedClean:
		return "closed"
	case SessionClosedError:
		return "closed with error"
	default:
		return "INVALID"
	}
}

// SessionStats are the transfer statistics of one session, emitted verbatim on request.
type SessionStats struct {
	// EstablishedAt is the time of the finished session initialization, zero beforehand.
	EstablishedAt time.Time

	// BytesSent counts the enqueued payload bytes of outbound transfers.
	BytesSent uint64
	// BytesAcked counts the payload bytes of completely acknowledged outbound transfers.
	BytesAcked uint64
	// BytesReceived counts the received payload bytes of inbound transfers.
	BytesReceived uint64

	// TransfersSent counts the completely acknowledged outbound transfers.
	TransfersSent uint64
	// TransfersReceived counts the finished inbound transfers.
	TransfersReceived uint64
	// TransfersRefused counts the outbound transfers refused by the peer.
	TransfersRefused uint64

	// Retransmissions is always zero; a dropped connection is hard loss, there is no in-session resume.
	Retransmissions uint64
}

// Elapsed time since this session was established.
func (ss SessionStats) Elapsed() time.Duration {
	if ss.EstablishedAt.IsZero() {
		return 0
	}
	return time.Since(ss.EstablishedAt)
}

func sessionStatsFromTransfers(establishedAt time.Time, ts utils.TransferStats) SessionStats {
	return SessionStats{
		EstablishedAt: establishedAt,

		BytesSent:     ts.BytesSent,
		BytesAcked:    ts.BytesAcked,
		BytesReceived: ts.BytesReceived,

		TransfersSent:     ts.TransfersSent,
		TransfersReceived: ts.TransfersReceived,
		TransfersRefused:  ts.TransfersRefused,
	}
}
