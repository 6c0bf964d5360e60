// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package stages provides the stages of a TCP Convergence Layer session's state machine.
//
// A session passes a contact negotiation stage, a session initialization stage and finally
// an established stage, executed in order by a StageHandler.
package stages

import (
	"errors"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
)

// Configuration for stages.
type Configuration struct {
	// ActivePeer indicates if this peer is the "active" entity in the session.
	ActivePeer bool

	// ContactFlags determine the Contact Header.
	ContactFlags uint8

	// Keepalive in seconds, to be advertised within the Contact Header.
	Keepalive uint16

	// SegmentMru is the largest allowed single-segment payload to be received in bytes.
	SegmentMru uint64

	// TransferMru is the largest allowed total-bundle payload to be received in bytes.
	TransferMru uint64

	// NodeId is this node's ID.
	NodeId bpv7.EndpointID
}

// StageClose signals a closed stage, after calling the Close() method.
var StageClose = errors.New("stage closed down")

// ErrSessionStalled signals an established session without any traffic for twice
// the negotiated keepalive interval.
var ErrSessionStalled = errors.New("session stalled, keepalive timeout")

// State for stages, both used as input and as an altered output.
type State struct {
	// Configuration to be used; should not be altered.
	Configuration Configuration

	// MsgIn and MsgOut are channels for incoming (receiving) and outgoing (sending) messages with an
	// underlying connector, e.g., an utils.MessageSwitch.
	MsgIn  <-chan msgs.Message
	MsgOut chan<- msgs.Message

	// ExchangeMsgIn and ExchangeMsgOut are channels for incoming (receiving) and outgoing (sending)
	// messages with a higher-level util, e.g., an utils.TransferManager.
	ExchangeMsgIn  chan msgs.Message
	ExchangeMsgOut chan msgs.Message

	// StageError reports back the failure of a stage.
	StageError error

	// CONTACT STAGE
	// ContactFlags are the received Contact Header's flags.
	ContactFlags uint8
	// Keepalive is the minimum of the own and the received Contact Header's keepalive in seconds.
	// Zero indicates a disabled keepalive.
	Keepalive uint16
	// CONTACT STAGE END

	// SESS INIT STAGE
	// SegmentMtu is the peer's segment MRU, thus our segment MTU.
	SegmentMtu uint64
	// TransferMtu is the peer's transfer MRU, thus our transfer MTU.
	TransferMtu uint64
	// PeerNodeId is the peer's node ID.
	PeerNodeId bpv7.EndpointID
	// SESS INIT STAGE END
}

// Stage described by this interface.
type Stage interface {
	// Handle this Stage's action based on the previous Stage's State and the StageHandler's close channel.
	Handle(state *State, closeChan <-chan struct{})
}
