// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stages

import (
	"fmt"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
)

// SessInitStage models the session initialization resp. SESS_INIT exchange.
//
// Both entities advertise their MRUs and node IDs. The peer's segment MRU becomes
// our segment MTU for outgoing XFER_SEGMENTs.
type SessInitStage struct {
	state     *State
	closeChan <-chan struct{}
}

// Handle this Stage's action based on the previous Stage's State and the StageHandler's close channel.
func (si *SessInitStage) Handle(state *State, closeChan <-chan struct{}) {
	si.state = state
	si.closeChan = closeChan

	siOut := msgs.NewSessInitMessage(
		si.state.Configuration.SegmentMru,
		si.state.Configuration.TransferMru,
		si.state.Configuration.NodeId.String())

	var (
		siIn *msgs.SessInitMessage
		err  error
	)

	if si.state.Configuration.ActivePeer {
		si.state.MsgOut <- siOut
		siIn, err = si.receiveMsgOrClose()
	} else {
		siIn, err = si.receiveMsgOrClose()
		if err == nil {
			si.state.MsgOut <- siOut
		}
	}

	if err == nil {
		si.state.SegmentMtu = siIn.SegmentMru
		si.state.TransferMtu = siIn.TransferMru
		si.state.PeerNodeId, err = bpv7.NewEndpointID(siIn.NodeId)
	}

	si.state.StageError = err
}

func (si *SessInitStage) receiveMsgOrClose() (siIn *msgs.SessInitMessage, err error) {
	select {
	case <-si.closeChan:
		err = StageClose
		return

	case msg := <-si.state.MsgIn:
		var ok bool
		if siIn, ok = msg.(*msgs.SessInitMessage); !ok {
			err = fmt.Errorf("received message has invalid type %T", msg)
			siIn = nil
		}
		return
	}
}
