// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stages

import (
	"fmt"

	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
)

// ContactStage models the initial Contact Header exchange.
//
// Both entities synchronously exchange their fixed Contact Header before any further traffic.
// The session's keepalive interval is negotiated here as the minimum of both headers' values.
type ContactStage struct {
	state     *State
	closeChan <-chan struct{}
}

// Handle this Stage's action based on the previous Stage's State and the StageHandler's close channel.
func (cs *ContactStage) Handle(state *State, closeChan <-chan struct{}) {
	cs.state = state
	cs.closeChan = closeChan

	chOut := msgs.NewContactHeader(cs.state.Configuration.ContactFlags, cs.state.Configuration.Keepalive)

	var (
		chIn *msgs.ContactHeader
		err  error
	)

	if cs.state.Configuration.ActivePeer {
		cs.state.MsgOut <- chOut
		chIn, err = cs.receiveMsgOrClose()
	} else {
		chIn, err = cs.receiveMsgOrClose()
		if err == nil {
			cs.state.MsgOut <- chOut
		}
	}

	if err == nil {
		cs.state.ContactFlags = chIn.Flags

		cs.state.Keepalive = cs.state.Configuration.Keepalive
		if chIn.Keepalive < cs.state.Keepalive {
			cs.state.Keepalive = chIn.Keepalive
		}
	}

	cs.state.StageError = err
}

func (cs *ContactStage) receiveMsgOrClose() (ch *msgs.ContactHeader, err error) {
	select {
	case <-cs.closeChan:
		err = StageClose
		return

	case msg := <-cs.state.MsgIn:
		var ok bool
		if ch, ok = msg.(*msgs.ContactHeader); !ok {
			err = fmt.Errorf("received message has invalid type %T", msg)
			ch = nil
		}

		return
	}
}
