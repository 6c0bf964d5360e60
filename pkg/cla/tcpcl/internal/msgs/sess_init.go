// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// SESS_INIT is the message type code for a Session Initialization Message.
const SESS_INIT uint8 = 0x07

// SessInitMessage is the SESS_INIT message advertising an entity's segment
// MRU, transfer MRU and node ID after a successful Contact Header exchange.
type SessInitMessage struct {
	SegmentMru  uint64
	TransferMru uint64
	NodeId      string
}

// NewSessInitMessage with given fields.
func NewSessInitMessage(segmentMru, transferMru uint64, nodeId string) *SessInitMessage {
	return &SessInitMessage{
		SegmentMru:  segmentMru,
		TransferMru: transferMru,
		NodeId:      nodeId,
	}
}

func (si SessInitMessage) String() string {
	return fmt.Sprintf("SESS_INIT(Segment MRU=%d, Transfer MRU=%d, Node ID=%s)",
		si.SegmentMru, si.TransferMru, si.NodeId)
}

func (si *SessInitMessage) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(si.SegmentMru, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(si.TransferMru, w); err != nil {
		return err
	}
	return cboring.WriteTextString(si.NodeId, w)
}

func (si *SessInitMessage) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 3 {
		return fmt.Errorf("SESS_INIT has array length %d, expected 3", n)
	}

	var err error
	if si.SegmentMru, err = cboring.ReadUInt(r); err != nil {
		return err
	}
	if si.TransferMru, err = cboring.ReadUInt(r); err != nil {
		return err
	}
	si.NodeId, err = cboring.ReadTextString(r)
	return err
}

func (si *SessInitMessage) Marshal(w io.Writer) error {
	return marshalFrame(SESS_INIT, si, w)
}

func (si *SessInitMessage) Unmarshal(r io.Reader) error {
	return unmarshalFrame(SESS_INIT, si, r)
}
