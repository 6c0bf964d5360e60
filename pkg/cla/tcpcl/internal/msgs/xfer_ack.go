// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// XFER_ACK is the message type code for a Data Acknowledgement Message.
const XFER_ACK uint8 = 0x02

// XferAckMessage is the XFER_ACK message acknowledging a received
// XFER_SEGMENT. AckLen is the cumulative amount of bytes received for this
// transfer, the flags echo the acknowledged segment's flags.
type XferAckMessage struct {
	Flags      SegmentFlags
	TransferId uint64
	AckLen     uint64
}

// NewXferAckMessage with given fields.
func NewXferAckMessage(flags SegmentFlags, tid, ackLen uint64) *XferAckMessage {
	return &XferAckMessage{
		Flags:      flags,
		TransferId: tid,
		AckLen:     ackLen,
	}
}

func (xa XferAckMessage) String() string {
	return fmt.Sprintf("XFER_ACK(Flags=%v, Transfer ID=%d, Acknowledged Length=%d)",
		xa.Flags, xa.TransferId, xa.AckLen)
}

func (xa *XferAckMessage) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(xa.Flags), w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(xa.TransferId, w); err != nil {
		return err
	}
	return cboring.WriteUInt(xa.AckLen, w)
}

func (xa *XferAckMessage) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 3 {
		return fmt.Errorf("XFER_ACK has array length %d, expected 3", n)
	}

	if flags, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if xa.Flags = SegmentFlags(flags); !xa.Flags.IsValid() {
		return fmt.Errorf("XFER_ACK flags %#x are invalid", flags)
	}

	var err error
	if xa.TransferId, err = cboring.ReadUInt(r); err != nil {
		return err
	}
	xa.AckLen, err = cboring.ReadUInt(r)
	return err
}

func (xa *XferAckMessage) Marshal(w io.Writer) error {
	return marshalFrame(XFER_ACK, xa, w)
}

func (xa *XferAckMessage) Unmarshal(r io.Reader) error {
	return unmarshalFrame(XFER_ACK, xa, r)
}
