// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// TransferRefusalCode is the refusal reason of a XFER_REFUSE message.
type TransferRefusalCode uint64

const (
	// RefusalUnknown indicates an unknown or not specified reason.
	RefusalUnknown TransferRefusalCode = 0x00

	// RefusalCompleted indicates that the receiver already has the complete bundle.
	RefusalCompleted TransferRefusalCode = 0x01

	// RefusalNoResources indicates that the receiver's resources are exhausted.
	RefusalNoResources TransferRefusalCode = 0x02

	// RefusalNotAcceptable indicates a problem regarding the transferred data.
	// The sender should not retry the same transfer.
	RefusalNotAcceptable TransferRefusalCode = 0x03

	// RefusalSessionTerminating indicates the receiving entity is terminating this session.
	RefusalSessionTerminating TransferRefusalCode = 0x04
)

func (trc TransferRefusalCode) String() string {
	switch trc {
	case RefusalUnknown:
		return "Unknown"
	case RefusalCompleted:
		return "Completed"
	case RefusalNoResources:
		return "No Resources"
	case RefusalNotAcceptable:
		return "Not Acceptable"
	case RefusalSessionTerminating:
		return "Session Terminating"
	default:
		return "INVALID"
	}
}

// IsValid checks if this TransferRefusalCode represents a known value.
func (trc TransferRefusalCode) IsValid() bool {
	return trc.String() != "INVALID"
}

// XFER_REFUSE is the message type code for a Transfer Refusal Message.
const XFER_REFUSE uint8 = 0x03

// XferRefuseMessage is the XFER_REFUSE message rejecting a transfer.
type XferRefuseMessage struct {
	Reason     TransferRefusalCode
	TransferId uint64
}

// NewXferRefuseMessage with given fields.
func NewXferRefuseMessage(reason TransferRefusalCode, tid uint64) *XferRefuseMessage {
	return &XferRefuseMessage{
		Reason:     reason,
		TransferId: tid,
	}
}

func (xr XferRefuseMessage) String() string {
	return fmt.Sprintf("XFER_REFUSE(Reason=%v, Transfer ID=%d)", xr.Reason, xr.TransferId)
}

func (xr *XferRefuseMessage) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(xr.Reason), w); err != nil {
		return err
	}
	return cboring.WriteUInt(xr.TransferId, w)
}

func (xr *XferRefuseMessage) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return fmt.Errorf("XFER_REFUSE has array length %d, expected 2", n)
	}

	if reason, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if xr.Reason = TransferRefusalCode(reason); !xr.Reason.IsValid() {
		return fmt.Errorf("XFER_REFUSE reason %#x is invalid", reason)
	}

	var err error
	xr.TransferId, err = cboring.ReadUInt(r)
	return err
}

func (xr *XferRefuseMessage) Marshal(w io.Writer) error {
	return marshalFrame(XFER_REFUSE, xr, w)
}

func (xr *XferRefuseMessage) Unmarshal(r io.Reader) error {
	return unmarshalFrame(XFER_REFUSE, xr, r)
}
