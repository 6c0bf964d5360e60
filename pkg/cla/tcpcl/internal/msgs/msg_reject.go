// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// MsgRejectionReason is the rejection reason of a MSG_REJECT message.
type MsgRejectionReason uint64

const (
	// RejectionTypeUnknown indicates an unknown message type code.
	RejectionTypeUnknown MsgRejectionReason = 0x01

	// RejectionUnsupported indicates a message the entity cannot process.
	RejectionUnsupported MsgRejectionReason = 0x02

	// RejectionUnexpected indicates a message inappropriate for the session's state.
	RejectionUnexpected MsgRejectionReason = 0x03
)

func (mrr MsgRejectionReason) String() string {
	switch mrr {
	case RejectionTypeUnknown:
		return "Message Type Unknown"
	case RejectionUnsupported:
		return "Message Unsupported"
	case RejectionUnexpected:
		return "Message Unexpected"
	default:
		return "INVALID"
	}
}

// IsValid checks if this MsgRejectionReason represents a known value.
func (mrr MsgRejectionReason) IsValid() bool {
	return mrr.String() != "INVALID"
}

// MSG_REJECT is the message type code for a Message Rejection Message.
const MSG_REJECT uint8 = 0x06

// MsgRejectMessage is the MSG_REJECT message answering a problematic message,
// identified by its type code.
type MsgRejectMessage struct {
	Reason   MsgRejectionReason
	TypeCode uint8
}

// NewMsgRejectMessage with given fields.
func NewMsgRejectMessage(reason MsgRejectionReason, typeCode uint8) *MsgRejectMessage {
	return &MsgRejectMessage{
		Reason:   reason,
		TypeCode: typeCode,
	}
}

func (mr MsgRejectMessage) String() string {
	return fmt.Sprintf("MSG_REJECT(Reason=%v, Type Code=%#x)", mr.Reason, mr.TypeCode)
}

func (mr *MsgRejectMessage) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(mr.Reason), w); err != nil {
		return err
	}
	return cboring.WriteUInt(uint64(mr.TypeCode), w)
}

func (mr *MsgRejectMessage) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return fmt.Errorf("MSG_REJECT has array length %d, expected 2", n)
	}

	if reason, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if mr.Reason = MsgRejectionReason(reason); !mr.Reason.IsValid() {
		return fmt.Errorf("MSG_REJECT reason %#x is invalid", reason)
	}

	if typeCode, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if typeCode > 0xFF {
		return fmt.Errorf("MSG_REJECT type code %#x exceeds one octet", typeCode)
	} else {
		mr.TypeCode = uint8(typeCode)
	}

	return nil
}

func (mr *MsgRejectMessage) Marshal(w io.Writer) error {
	return marshalFrame(MSG_REJECT, mr, w)
}

func (mr *MsgRejectMessage) Unmarshal(r io.Reader) error {
	return unmarshalFrame(MSG_REJECT, mr, r)
}
