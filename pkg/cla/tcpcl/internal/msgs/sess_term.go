// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// SessTermFlags are the flags of a SESS_TERM message.
type SessTermFlags uint64

// TerminationReply marks a SESS_TERM sent in response to a peer's SESS_TERM.
const TerminationReply SessTermFlags = 0x01

func (stf SessTermFlags) String() string {
	if stf&TerminationReply != 0 {
		return "REPLY"
	}
	return ""
}

// SessTermCode is the termination reason of a SESS_TERM message.
type SessTermCode uint64

const (
	// TerminationUnknown indicates an unknown or not specified reason.
	TerminationUnknown SessTermCode = 0x00

	// TerminationIdleTimeout indicates a session being closed for idleness.
	TerminationIdleTimeout SessTermCode = 0x01

	// TerminationVersionMismatch indicates that the entity cannot speak this protocol version.
	TerminationVersionMismatch SessTermCode = 0x02

	// TerminationBusy indicates a too busy entity.
	TerminationBusy SessTermCode = 0x03

	// TerminationResourceExhaustion indicates insufficient resources to continue.
	TerminationResourceExhaustion SessTermCode = 0x04
)

func (stc SessTermCode) String() string {
	switch stc {
	case TerminationUnknown:
		return "Unknown"
	case TerminationIdleTimeout:
		return "Idle Timeout"
	case TerminationVersionMismatch:
		return "Version Mismatch"
	case TerminationBusy:
		return "Busy"
	case TerminationResourceExhaustion:
		return "Resource Exhaustion"
	default:
		return "INVALID"
	}
}

// IsValid checks if this SessTermCode represents a known value.
func (stc SessTermCode) IsValid() bool {
	return stc.String() != "INVALID"
}

// SESS_TERM is the message type code for a Session Termination Message.
const SESS_TERM uint8 = 0x05

// SessTermMessage is the SESS_TERM message starting or answering a graceful
// session shutdown.
type SessTermMessage struct {
	Flags  SessTermFlags
	Reason SessTermCode
}

// NewSessTermMessage with given fields.
func NewSessTermMessage(flags SessTermFlags, reason SessTermCode) *SessTermMessage {
	return &SessTermMessage{
		Flags:  flags,
		Reason: reason,
	}
}

func (st SessTermMessage) String() string {
	return fmt.Sprintf("SESS_TERM(Flags=%v, Reason=%v)", st.Flags, st.Reason)
}

func (st *SessTermMessage) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(st.Flags), w); err != nil {
		return err
	}
	return cboring.WriteUInt(uint64(st.Reason), w)
}

func (st *SessTermMessage) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return fmt.Errorf("SESS_TERM has array length %d, expected 2", n)
	}

	if flags, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if st.Flags = SessTermFlags(flags); st.Flags&^TerminationReply != 0 {
		return fmt.Errorf("SESS_TERM flags %#x are invalid", flags)
	}

	if reason, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if st.Reason = SessTermCode(reason); !st.Reason.IsValid() {
		return fmt.Errorf("SESS_TERM reason %#x is invalid", reason)
	}

	return nil
}

func (st *SessTermMessage) Marshal(w io.Writer) error {
	return marshalFrame(SESS_TERM, st, w)
}

func (st *SessTermMessage) Unmarshal(r io.Reader) error {
	return unmarshalFrame(SESS_TERM, st, r)
}
