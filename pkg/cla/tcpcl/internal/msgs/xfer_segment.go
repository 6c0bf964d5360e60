// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// SegmentFlags are the flags of a XFER_SEGMENT message.
type SegmentFlags uint64

const (
	// SegmentEnd marks the last segment of a transfer.
	SegmentEnd SegmentFlags = 0x01

	// SegmentStart marks the first segment of a transfer.
	SegmentStart SegmentFlags = 0x02

	// segmentFlagsMask is the logical OR of all valid flags.
	segmentFlagsMask = SegmentEnd | SegmentStart
)

func (sf SegmentFlags) String() string {
	var flags []string
	if sf&SegmentStart != 0 {
		flags = append(flags, "START")
	}
	if sf&SegmentEnd != 0 {
		flags = append(flags, "END")
	}
	return strings.Join(flags, ",")
}

// IsValid checks if no unknown flag bits are set.
func (sf SegmentFlags) IsValid() bool {
	return sf&^segmentFlagsMask == 0
}

// XFER_SEGMENT is the message type code for a Data Transmission Message.
const XFER_SEGMENT uint8 = 0x01

// XferSegmentMessage is the XFER_SEGMENT message carrying one segment of a
// bundle transfer.
type XferSegmentMessage struct {
	Flags      SegmentFlags
	TransferId uint64
	Data       []byte
}

// NewXferSegmentMessage with given fields.
func NewXferSegmentMessage(flags SegmentFlags, tid uint64, data []byte) *XferSegmentMessage {
	return &XferSegmentMessage{
		Flags:      flags,
		TransferId: tid,
		Data:       data,
	}
}

func (xs XferSegmentMessage) String() string {
	return fmt.Sprintf("XFER_SEGMENT(Flags=%v, Transfer ID=%d, Data Length=%d)",
		xs.Flags, xs.TransferId, len(xs.Data))
}

func (xs *XferSegmentMessage) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(xs.Flags), w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(xs.TransferId, w); err != nil {
		return err
	}
	return cboring.WriteByteString(xs.Data, w)
}

func (xs *XferSegmentMessage) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 3 {
		return fmt.Errorf("XFER_SEGMENT has array length %d, expected 3", n)
	}

	if flags, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if xs.Flags = SegmentFlags(flags); !xs.Flags.IsValid() {
		return fmt.Errorf("XFER_SEGMENT flags %#x are invalid", flags)
	}

	var err error
	if xs.TransferId, err = cboring.ReadUInt(r); err != nil {
		return err
	}
	xs.Data, err = cboring.ReadByteString(r)
	return err
}

func (xs *XferSegmentMessage) Marshal(w io.Writer) error {
	return marshalFrame(XFER_SEGMENT, xs, w)
}

func (xs *XferSegmentMessage) Unmarshal(r io.Reader) error {
	return unmarshalFrame(XFER_SEGMENT, xs, r)
}
