// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package utils

import (
	"bytes"
	"fmt"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
)

// IncomingTransfer is the reassembly buffer for one incoming bundle transfer,
// fed segment by segment.
type IncomingTransfer struct {
	Id uint64

	endFlag bool
	buf     *bytes.Buffer
}

// NewIncomingTransfer creates a new IncomingTransfer for the given transfer ID.
func NewIncomingTransfer(id uint64) *IncomingTransfer {
	return &IncomingTransfer{
		Id:  id,
		buf: new(bytes.Buffer),
	}
}

func (t IncomingTransfer) String() string {
	return fmt.Sprintf("INCOMING_TRANSFER(%d)", t.Id)
}

// IsFinished indicates if this transfer has received its last segment.
func (t IncomingTransfer) IsFinished() bool {
	return t.endFlag
}

// NextSegment consumes a XFER_SEGMENT and returns the cumulative XFER_ACK to be
// sent back, or an error.
func (t *IncomingTransfer) NextSegment(xs *msgs.XferSegmentMessage) (xa *msgs.XferAckMessage, err error) {
	if t.IsFinished() {
		err = fmt.Errorf("transfer has already received an end flag")
		return
	}

	if t.Id != xs.TransferId {
		err = fmt.Errorf("XFER_SEGMENT's transfer ID %d mismatches %d", xs.TransferId, t.Id)
		return
	}

	if n, writeErr := t.buf.Write(xs.Data); writeErr != nil {
		err = writeErr
		return
	} else if n != len(xs.Data) {
		err = fmt.Errorf("buffered %d instead of %d bytes", n, len(xs.Data))
		return
	}

	if xs.Flags&msgs.SegmentEnd != 0 {
		t.endFlag = true
	}

	xa = msgs.NewXferAckMessage(xs.Flags, xs.TransferId, uint64(t.buf.Len()))
	return
}

// ToBundle returns the Bundle of a finished transfer.
func (t *IncomingTransfer) ToBundle() (bndl bpv7.Bundle, err error) {
	if !t.IsFinished() {
		err = fmt.Errorf("transfer has not been finished")
		return
	}

	err = bndl.UnmarshalCbor(t.buf)
	return
}
