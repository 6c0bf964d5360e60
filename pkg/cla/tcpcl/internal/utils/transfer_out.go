// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
)

// OutgoingTransfer chunks one serialized bundle into XFER_SEGMENT messages.
//
// The data is serialized once on creation. Chunking is deterministic: the
// first segment carries the start flag, the last one the end flag, and all
// segments but the last are exactly the given MTU in size.
type OutgoingTransfer struct {
	Id uint64

	startFlag bool
	buf       *bytes.Buffer
}

// NewOutgoingTransfer creates a new OutgoingTransfer for raw data.
func NewOutgoingTransfer(id uint64, data []byte) *OutgoingTransfer {
	return &OutgoingTransfer{
		Id:        id,
		startFlag: true,
		buf:       bytes.NewBuffer(data),
	}
}

// NewBundleOutgoingTransfer creates a new OutgoingTransfer for a Bundle.
func NewBundleOutgoingTransfer(id uint64, b bpv7.Bundle) (*OutgoingTransfer, error) {
	var buf bytes.Buffer
	if err := b.WriteBundle(&buf); err != nil {
		return nil, err
	}

	return &OutgoingTransfer{
		Id:        id,
		startFlag: true,
		buf:       &buf,
	}, nil
}

func (t OutgoingTransfer) String() string {
	return fmt.Sprintf("OUTGOING_TRANSFER(%d)", t.Id)
}

// Length of the remaining data in bytes.
func (t OutgoingTransfer) Length() uint64 {
	return uint64(t.buf.Len())
}

// NextSegment creates the next XFER_SEGMENT for the given MTU, or io.EOF after
// the last segment was emitted.
func (t *OutgoingTransfer) NextSegment(mtu uint64) (xs *msgs.XferSegmentMessage, err error) {
	if t.buf.Len() == 0 {
		err = io.EOF
		return
	}

	var segFlags msgs.SegmentFlags
	if t.startFlag {
		t.startFlag = false
		segFlags |= msgs.SegmentStart
	}

	n := mtu
	if rest := uint64(t.buf.Len()); rest <= mtu {
		n = rest
		segFlags |= msgs.SegmentEnd
	}

	// Segments may outlive the next buffer read, copy instead of using Next's slice.
	data := make([]byte, n)
	if _, err = io.ReadFull(t.buf, data); err != nil {
		return
	}

	xs = msgs.NewXferSegmentMessage(segFlags, t.Id, data)
	return
}
