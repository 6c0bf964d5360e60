// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// KEEPALIVE is the message type code for a Session Keepalive Message.
const KEEPALIVE uint8 = 0x04

// KeepaliveMessage is the KEEPALIVE message, periodically exchanged on an
// otherwise idle session. Its payload is an empty CBOR array.
type KeepaliveMessage struct{}

// NewKeepaliveMessage creates a new KeepaliveMessage.
func NewKeepaliveMessage() *KeepaliveMessage {
	return &KeepaliveMessage{}
}

func (km KeepaliveMessage) String() string {
	return "KEEPALIVE"
}

func (km *KeepaliveMessage) MarshalCbor(w io.Writer) error {
	return cboring.WriteArrayLength(0, w)
}

func (km *KeepaliveMessage) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 0 {
		return fmt.Errorf("KEEPALIVE has array length %d, expected 0", n)
	}
	return nil
}

func (km *KeepaliveMessage) Marshal(w io.Writer) error {
	return marshalFrame(KEEPALIVE, km, w)
}

func (km *KeepaliveMessage) Unmarshal(r io.Reader) error {
	return unmarshalFrame(KEEPALIVE, km, r)
}
