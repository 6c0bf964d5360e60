// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import "encoding/json"

// PayloadBlock carries a bundle's application data unit, section 4.3.3.
// Its serialization are the raw payload bytes.
type PayloadBlock []byte

// NewPayloadBlock for the given payload.
func NewPayloadBlock(data []byte) *PayloadBlock {
	pb := PayloadBlock(data)
	return &pb
}

// BlockTypeCode of a PayloadBlock is always 1.
func (pb *PayloadBlock) BlockTypeCode() uint64 {
	return ExtBlockTypePayloadBlock
}

// BlockTypeName of a PayloadBlock.
func (pb *PayloadBlock) BlockTypeName() string {
	return "Payload Block"
}

// Data is this PayloadBlock's payload.
func (pb *PayloadBlock) Data() []byte {
	return *pb
}

// MarshalBinary returns the raw payload.
func (pb *PayloadBlock) MarshalBinary() ([]byte, error) {
	return *pb, nil
}

// UnmarshalBinary stores the raw payload.
func (pb *PayloadBlock) UnmarshalBinary(data []byte) error {
	*pb = data
	return nil
}

// MarshalJSON writes the payload bytes. Without this method, the CBOR
// encoding would end up in JSON outputs, which might be misleading.
func (pb *PayloadBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(pb.Data())
}

// CheckValid allows any payload.
func (pb *PayloadBlock) CheckValid() error {
	return nil
}

// CheckContextValid has nothing to inspect; the Bundle itself checks the
// payload's block number and position.
func (pb *PayloadBlock) CheckContextValid(*Bundle) error {
	return nil
}
