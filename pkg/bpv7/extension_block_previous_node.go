// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// PreviousNodeBlock names the node this bundle was received from, section 4.4.1.
type PreviousNodeBlock EndpointID

// NewPreviousNodeBlock for the forwarding node's Endpoint ID.
func NewPreviousNodeBlock(prev EndpointID) *PreviousNodeBlock {
	pnb := PreviousNodeBlock(prev)
	return &pnb
}

// BlockTypeCode of a PreviousNodeBlock is always 6.
func (pnb *PreviousNodeBlock) BlockTypeCode() uint64 {
	return ExtBlockTypePreviousNodeBlock
}

// BlockTypeName of a PreviousNodeBlock.
func (pnb *PreviousNodeBlock) BlockTypeName() string {
	return "Previous Node Block"
}

// Endpoint for this PreviousNodeBlock.
func (pnb *PreviousNodeBlock) Endpoint() EndpointID {
	return EndpointID(*pnb)
}

// MarshalCbor writes this block's Endpoint ID.
func (pnb *PreviousNodeBlock) MarshalCbor(w io.Writer) error {
	endpoint := EndpointID(*pnb)
	return cboring.Marshal(&endpoint, w)
}

// UnmarshalCbor reads an Endpoint ID for this block.
func (pnb *PreviousNodeBlock) UnmarshalCbor(r io.Reader) error {
	var endpoint EndpointID
	if err := cboring.Unmarshal(&endpoint, r); err != nil {
		return err
	}

	*pnb = PreviousNodeBlock(endpoint)
	return nil
}

// MarshalJSON writes this block's Endpoint ID as an URI.
func (pnb *PreviousNodeBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(pnb.Endpoint())
}

// CheckValid delegates into the Endpoint ID.
func (pnb *PreviousNodeBlock) CheckValid() error {
	return EndpointID(*pnb).CheckValid()
}

// CheckContextValid limits a Bundle to at most one PreviousNodeBlock.
func (pnb *PreviousNodeBlock) CheckContextValid(b *Bundle) error {
	return checkUniqueExtensionBlock(b, ExtBlockTypePreviousNodeBlock, pnb)
}
