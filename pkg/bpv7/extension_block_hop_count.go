// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// HopCountBlock limits the hops a bundle might take, section 4.4.3. It is a
// tuple of a fixed hop limit and a counter, incremented on each forwarding.
type HopCountBlock struct {
	Limit uint8
	Count uint8
}

// NewHopCountBlock with a hop limit and a zeroed counter.
func NewHopCountBlock(limit uint8) *HopCountBlock {
	return &HopCountBlock{Limit: limit}
}

// BlockTypeCode of a HopCountBlock is always 10.
func (hcb *HopCountBlock) BlockTypeCode() uint64 {
	return ExtBlockTypeHopCountBlock
}

// BlockTypeName of a HopCountBlock.
func (hcb *HopCountBlock) BlockTypeName() string {
	return "Hop Count Block"
}

// IsExceeded returns true if the hop count exceeds the hop limit.
func (hcb HopCountBlock) IsExceeded() bool {
	return hcb.Count > hcb.Limit
}

// Increment the hop counter and report if the limit is now exceeded.
func (hcb *HopCountBlock) Increment() bool {
	hcb.Count++
	return hcb.IsExceeded()
}

// Decrement the hop counter.
func (hcb *HopCountBlock) Decrement() {
	hcb.Count--
}

// MarshalCbor writes the array of hop limit and hop count.
func (hcb *HopCountBlock) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, field := range []uint8{hcb.Limit, hcb.Count} {
		if err := cboring.WriteUInt(uint64(field), w); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalCbor reads an array of hop limit and hop count.
func (hcb *HopCountBlock) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("HopCountBlock: expected array of length 2, got %d", l)
	}

	for _, field := range []*uint8{&hcb.Limit, &hcb.Count} {
		if x, err := cboring.ReadUInt(r); err != nil {
			return err
		} else if x > math.MaxUint8 {
			return fmt.Errorf("HopCountBlock: field value %d overflows a hop count", x)
		} else {
			*field = uint8(x)
		}
	}

	return nil
}

// MarshalJSON writes a JSON object of hop limit and hop count.
func (hcb *HopCountBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Limit uint8 `json:"limit"`
		Count uint8 `json:"count"`
	}{hcb.Limit, hcb.Count})
}

// CheckValid errors on an exceeded hop limit.
func (hcb *HopCountBlock) CheckValid() error {
	if hcb.IsExceeded() {
		return fmt.Errorf("HopCountBlock: hop limit of %d is exceeded by %d hops", hcb.Limit, hcb.Count)
	}
	return nil
}

// CheckContextValid limits a Bundle to at most one HopCountBlock.
func (hcb *HopCountBlock) CheckContextValid(b *Bundle) error {
	return checkUniqueExtensionBlock(b, ExtBlockTypeHopCountBlock, hcb)
}
