// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// BundleAgeBlock tracks a bundle's age in microseconds, section 4.4.2. It is
// required for bundles whose creation timestamp carries the zero time of an
// inaccurate clock.
type BundleAgeBlock uint64

// NewBundleAgeBlock for an age in microseconds.
func NewBundleAgeBlock(us uint64) *BundleAgeBlock {
	bab := BundleAgeBlock(us)
	return &bab
}

// BlockTypeCode of a BundleAgeBlock is always 7.
func (bab *BundleAgeBlock) BlockTypeCode() uint64 {
	return ExtBlockTypeBundleAgeBlock
}

// BlockTypeName of a BundleAgeBlock.
func (bab *BundleAgeBlock) BlockTypeName() string {
	return "Bundle Age Block"
}

// Age in microseconds.
func (bab *BundleAgeBlock) Age() uint64 {
	return uint64(*bab)
}

// Increment the age by an offset in microseconds and return the new age.
func (bab *BundleAgeBlock) Increment(offset uint64) uint64 {
	*bab += BundleAgeBlock(offset)
	return uint64(*bab)
}

// MarshalCbor writes the age as an unsigned integer.
func (bab *BundleAgeBlock) MarshalCbor(w io.Writer) error {
	return cboring.WriteUInt(uint64(*bab), w)
}

// UnmarshalCbor reads an age.
func (bab *BundleAgeBlock) UnmarshalCbor(r io.Reader) error {
	if us, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		*bab = BundleAgeBlock(us)
		return nil
	}
}

// MarshalJSON writes the age as a string, e.g., "23 us".
func (bab *BundleAgeBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%d us", bab.Age()))
}

// CheckValid allows any age.
func (bab *BundleAgeBlock) CheckValid() error {
	return nil
}

// CheckContextValid limits a Bundle to at most one BundleAgeBlock.
func (bab *BundleAgeBlock) CheckContextValid(b *Bundle) error {
	return checkUniqueExtensionBlock(b, ExtBlockTypeBundleAgeBlock, bab)
}
