// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
// SPDX-FileCopyrightText: 2022 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// Bundle is a bundle as defined in section 4.2.1: one primary block followed
// by canonical blocks, of which the last one must be a payload block.
type Bundle struct {
	PrimaryBlock    PrimaryBlock
	CanonicalBlocks []CanonicalBlock
}

// NewBundle from a primary block and canonical blocks, verified through CheckValid.
func NewBundle(primary PrimaryBlock, canonicals []CanonicalBlock) (b Bundle, err error) {
	b = MustNewBundle(primary, canonicals)
	err = b.CheckValid()

	return
}

// MustNewBundle is NewBundle without the validity check. No panic will arise.
func MustNewBundle(primary PrimaryBlock, canonicals []CanonicalBlock) (b Bundle) {
	b = Bundle{
		PrimaryBlock:    primary,
		CanonicalBlocks: canonicals,
	}
	b.sortBlocks()

	return
}

// ParseBundle reads a CBOR encoded Bundle from a Reader.
func ParseBundle(r io.Reader) (b Bundle, err error) {
	err = cboring.Unmarshal(&b, r)
	return
}

// WriteBundle writes this Bundle CBOR encoded into a Writer.
func (b *Bundle) WriteBundle(w io.Writer) error {
	return cboring.Marshal(b, w)
}

// forEachBlock applies a function to the primary block and each canonical block.
func (b *Bundle) forEachBlock(f func(block)) {
	f(&b.PrimaryBlock)
	for i := 0; i < len(b.CanonicalBlocks); i++ {
		f(&b.CanonicalBlocks[i])
	}
}

// ExtensionBlocks returns all canonical blocks matching the block type code.
// An error is returned if no such block exists.
func (b *Bundle) ExtensionBlocks(blockType uint64) (cbs []*CanonicalBlock, err error) {
	for i := 0; i < len(b.CanonicalBlocks); i++ {
		if cb := &b.CanonicalBlocks[i]; cb.TypeCode() == blockType {
			cbs = append(cbs, cb)
		}
	}

	if len(cbs) == 0 {
		err = fmt.Errorf("no canonical block of type %d exists in this bundle", blockType)
	}
	return
}

// ExtensionBlock returns the canonical block matching the block type code, if
// exactly one such block exists.
func (b *Bundle) ExtensionBlock(blockType uint64) (*CanonicalBlock, error) {
	cbs, err := b.ExtensionBlocks(blockType)

	if err != nil {
		return nil, err
	} else if l := len(cbs); l != 1 {
		return nil, fmt.Errorf("there are %d canonical blocks of type %d", l, blockType)
	} else {
		return cbs[0], nil
	}
}

// HasExtensionBlock returns if a canonical block of this block type code exists.
func (b *Bundle) HasExtensionBlock(blockType uint64) bool {
	_, err := b.ExtensionBlocks(blockType)
	return err == nil
}

// PayloadBlock of this Bundle, or an error if it misses one.
func (b *Bundle) PayloadBlock() (*CanonicalBlock, error) {
	return b.ExtensionBlock(ExtBlockTypePayloadBlock)
}

// sortBlocks into the canonical order; called after each block modification.
func (b *Bundle) sortBlocks() {
	sort.Sort(canonicalBlockNumberSort(b.CanonicalBlocks))
}

// nextBlockNumber returns the smallest unused block number, starting at two.
// The number one is reserved for the payload block.
func (b *Bundle) nextBlockNumber() uint64 {
	used := make(map[uint64]bool, len(b.CanonicalBlocks))
	for _, cb := range b.CanonicalBlocks {
		used[cb.BlockNumber] = true
	}

	no := uint64(2)
	for used[no] {
		no++
	}
	return no
}

// AddExtensionBlock to this Bundle. The block number is calculated and
// overwritten within this method.
func (b *Bundle) AddExtensionBlock(block CanonicalBlock) error {
	if block.Value.BlockTypeCode() == ExtBlockTypePayloadBlock {
		if b.HasExtensionBlock(ExtBlockTypePayloadBlock) {
			return fmt.Errorf("bundle already contains a payload block")
		}
		block.BlockNumber = 1
	} else {
		block.BlockNumber = b.nextBlockNumber()
	}

	b.CanonicalBlocks = append(b.CanonicalBlocks, block)
	b.sortBlocks()
	return nil
}

// GetExtensionBlockByBlockNumber returns the canonical block carrying the
// given block number, or an error if no such block exists.
func (b *Bundle) GetExtensionBlockByBlockNumber(blockNumber uint64) (*CanonicalBlock, error) {
	for i := 0; i < len(b.CanonicalBlocks); i++ {
		if b.CanonicalBlocks[i].BlockNumber == blockNumber {
			return &b.CanonicalBlocks[i], nil
		}
	}
	return nil, fmt.Errorf("no canonical block with block number %d exists", blockNumber)
}

// RemoveExtensionBlockByBlockNumber removes the canonical block carrying the
// given block number. A miss changes nothing.
func (b *Bundle) RemoveExtensionBlockByBlockNumber(blockNumber uint64) {
	for i := 0; i < len(b.CanonicalBlocks); i++ {
		if b.CanonicalBlocks[i].BlockNumber == blockNumber {
			b.CanonicalBlocks = append(b.CanonicalBlocks[:i], b.CanonicalBlocks[i+1:]...)
			return
		}
	}
}

// SetCRCType for each block of this Bundle.
func (b *Bundle) SetCRCType(crcType CRCType) {
	b.forEachBlock(func(blck block) {
		blck.SetCRCType(crcType)
	})
}

// ID returns this Bundle's BundleID.
func (b Bundle) ID() BundleID {
	return BundleID{
		SourceNode: b.PrimaryBlock.SourceNode,
		Timestamp:  b.PrimaryBlock.CreationTimestamp,

		IsFragment:      b.PrimaryBlock.BundleControlFlags.Has(IsFragment),
		FragmentOffset:  b.PrimaryBlock.FragmentOffset,
		TotalDataLength: b.PrimaryBlock.TotalDataLength,
	}
}

func (b Bundle) String() string {
	return b.ID().String()
}

// IsLifetimeExceeded inspects the creation timestamp against the lifetime or,
// for a zero creation time, an existing Bundle Age Block.
func (b Bundle) IsLifetimeExceeded() bool {
	if b.PrimaryBlock.CreationTimestamp.IsZeroTime() {
		if bab, err := b.ExtensionBlock(ExtBlockTypeBundleAgeBlock); err != nil {
			return true
		} else {
			// The age counts microseconds, the lifetime milliseconds.
			return bab.Value.(*BundleAgeBlock).Age()/1000 > b.PrimaryBlock.Lifetime
		}
	}

	expiry := b.PrimaryBlock.CreationTimestamp.DtnTime().Time().Add(
		time.Duration(b.PrimaryBlock.Lifetime) * time.Millisecond)
	return time.Now().After(expiry)
}

// CheckValid accumulates errors for incorrect data across all blocks, their
// interplay and this Bundle's age.
func (b Bundle) CheckValid() (errs error) {
	b.forEachBlock(func(blck block) {
		if blckErr := blck.CheckValid(); blckErr != nil {
			errs = multierror.Append(errs, blckErr)
		}
	})

	if len(b.CanonicalBlocks) == 0 {
		// The following checks assume the presence of canonical blocks.
		errs = multierror.Append(errs, fmt.Errorf("Bundle: no canonical blocks exist"))
		return
	}

	// Section 5.6: administrative records and anonymous bundles must not
	// request block status reports.
	if b.PrimaryBlock.BundleControlFlags.Has(AdministrativeRecordPayload) || b.PrimaryBlock.SourceNode == DtnNone() {
		for _, cb := range b.CanonicalBlocks {
			if cb.BlockControlFlags.Has(StatusReportBlock) {
				errs = multierror.Append(errs, fmt.Errorf(
					"Bundle: canonical block %d requests a status report within an administrative record or anonymous bundle",
					cb.BlockNumber))
			}
		}
	}

	blockNumbers := make(map[uint64]bool)
	for _, cb := range b.CanonicalBlocks {
		if blockNumbers[cb.BlockNumber] {
			errs = multierror.Append(errs,
				fmt.Errorf("Bundle: block number %d occurs multiple times", cb.BlockNumber))
		}
		blockNumbers[cb.BlockNumber] = true

		if ctxErr := cb.Value.CheckContextValid(&b); ctxErr != nil {
			errs = multierror.Append(errs, ctxErr)
		}
	}

	if last := b.CanonicalBlocks[len(b.CanonicalBlocks)-1].TypeCode(); last != ExtBlockTypePayloadBlock {
		errs = multierror.Append(errs,
			fmt.Errorf("Bundle: last canonical block is of type %d instead of a payload block", last))
	}

	if b.PrimaryBlock.HasFragmentation() {
		if payloadBlock, plErr := b.PayloadBlock(); plErr == nil {
			plLen := uint64(len(payloadBlock.Value.(*PayloadBlock).Data()))
			if b.PrimaryBlock.FragmentOffset+plLen > b.PrimaryBlock.TotalDataLength {
				errs = multierror.Append(errs, fmt.Errorf(
					"Bundle: fragment offset %d plus payload length %d exceeds the total data length %d",
					b.PrimaryBlock.FragmentOffset, plLen, b.PrimaryBlock.TotalDataLength))
			}
		}
	}

	if b.PrimaryBlock.CreationTimestamp.IsZeroTime() && !b.HasExtensionBlock(ExtBlockTypeBundleAgeBlock) {
		errs = multierror.Append(errs, fmt.Errorf(
			"Bundle: creation timestamp is zero, but no Bundle Age Block exists"))
	}

	if b.IsLifetimeExceeded() {
		errs = multierror.Append(errs, fmt.Errorf("Bundle: lifetime is exceeded"))
	}

	return
}

// IsAdministrativeRecord returns if the bundle processing control flags
// announce an administrative record payload.
func (b Bundle) IsAdministrativeRecord() bool {
	return b.PrimaryBlock.BundleControlFlags.Has(AdministrativeRecordPayload)
}

// AdministrativeRecord extracts this Bundle's administrative record payload.
func (b Bundle) AdministrativeRecord() (AdministrativeRecord, error) {
	if !b.IsAdministrativeRecord() {
		return nil, fmt.Errorf("bundle does not announce an administrative record")
	}

	payload, err := b.PayloadBlock()
	if err != nil {
		return nil, err
	}

	buff := bytes.NewBuffer(payload.Value.(*PayloadBlock).Data())
	return GetAdministrativeRecordManager().ReadAdministrativeRecord(buff)
}

// MarshalCbor writes this Bundle as a CBOR indefinite-length array.
func (b *Bundle) MarshalCbor(w io.Writer) error {
	if _, err := w.Write([]byte{cboring.IndefiniteArray}); err != nil {
		return err
	}

	if err := cboring.Marshal(&b.PrimaryBlock, w); err != nil {
		return fmt.Errorf("Bundle: marshalling primary block failed: %w", err)
	}

	for i := 0; i < len(b.CanonicalBlocks); i++ {
		if err := cboring.Marshal(&b.CanonicalBlocks[i], w); err != nil {
			return fmt.Errorf("Bundle: marshalling canonical block failed: %w", err)
		}
	}

	if _, err := w.Write([]byte{cboring.BreakCode}); err != nil {
		return err
	}

	return nil
}

// UnmarshalCbor reads a Bundle, which is checked through CheckValid afterwards.
func (b *Bundle) UnmarshalCbor(r io.Reader) error {
	if err := cboring.ReadExpect(cboring.IndefiniteArray, r); err != nil {
		return err
	}

	if err := cboring.Unmarshal(&b.PrimaryBlock, r); err != nil {
		return fmt.Errorf("Bundle: unmarshalling primary block failed: %w", err)
	}

	for {
		var cb CanonicalBlock
		if err := cboring.Unmarshal(&cb, r); err == cboring.FlagBreakCode {
			break
		} else if err != nil {
			return fmt.Errorf("Bundle: unmarshalling canonical block failed: %w", err)
		} else {
			b.CanonicalBlocks = append(b.CanonicalBlocks, cb)
		}
	}

	return b.CheckValid()
}

// MarshalJSON writes a JSON object of the primary block and all canonical blocks.
func (b Bundle) MarshalJSON() ([]byte, error) {
	canonicals := make([]json.Marshaler, len(b.CanonicalBlocks))
	for i := range b.CanonicalBlocks {
		canonicals[i] = b.CanonicalBlocks[i]
	}

	return json.Marshal(&struct {
		PrimaryBlock    json.Marshaler   `json:"primaryBlock"`
		CanonicalBlocks []json.Marshaler `json:"canonicalBlocks"`
	}{
		PrimaryBlock:    b.PrimaryBlock,
		CanonicalBlocks: canonicals,
	})
}
