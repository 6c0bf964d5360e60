// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMustNotFragment is returned when fragmenting a Bundle whose bundle
	// processing control flags forbid fragmentation.
	ErrMustNotFragment = errors.New("bundle must not be fragmented")

	// ErrReassemblyIncomplete is returned when fragments do not cover the
	// total application data unit without gaps, yet.
	ErrReassemblyIncomplete = errors.New("fragments do not cover the total payload yet")

	// ErrInconsistentFragments is returned when fragments sharing a bundle
	// identity disagree about the total application data unit length.
	ErrInconsistentFragments = errors.New("fragments disagree about the total payload length")
)

// Fragment a Bundle into descendants whose payload is limited to
// maxFragmentSize bytes each.
//
// Fragmentation is deterministic: the payload is cut into consecutive chunks
// of maxFragmentSize bytes, followed by a last chunk holding the remainder.
// Every fragment keeps the original source, destination and creation
// timestamp, raises the IsFragment flag and carries its fragment offset next
// to the total application data unit length. Extension blocks are copied into
// the first fragment; fragments after the first one only receive those
// flagged with ReplicateBlock.
//
// A Bundle whose payload already fits within maxFragmentSize is returned
// unmodified as the only element.
func (b Bundle) Fragment(maxFragmentSize int) (bs []Bundle, err error) {
	if maxFragmentSize <= 0 {
		return nil, fmt.Errorf("max fragment size of %d must be positive", maxFragmentSize)
	}
	if b.PrimaryBlock.BundleControlFlags.Has(MustNotFragmented) {
		return nil, ErrMustNotFragment
	}

	payloadBlock, err := b.PayloadBlock()
	if err != nil {
		return nil, err
	}

	payload := payloadBlock.Value.(*PayloadBlock).Data()
	if len(payload) <= maxFragmentSize {
		return []Bundle{b}, nil
	}

	for offset := 0; offset < len(payload); offset += maxFragmentSize {
		end := offset + maxFragmentSize
		if end > len(payload) {
			end = len(payload)
		}

		fragPrimary := b.PrimaryBlock
		fragPrimary.BundleControlFlags |= IsFragment
		fragPrimary.FragmentOffset = uint64(offset)
		fragPrimary.TotalDataLength = uint64(len(payload))
		fragPrimary.CRC = nil

		frag := MustNewBundle(fragPrimary, nil)

		for _, cb := range b.CanonicalBlocks {
			if cb.TypeCode() == ExtBlockTypePayloadBlock {
				continue
			}
			if offset > 0 && !cb.BlockControlFlags.Has(ReplicateBlock) {
				continue
			}

			if err = frag.AddExtensionBlock(cb); err != nil {
				return nil, err
			}
		}

		fragPayload := NewCanonicalBlock(1, payloadBlock.BlockControlFlags, NewPayloadBlock(payload[offset:end]))
		fragPayload.SetCRCType(payloadBlock.CRCType)
		if err = frag.AddExtensionBlock(fragPayload); err != nil {
			return nil, err
		}

		if err = frag.CheckValid(); err != nil {
			return nil, err
		}
		bs = append(bs, frag)
	}

	return bs, nil
}

// prepareReassembly sorts the fragments by their offset and inspects them for
// consistency and gap-free coverage of the total application data unit.
func prepareReassembly(bs []Bundle) error {
	if len(bs) == 0 {
		return fmt.Errorf("%w: no fragments given", ErrReassemblyIncomplete)
	}

	sort.Slice(bs, func(i, j int) bool {
		return bs[i].PrimaryBlock.FragmentOffset < bs[j].PrimaryBlock.FragmentOffset
	})

	total := bs[0].PrimaryBlock.TotalDataLength
	covered := uint64(0)
	for _, b := range bs {
		if !b.PrimaryBlock.BundleControlFlags.Has(IsFragment) {
			return fmt.Errorf("bundle %v is not a fragment", b.ID())
		}
		if b.PrimaryBlock.TotalDataLength != total {
			return fmt.Errorf("%w: %d != %d", ErrInconsistentFragments, b.PrimaryBlock.TotalDataLength, total)
		}

		if fragOff := b.PrimaryBlock.FragmentOffset; fragOff > covered {
			return fmt.Errorf("%w: gap from %d to %d", ErrReassemblyIncomplete, covered, fragOff)
		} else if payloadBlock, err := b.PayloadBlock(); err != nil {
			return err
		} else if next := fragOff + uint64(len(payloadBlock.Value.(*PayloadBlock).Data())); next > covered {
			covered = next
		}
	}

	if covered != total {
		return fmt.Errorf("%w: coverage ends at %d of %d", ErrReassemblyIncomplete, covered, total)
	}

	return nil
}

// IsBundleReassemblable checks if a Bundle can be reassembled from the given
// fragments. This function might sort the given slice as a side effect.
func IsBundleReassemblable(bs []Bundle) bool {
	return prepareReassembly(bs) == nil
}

// mergeFragmentPayload concatenates the fragments' payloads in offset order,
// skipping bytes an overlapping predecessor already contributed.
func mergeFragmentPayload(bs []Bundle) (data []byte, err error) {
	covered := 0
	for _, b := range bs {
		payloadBlock, payloadErr := b.PayloadBlock()
		if payloadErr != nil {
			return nil, payloadErr
		}

		fragOff := int(b.PrimaryBlock.FragmentOffset)
		fragData := payloadBlock.Value.(*PayloadBlock).Data()
		if fragOff+len(fragData) <= covered {
			continue
		}

		data = append(data, fragData[covered-fragOff:]...)
		covered = fragOff + len(fragData)
	}

	return
}

// ReassembleFragments merges fragments sharing a bundle identity back into
// the original Bundle. The fragments must cover the total application data
// unit without gaps; otherwise an ErrReassemblyIncomplete is returned and
// reassembly might be retried with more fragments later.
func ReassembleFragments(bs []Bundle) (b Bundle, err error) {
	// Fragment passes a fitting Bundle through unmodified.
	if len(bs) == 1 && !bs[0].PrimaryBlock.BundleControlFlags.Has(IsFragment) {
		return bs[0], nil
	}

	if err = prepareReassembly(bs); err != nil {
		return
	}

	b.PrimaryBlock = bs[0].PrimaryBlock
	b.PrimaryBlock.BundleControlFlags &^= IsFragment
	b.PrimaryBlock.FragmentOffset = 0
	b.PrimaryBlock.TotalDataLength = 0
	b.PrimaryBlock.CRC = nil

	for _, cb := range bs[0].CanonicalBlocks {
		if cb.TypeCode() == ExtBlockTypePayloadBlock {
			continue
		}

		if err = b.AddExtensionBlock(cb); err != nil {
			return
		}
	}

	payload, err := mergeFragmentPayload(bs)
	if err != nil {
		return
	}

	payloadBlock, err := bs[0].PayloadBlock()
	if err != nil {
		return
	}

	cb := NewCanonicalBlock(1, payloadBlock.BlockControlFlags, NewPayloadBlock(payload))
	cb.SetCRCType(payloadBlock.CRCType)
	if err = b.AddExtensionBlock(cb); err != nil {
		return
	}

	err = b.CheckValid()
	return
}
