// SPDX-FileCopyrightText: 2022 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// BundleID identifies a bundle by its source node and creation timestamp.
// Fragments additionally carry their fragment offset and the total application
// data unit length, as two bundles may only share the first two fields if at
// least one of them is a fragment.
//
// A BundleID is CBOR serializable through the cboring library. All present
// fields are written in series. As there is no marker on the wire, the
// IsFragment field MUST be set before deserialization to determine whether
// two or four fields are to be read.
type BundleID struct {
	SourceNode EndpointID
	Timestamp  CreationTimestamp

	IsFragment      bool
	FragmentOffset  uint64
	TotalDataLength uint64
}

func (bid BundleID) String() string {
	var bldr strings.Builder

	_, _ = fmt.Fprintf(&bldr, "%v-%d-%d", bid.SourceNode, bid.Timestamp[0], bid.Timestamp[1])
	if bid.IsFragment {
		_, _ = fmt.Fprintf(&bldr, "-%d-%d", bid.FragmentOffset, bid.TotalDataLength)
	}

	return bldr.String()
}

// Len is the number of CBOR fields, four for fragments and two otherwise.
func (bid BundleID) Len() uint64 {
	if bid.IsFragment {
		return 4
	} else {
		return 2
	}
}

// Scrub returns this BundleID cleaned of its fragmentation fields. Fragments
// of the same bundle share their scrubbed BundleID.
func (bid BundleID) Scrub() BundleID {
	return BundleID{
		SourceNode: bid.SourceNode,
		Timestamp:  bid.Timestamp,

		IsFragment:      false,
		FragmentOffset:  0,
		TotalDataLength: 0,
	}
}

// MarshalCbor writes this BundleID's fields in series.
func (bid *BundleID) MarshalCbor(w io.Writer) error {
	if err := cboring.Marshal(&bid.SourceNode, w); err != nil {
		return fmt.Errorf("BundleID: marshalling source node failed: %w", err)
	}

	if err := cboring.Marshal(&bid.Timestamp, w); err != nil {
		return fmt.Errorf("BundleID: marshalling creation timestamp failed: %w", err)
	}

	if bid.IsFragment {
		for _, fld := range []uint64{bid.FragmentOffset, bid.TotalDataLength} {
			if err := cboring.WriteUInt(fld, w); err != nil {
				return err
			}
		}
	}

	return nil
}

// UnmarshalCbor reads a BundleID. The IsFragment field MUST be set beforehand.
func (bid *BundleID) UnmarshalCbor(r io.Reader) error {
	if err := cboring.Unmarshal(&bid.SourceNode, r); err != nil {
		return fmt.Errorf("BundleID: unmarshalling source node failed: %w", err)
	}

	if err := cboring.Unmarshal(&bid.Timestamp, r); err != nil {
		return fmt.Errorf("BundleID: unmarshalling creation timestamp failed: %w", err)
	}

	if bid.IsFragment {
		for _, fld := range []*uint64{&bid.FragmentOffset, &bid.TotalDataLength} {
			if n, err := cboring.ReadUInt(r); err != nil {
				return err
			} else {
				*fld = n
			}
		}
	}

	return nil
}
