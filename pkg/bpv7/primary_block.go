// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

const dtnVersion uint64 = 7

// PrimaryBlock is the primary bundle block defined in section 4.3.1. The
// FragmentOffset and TotalDataLength fields are only relevant if the bundle
// processing control flags mark this bundle as a fragment.
type PrimaryBlock struct {
	Version            uint64
	BundleControlFlags BundleControlFlags
	CRCType            CRCType
	Destination        EndpointID
	SourceNode         EndpointID
	ReportTo           EndpointID
	CreationTimestamp  CreationTimestamp
	Lifetime           uint64
	FragmentOffset     uint64
	TotalDataLength    uint64
	CRC                []byte
}

// NewPrimaryBlock creates a new primary block with the given fields. The
// report-to endpoint defaults to the source node and the lifetime is given in
// milliseconds. All other fields are set to default values.
func NewPrimaryBlock(bundleControlFlags BundleControlFlags, destination EndpointID, sourceNode EndpointID, creationTimestamp CreationTimestamp, lifetime uint64) PrimaryBlock {
	pb := PrimaryBlock{
		Version:            dtnVersion,
		BundleControlFlags: bundleControlFlags,
		CRCType:            CRC32,
		Destination:        destination,
		SourceNode:         sourceNode,
		ReportTo:           sourceNode,
		CreationTimestamp:  creationTimestamp,
		Lifetime:           lifetime,
	}

	_ = pb.calculateCRC()
	return pb
}

// HasFragmentation returns if the bundle processing control flags mark this
// bundle as a fragment, making the fragmentation fields relevant.
func (pb PrimaryBlock) HasFragmentation() bool {
	return pb.BundleControlFlags.Has(IsFragment)
}

// HasCRC returns if this block carries a CRC value.
func (pb PrimaryBlock) HasCRC() bool {
	return pb.GetCRCType() != CRCNo
}

// GetCRCType returns this block's CRC type.
func (pb PrimaryBlock) GetCRCType() CRCType {
	return pb.CRCType
}

// SetCRCType sets the CRC type and updates the CRC value.
//
// A primary block without a CRC might be parsed, but every created primary
// block carries one. Section 4.3.1 only allows an absent CRC if a BPSec
// Block Integrity Block covers the primary block, which is not implemented.
// Thus, a request for CRCNo escalates to CRC32.
func (pb *PrimaryBlock) SetCRCType(crcType CRCType) {
	if crcType == CRCNo {
		crcType = CRC32
	}

	pb.CRCType = crcType
	_ = pb.calculateCRC()
}

// calculateCRC serializes this block into the void to refresh its CRC value.
func (pb *PrimaryBlock) calculateCRC() error {
	pb.CRC = nil
	return pb.MarshalCbor(new(bytes.Buffer))
}

// cborFieldLen is the length of this block's CBOR array, between eight and
// eleven depending on the presence of fragmentation fields and a CRC.
func (pb PrimaryBlock) cborFieldLen() uint64 {
	l := uint64(8)
	if pb.HasFragmentation() {
		l += 2
	}
	if pb.HasCRC() {
		l += 1
	}
	return l
}

// MarshalCbor writes this primary block's CBOR representation. As a side
// effect, the CRC field is updated to the written CRC value.
func (pb *PrimaryBlock) MarshalCbor(w io.Writer) error {
	crcBuff := new(bytes.Buffer)
	w = io.MultiWriter(w, crcBuff)

	if err := cboring.WriteArrayLength(pb.cborFieldLen(), w); err != nil {
		return err
	}

	for _, field := range []uint64{dtnVersion, uint64(pb.BundleControlFlags), uint64(pb.CRCType)} {
		if err := cboring.WriteUInt(field, w); err != nil {
			return err
		}
	}

	for _, eid := range []*EndpointID{&pb.Destination, &pb.SourceNode, &pb.ReportTo} {
		if err := cboring.Marshal(eid, w); err != nil {
			return fmt.Errorf("PrimaryBlock: marshalling endpoint failed: %w", err)
		}
	}

	if err := cboring.Marshal(&pb.CreationTimestamp, w); err != nil {
		return fmt.Errorf("PrimaryBlock: marshalling creation timestamp failed: %w", err)
	}

	if err := cboring.WriteUInt(pb.Lifetime, w); err != nil {
		return err
	}

	if pb.HasFragmentation() {
		for _, field := range []uint64{pb.FragmentOffset, pb.TotalDataLength} {
			if err := cboring.WriteUInt(field, w); err != nil {
				return err
			}
		}
	}

	if pb.HasCRC() {
		if crcVal, err := writeChecksum(crcBuff, pb.CRCType, w); err != nil {
			return err
		} else {
			pb.CRC = crcVal
		}
	}

	return nil
}

// UnmarshalCbor reads a primary block from its CBOR representation and
// verifies a present CRC value.
func (pb *PrimaryBlock) UnmarshalCbor(r io.Reader) error {
	// Tee incoming bytes into a buffer for the CRC calculation.
	crcBuff := new(bytes.Buffer)
	r = io.TeeReader(r, crcBuff)

	blockLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	} else if blockLen < 8 || blockLen > 11 {
		return fmt.Errorf("PrimaryBlock: expected array of length 8 to 11, got %d", blockLen)
	}

	if version, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if version != dtnVersion {
		return fmt.Errorf("PrimaryBlock: expected version %d, got %d", dtnVersion, version)
	} else {
		pb.Version = version
	}

	if bcf, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		pb.BundleControlFlags = BundleControlFlags(bcf)
	}

	if crcT, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		pb.CRCType = CRCType(crcT)
	}

	for _, eid := range []*EndpointID{&pb.Destination, &pb.SourceNode, &pb.ReportTo} {
		if err := cboring.Unmarshal(eid, r); err != nil {
			return fmt.Errorf("PrimaryBlock: unmarshalling endpoint failed: %w", err)
		}
	}

	if err := cboring.Unmarshal(&pb.CreationTimestamp, r); err != nil {
		return fmt.Errorf("PrimaryBlock: unmarshalling creation timestamp failed: %w", err)
	}

	if lifetime, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		pb.Lifetime = lifetime
	}

	hasFragmentation := blockLen == 10 || blockLen == 11
	hasCRC := blockLen == 9 || blockLen == 11

	if hasFragmentation != pb.HasFragmentation() {
		return fmt.Errorf("PrimaryBlock: array length %d contradicts the fragmentation flag", blockLen)
	}

	if hasFragmentation {
		for _, field := range []*uint64{&pb.FragmentOffset, &pb.TotalDataLength} {
			if f, err := cboring.ReadUInt(r); err != nil {
				return err
			} else {
				*field = f
			}
		}
	}

	if hasCRC != pb.HasCRC() {
		return fmt.Errorf("PrimaryBlock: array length %d contradicts CRC type %v", blockLen, pb.CRCType)
	}

	if hasCRC {
		if crcVal, err := readVerifyChecksum(crcBuff, pb.CRCType, r); err != nil {
			return err
		} else {
			pb.CRC = crcVal
		}
	}

	return nil
}

// MarshalJSON writes a JSON object of this primary block's main fields.
func (pb PrimaryBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ControlFlags      BundleControlFlags `json:"bundleControlFlags"`
		Destination       string             `json:"destination"`
		Source            string             `json:"source"`
		ReportTo          string             `json:"reportTo"`
		CreationTimestamp CreationTimestamp  `json:"creationTimestamp"`
		Lifetime          uint64             `json:"lifetime"`
	}{
		ControlFlags:      pb.BundleControlFlags,
		Destination:       pb.Destination.String(),
		Source:            pb.SourceNode.String(),
		ReportTo:          pb.ReportTo.String(),
		CreationTimestamp: pb.CreationTimestamp,
		Lifetime:          pb.Lifetime,
	})
}

// CheckValid accumulates errors for incorrect data.
func (pb PrimaryBlock) CheckValid() (errs error) {
	if pb.Version != dtnVersion {
		errs = multierror.Append(errs,
			fmt.Errorf("PrimaryBlock: wrong version %d instead of %d", pb.Version, dtnVersion))
	}

	if bcfErr := pb.BundleControlFlags.CheckValid(); bcfErr != nil {
		errs = multierror.Append(errs, bcfErr)
	}

	for _, eid := range []EndpointID{pb.Destination, pb.SourceNode, pb.ReportTo} {
		if eidErr := eid.CheckValid(); eidErr != nil {
			errs = multierror.Append(errs, eidErr)
		}
	}

	// Section 4.2.3: an anonymous bundle, originating from dtn:none, must not
	// be fragmented and must not request any status reports.
	anonOk := pb.SourceNode != DtnNone() ||
		(pb.BundleControlFlags.Has(MustNotFragmented) &&
			!pb.BundleControlFlags.Has(StatusRequestReception) &&
			!pb.BundleControlFlags.Has(StatusRequestForward) &&
			!pb.BundleControlFlags.Has(StatusRequestDelivery) &&
			!pb.BundleControlFlags.Has(StatusRequestDeletion))
	if !anonOk {
		errs = multierror.Append(errs, fmt.Errorf(
			"PrimaryBlock: anonymous source, but fragmentation is allowed or status reports are requested"))
	}

	if pb.Lifetime == 0 {
		errs = multierror.Append(errs, fmt.Errorf("PrimaryBlock: lifetime is zero"))
	}

	if pb.HasFragmentation() && pb.FragmentOffset >= pb.TotalDataLength {
		errs = multierror.Append(errs, fmt.Errorf(
			"PrimaryBlock: fragment offset %d lies outside the total data length %d",
			pb.FragmentOffset, pb.TotalDataLength))
	}

	return
}

func (pb PrimaryBlock) String() string {
	var b strings.Builder

	_, _ = fmt.Fprintf(&b, "version: %d, ", pb.Version)
	_, _ = fmt.Fprintf(&b, "bundle processing control flags: %b, ", pb.BundleControlFlags)
	_, _ = fmt.Fprintf(&b, "crc type: %v, ", pb.CRCType)
	_, _ = fmt.Fprintf(&b, "destination: %v, ", pb.Destination)
	_, _ = fmt.Fprintf(&b, "source node: %v, ", pb.SourceNode)
	_, _ = fmt.Fprintf(&b, "report to: %v, ", pb.ReportTo)
	_, _ = fmt.Fprintf(&b, "creation timestamp: %v, ", pb.CreationTimestamp)
	_, _ = fmt.Fprintf(&b, "lifetime: %d", pb.Lifetime)

	if pb.HasFragmentation() {
		_, _ = fmt.Fprintf(&b, ", fragment offset: %d, total data length: %d",
			pb.FragmentOffset, pb.TotalDataLength)
	}

	if pb.HasCRC() {
		_, _ = fmt.Fprintf(&b, ", crc: %x", pb.CRC)
	}

	return b.String()
}
