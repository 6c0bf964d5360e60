// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/howeyc/crc16"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// CRCType indicates the checksum algorithm used within a block, as defined
// in section 4.2.1. Only the three constants CRCNo, CRC16 and CRC32 describe
// valid values.
type CRCType uint64

const (
	// CRCNo indicates a block without a CRC value.
	CRCNo CRCType = 0

	// CRC16 indicates a block with a CRC-16/X.25 value.
	CRC16 CRCType = 1

	// CRC32 indicates a block with a CRC-32/Castagnoli value.
	CRC32 CRCType = 2
)

func (c CRCType) String() string {
	switch c {
	case CRCNo:
		return "no"
	case CRC16:
		return "16"
	case CRC32:
		return "32"
	default:
		return "unknown"
	}
}

// ErrChecksumMismatch indicates a block whose read CRC value does not equal
// the checksum calculated over the block's other fields.
var ErrChecksumMismatch = errors.New("checksum mismatch")

var (
	crc16table = crc16.MakeTable(crc16.CCITT)
	crc32table = crc32.MakeTable(crc32.Castagnoli)
)

// block unites the methods shared by the primary block and canonical blocks,
// next to their common CRC handling.
type block interface {
	Valid
	cboring.CborMarshaler

	// HasCRC returns if the block carries a CRC value.
	HasCRC() bool

	// GetCRCType returns the block's CRC type.
	GetCRCType() CRCType

	// SetCRCType sets the block's CRC type.
	SetCRCType(CRCType)
}

// emptyCRC returns a zeroed CRC value of the length implied by the CRC type.
func emptyCRC(crcType CRCType) []byte {
	switch crcType {
	case CRC16:
		return make([]byte, 2)
	case CRC32:
		return make([]byte, 4)
	default:
		return nil
	}
}

// appendChecksum extends buff by an empty CRC byte string and calculates the
// checksum over the resulting bytes, as section 4.2.2 demands. The returned
// value is in network byte order, two bytes for CRC16 or four for CRC32.
func appendChecksum(buff *bytes.Buffer, crcType CRCType) ([]byte, error) {
	switch crcType {
	case CRCNo, CRC16, CRC32:
	default:
		return nil, fmt.Errorf("unknown CRC type %d", crcType)
	}

	crcVal := emptyCRC(crcType)
	if err := cboring.WriteByteString(crcVal, buff); err != nil {
		return nil, err
	}

	switch crcType {
	case CRC16:
		binary.BigEndian.PutUint16(crcVal, crc16.Checksum(buff.Bytes(), crc16table))
	case CRC32:
		binary.BigEndian.PutUint32(crcVal, crc32.Checksum(buff.Bytes(), crc32table))
	}

	return crcVal, nil
}

// writeChecksum calculates the checksum of the bytes collected in crcBuff and
// writes it as a CBOR byte string to w.
func writeChecksum(crcBuff *bytes.Buffer, crcType CRCType, w io.Writer) ([]byte, error) {
	crcVal, err := appendChecksum(crcBuff, crcType)
	if err != nil {
		return nil, err
	}

	if err := cboring.WriteByteString(crcVal, w); err != nil {
		return nil, err
	}

	return crcVal, nil
}

// readVerifyChecksum reads a block's trailing CRC byte string from r and
// compares it against the checksum of the bytes collected in crcBuff. The
// checksum must be calculated before touching r, because r might be teed
// into crcBuff. A difference results in an ErrChecksumMismatch.
func readVerifyChecksum(crcBuff *bytes.Buffer, crcType CRCType, r io.Reader) ([]byte, error) {
	crcCalc, err := appendChecksum(crcBuff, crcType)
	if err != nil {
		return nil, err
	}

	crcVal, err := cboring.ReadByteString(r)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(crcCalc, crcVal) {
		return nil, fmt.Errorf("%w: read %x, calculated %x", ErrChecksumMismatch, crcVal, crcCalc)
	}

	return crcVal, nil
}
