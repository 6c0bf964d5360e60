// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cboring is a deterministic CBOR codec for the parts of CBOR the
// Bundle Protocol exchanges on the wire: unsigned and negative integers, byte
// and text strings, arrays, maps, booleans, null and IEEE 754 double
// precision floats.
//
// The encoder always emits the canonical form, minimal-length heads included,
// so identical values produce identical bytes. This matters because CRCs are
// computed over the exact serialization. The decoder accepts every valid
// encoding, not just the canonical one.
//
// Types serialize themselves against an io.Writer or io.Reader through the
// CborMarshaler interface. A generic item layer, ReadItem and friends, covers
// data whose shape is unknown upfront.
package cboring

import (
	"errors"
)

// MajorType is one of CBOR's major types, stored in an item head's high bits.
type MajorType = byte

const (
	UInt       MajorType = 0x00
	NegInt     MajorType = 0x20
	ByteString MajorType = 0x40
	TextString MajorType = 0x60
	Array      MajorType = 0x80
	Map        MajorType = 0xA0
	Tag        MajorType = 0xC0
	Simple     MajorType = 0xE0
)

const (
	// IndefiniteArray starts an array of unknown length, closed by a BreakCode.
	IndefiniteArray byte = 0x9F

	// BreakCode terminates an indefinite-length item.
	BreakCode byte = 0xFF

	simpleFalse   byte = 0xF4
	simpleTrue    byte = 0xF5
	simpleNull    byte = 0xF6
	simpleUndef   byte = 0xF7
	simpleFloat64 byte = 0xFB
)

var (
	// ErrMalformed is returned for input violating the CBOR framing rules or
	// using parts of CBOR this codec does not support.
	ErrMalformed = errors.New("cboring: malformed encoding")

	// ErrTruncated is returned if the input ends within an item.
	ErrTruncated = errors.New("cboring: truncated input")

	// FlagBreakCode signals a read BreakCode. This is not an error by itself.
	// Code iterating an indefinite-length array compares against this flag to
	// detect the array's end.
	FlagBreakCode = errors.New("cboring: break code")
)
