// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"fmt"
	"io"
	"math"
)

// WriteUInt writes an unsigned integer.
func WriteUInt(n uint64, w io.Writer) error {
	return WriteMajors(UInt, n, w)
}

// ReadUInt reads an unsigned integer.
func ReadUInt(r io.Reader) (n uint64, err error) {
	var m MajorType
	if m, n, err = ReadMajors(r); err != nil {
		return
	} else if m != UInt {
		err = fmt.Errorf("%w: expected unsigned integer, got major type %d", ErrMalformed, m>>5)
	}
	return
}

// WriteNegInt writes a negative integer, n < 0.
func WriteNegInt(n int64, w io.Writer) error {
	if n >= 0 {
		return fmt.Errorf("cboring: WriteNegInt called for %d >= 0", n)
	}
	return WriteMajors(NegInt, uint64(-(n + 1)), w)
}

// ReadNegInt reads a negative integer.
func ReadNegInt(r io.Reader) (n int64, err error) {
	m, val, err := ReadMajors(r)
	if err != nil {
		return
	} else if m != NegInt {
		err = fmt.Errorf("%w: expected negative integer, got major type %d", ErrMalformed, m>>5)
		return
	}

	if val > math.MaxInt64 {
		err = fmt.Errorf("%w: negative integer -%d overflows int64", ErrMalformed, val+1)
		return
	}
	n = -1 - int64(val)
	return
}

// WriteBoolean writes a boolean.
func WriteBoolean(b bool, w io.Writer) error {
	code := simpleFalse
	if b {
		code = simpleTrue
	}

	_, err := w.Write([]byte{code})
	return err
}

// ReadBoolean reads a boolean.
func ReadBoolean(r io.Reader) (b bool, err error) {
	h, err := readHead(r)
	if err != nil {
		return
	}

	switch h.raw {
	case simpleFalse:
		b = false
	case simpleTrue:
		b = true
	default:
		err = fmt.Errorf("%w: expected boolean, got head 0x%02X", ErrMalformed, h.raw)
	}
	return
}

// WriteFloat64 writes a float as IEEE 754 double precision. Floats are never
// packed into a shorter form, keeping the encoding deterministic.
func WriteFloat64(f float64, w io.Writer) error {
	var buff [9]byte
	buff[0] = simpleFloat64

	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		buff[i+1] = byte(bits >> (56 - 8*i))
	}

	_, err := w.Write(buff[:])
	return err
}

// ReadFloat64 reads an IEEE 754 double precision float.
func ReadFloat64(r io.Reader) (f float64, err error) {
	h, err := readHead(r)
	if err != nil {
		return
	}

	if h.raw != simpleFloat64 {
		err = fmt.Errorf("%w: expected float64, got head 0x%02X", ErrMalformed, h.raw)
		return
	}

	f = math.Float64frombits(h.val)
	return
}
