// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"fmt"
	"io"
)

// WriteArrayLength writes the head of an array of n elements.
func WriteArrayLength(n uint64, w io.Writer) error {
	return WriteMajors(Array, n, w)
}

// ReadArrayLength reads the head of a definite-length array. The
// FlagBreakCode signal passes through unchanged, so a caller iterating an
// indefinite-length array of arrays notices its end here.
func ReadArrayLength(r io.Reader) (n uint64, err error) {
	var m MajorType
	if m, n, err = ReadMajors(r); err != nil {
		return
	} else if m != Array {
		err = fmt.Errorf("%w: expected array, got major type %d", ErrMalformed, m>>5)
	}
	return
}

// WriteMapPairLength writes the head of a map of n key-value pairs.
func WriteMapPairLength(n uint64, w io.Writer) error {
	return WriteMajors(Map, n, w)
}

// ReadMapPairLength reads the head of a definite-length map, returning its
// number of key-value pairs.
func ReadMapPairLength(r io.Reader) (n uint64, err error) {
	var m MajorType
	if m, n, err = ReadMajors(r); err != nil {
		return
	} else if m != Map {
		err = fmt.Errorf("%w: expected map, got major type %d", ErrMalformed, m>>5)
	}
	return
}
