// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// head is a decoded item head: the raw first byte, the contained value or
// length, and whether the item declared an indefinite length.
type head struct {
	raw        byte
	val        uint64
	indefinite bool
}

// major returns the head's major type.
func (h head) major() MajorType {
	return h.raw & 0xE0
}

// readHead reads the next item head from r. A BreakCode is reported as
// FlagBreakCode. An io.EOF before the first byte is passed on unchanged, as
// it marks a clean end between two items; running dry afterwards is an
// ErrTruncated.
func readHead(r io.Reader) (h head, err error) {
	var buff [8]byte

	if _, err = io.ReadFull(r, buff[:1]); err != nil {
		return
	}

	h.raw = buff[0]
	if h.raw == BreakCode {
		err = FlagBreakCode
		return
	}

	switch adds := h.raw & 0x1F; {
	case adds < 24:
		h.val = uint64(adds)

	case adds <= 27:
		l := 1 << (adds - 24)
		if n, readErr := io.ReadFull(r, buff[:l]); readErr != nil {
			err = fmt.Errorf("%w: item head ended after %d of %d argument bytes",
				ErrTruncated, n, l)
			return
		}
		for i := 0; i < l; i++ {
			h.val = h.val<<8 | uint64(buff[i])
		}

	case adds == 31:
		h.indefinite = true

	default:
		err = fmt.Errorf("%w: reserved additional information %d", ErrMalformed, adds)
	}

	return
}

// WriteMajors writes an item head for the major type m carrying the value or
// length n, using the shortest possible form.
func WriteMajors(m MajorType, n uint64, w io.Writer) error {
	var buff [9]byte
	var l int

	switch {
	case n < 24:
		buff[0] = m | byte(n)
		l = 1

	case n <= math.MaxUint8:
		buff[0] = m | 24
		buff[1] = byte(n)
		l = 2

	case n <= math.MaxUint16:
		buff[0] = m | 25
		buff[1] = byte(n >> 8)
		buff[2] = byte(n)
		l = 3

	case n <= math.MaxUint32:
		buff[0] = m | 26
		for i := 0; i < 4; i++ {
			buff[i+1] = byte(n >> (24 - 8*i))
		}
		l = 5

	default:
		buff[0] = m | 27
		for i := 0; i < 8; i++ {
			buff[i+1] = byte(n >> (56 - 8*i))
		}
		l = 9
	}

	_, err := w.Write(buff[:l])
	return err
}

// ReadMajors reads an item head, expecting a definite length. The FlagBreakCode
// signal is passed through for indefinite-length array iteration.
func ReadMajors(r io.Reader) (m MajorType, n uint64, err error) {
	h, err := readHead(r)
	if err != nil {
		return
	}

	if h.indefinite {
		err = fmt.Errorf("%w: unexpected indefinite length for major type %d",
			ErrMalformed, h.major()>>5)
		return
	}

	m = h.major()
	n = h.val
	return
}

// ReadExpect reads one byte and errors unless it equals b.
func ReadExpect(b byte, r io.Reader) error {
	var buff [1]byte
	if _, err := io.ReadFull(r, buff[:]); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: expected byte 0x%02X", ErrTruncated, b)
		}
		return err
	}

	if buff[0] != b {
		return fmt.Errorf("%w: read byte 0x%02X, expected 0x%02X", ErrMalformed, buff[0], b)
	}
	return nil
}

// ReadRawBytes reads n bytes from r. The allocation grows with the actually
// received data, so a huge announced length alone cannot exhaust memory.
func ReadRawBytes(n uint64, r io.Reader) ([]byte, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("%w: implausible length %d", ErrMalformed, n)
	}

	var buff bytes.Buffer
	if m, err := io.CopyN(&buff, r, int64(n)); err != nil {
		return nil, fmt.Errorf("%w: got %d of %d announced bytes", ErrTruncated, m, n)
	}
	return buff.Bytes(), nil
}
