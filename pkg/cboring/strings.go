// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// WriteByteStringLen writes the head of a byte string of length n. The n raw
// bytes must follow on w; this split form lets large payloads stream through
// without an intermediate copy.
func WriteByteStringLen(n uint64, w io.Writer) error {
	return WriteMajors(ByteString, n, w)
}

// ReadByteStringLen reads the head of a byte string, returning its length.
func ReadByteStringLen(r io.Reader) (n uint64, err error) {
	var m MajorType
	if m, n, err = ReadMajors(r); err != nil {
		return
	} else if m != ByteString {
		err = fmt.Errorf("%w: expected byte string, got major type %d", ErrMalformed, m>>5)
	}
	return
}

// WriteByteString writes a byte string.
func WriteByteString(data []byte, w io.Writer) error {
	if err := WriteByteStringLen(uint64(len(data)), w); err != nil {
		return err
	}

	_, err := w.Write(data)
	return err
}

// ReadByteString reads a byte string.
func ReadByteString(r io.Reader) (data []byte, err error) {
	n, err := ReadByteStringLen(r)
	if err != nil {
		return
	}
	return ReadRawBytes(n, r)
}

// WriteTextStringLen writes the head of a text string of length n, counted in
// bytes of its UTF-8 form.
func WriteTextStringLen(n uint64, w io.Writer) error {
	return WriteMajors(TextString, n, w)
}

// ReadTextStringLen reads the head of a text string, returning its byte length.
func ReadTextStringLen(r io.Reader) (n uint64, err error) {
	var m MajorType
	if m, n, err = ReadMajors(r); err != nil {
		return
	} else if m != TextString {
		err = fmt.Errorf("%w: expected text string, got major type %d", ErrMalformed, m>>5)
	}
	return
}

// WriteTextString writes a text string.
func WriteTextString(s string, w io.Writer) error {
	if err := WriteTextStringLen(uint64(len(s)), w); err != nil {
		return err
	}

	_, err := io.WriteString(w, s)
	return err
}

// ReadTextString reads a text string, which must be valid UTF-8.
func ReadTextString(r io.Reader) (s string, err error) {
	n, err := ReadTextStringLen(r)
	if err != nil {
		return
	}

	data, err := ReadRawBytes(n, r)
	if err != nil {
		return
	}

	if !utf8.Valid(data) {
		err = fmt.Errorf("%w: text string is no valid UTF-8", ErrMalformed)
		return
	}

	s = string(data)
	return
}
