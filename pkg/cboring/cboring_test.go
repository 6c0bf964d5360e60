// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestWriteMajorsMinimalForm(t *testing.T) {
	tests := []struct {
		m    MajorType
		n    uint64
		data []byte
	}{
		{UInt, 0, []byte{0x00}},
		{UInt, 1, []byte{0x01}},
		{UInt, 10, []byte{0x0A}},
		{UInt, 23, []byte{0x17}},
		{UInt, 24, []byte{0x18, 0x18}},
		{UInt, 25, []byte{0x18, 0x19}},
		{UInt, 100, []byte{0x18, 0x64}},
		{UInt, 1000, []byte{0x19, 0x03, 0xE8}},
		{UInt, 1000000, []byte{0x1A, 0x00, 0x0F, 0x42, 0x40}},
		{UInt, 1000000000000, []byte{0x1B, 0x00, 0x00, 0x00, 0xE8, 0xD4, 0xA5, 0x10, 0x00}},
		{UInt, 18446744073709551615, []byte{0x1B, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{ByteString, 4, []byte{0x44}},
		{TextString, 4, []byte{0x64}},
		{Array, 3, []byte{0x83}},
		{Map, 2, []byte{0xA2}},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%d-%d", test.m, test.n), func(t *testing.T) {
			var buff bytes.Buffer
			if err := WriteMajors(test.m, test.n, &buff); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(buff.Bytes(), test.data) {
				t.Fatalf("expected %x, got %x", test.data, buff.Bytes())
			}

			m, n, err := ReadMajors(bytes.NewReader(test.data))
			if err != nil {
				t.Fatal(err)
			}
			if m != test.m || n != test.n {
				t.Fatalf("read back (%d, %d) instead of (%d, %d)", m, n, test.m, test.n)
			}
		})
	}
}

func TestReadMajorsNonMinimalForm(t *testing.T) {
	// Valid, just not canonical. The decoder must take these anyway.
	tests := []struct {
		data []byte
		m    MajorType
		n    uint64
	}{
		{[]byte{0x18, 0x00}, UInt, 0},
		{[]byte{0x19, 0x00, 0x17}, UInt, 23},
		{[]byte{0x1A, 0x00, 0x00, 0x00, 0x01}, UInt, 1},
		{[]byte{0x1B, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0xE8}, UInt, 1000},
	}

	for _, test := range tests {
		m, n, err := ReadMajors(bytes.NewReader(test.data))
		if err != nil {
			t.Fatalf("%x: %v", test.data, err)
		}
		if m != test.m || n != test.n {
			t.Fatalf("%x: got (%d, %d), expected (%d, %d)", test.data, m, n, test.m, test.n)
		}
	}
}

func TestReadMajorsErrors(t *testing.T) {
	tests := []struct {
		data []byte
		err  error
	}{
		{[]byte{0x1C}, ErrMalformed},
		{[]byte{0x1D}, ErrMalformed},
		{[]byte{0x1E}, ErrMalformed},
		{[]byte{0x19, 0x03}, ErrTruncated},
		{[]byte{0x1B, 0x00, 0x00}, ErrTruncated},
		{[]byte{0x5F}, ErrMalformed},
		{[]byte{0xFF}, FlagBreakCode},
	}

	for _, test := range tests {
		if _, _, err := ReadMajors(bytes.NewReader(test.data)); !errors.Is(err, test.err) {
			t.Fatalf("%x: got %v, expected %v", test.data, err, test.err)
		}
	}
}

func TestUIntRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 23, 24, 255, 256, 65535, 65536, 4294967295, 4294967296, 18446744073709551615} {
		var buff bytes.Buffer
		if err := WriteUInt(n, &buff); err != nil {
			t.Fatal(err)
		}

		if m, err := ReadUInt(&buff); err != nil {
			t.Fatal(err)
		} else if m != n {
			t.Fatalf("got %d, expected %d", m, n)
		}
	}
}

func TestNegIntRoundTrip(t *testing.T) {
	tests := []struct {
		n    int64
		data []byte
	}{
		{-1, []byte{0x20}},
		{-10, []byte{0x29}},
		{-100, []byte{0x38, 0x63}},
		{-1000, []byte{0x39, 0x03, 0xE7}},
	}

	for _, test := range tests {
		var buff bytes.Buffer
		if err := WriteNegInt(test.n, &buff); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buff.Bytes(), test.data) {
			t.Fatalf("%d: expected %x, got %x", test.n, test.data, buff.Bytes())
		}

		if m, err := ReadNegInt(&buff); err != nil {
			t.Fatal(err)
		} else if m != test.n {
			t.Fatalf("got %d, expected %d", m, test.n)
		}
	}

	if err := WriteNegInt(1, &bytes.Buffer{}); err == nil {
		t.Fatal("writing a positive number as a negative integer succeeded")
	}
}

func TestByteStringRoundTrip(t *testing.T) {
	tests := []struct {
		data    []byte
		encoded []byte
	}{
		{[]byte{}, []byte{0x40}},
		{[]byte{0x01, 0x02, 0x03, 0x04}, []byte{0x44, 0x01, 0x02, 0x03, 0x04}},
	}

	for _, test := range tests {
		var buff bytes.Buffer
		if err := WriteByteString(test.data, &buff); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buff.Bytes(), test.encoded) {
			t.Fatalf("expected %x, got %x", test.encoded, buff.Bytes())
		}

		if data, err := ReadByteString(&buff); err != nil {
			t.Fatal(err)
		} else if !bytes.Equal(data, test.data) {
			t.Fatalf("got %x, expected %x", data, test.data)
		}
	}
}

func TestTextStringRoundTrip(t *testing.T) {
	tests := []struct {
		s       string
		encoded []byte
	}{
		{"", []byte{0x60}},
		{"a", []byte{0x61, 0x61}},
		{"IETF", []byte{0x64, 0x49, 0x45, 0x54, 0x46}},
		{"dtn://foo/", []byte{0x6A, 0x64, 0x74, 0x6E, 0x3A, 0x2F, 0x2F, 0x66, 0x6F, 0x6F, 0x2F}},
	}

	for _, test := range tests {
		var buff bytes.Buffer
		if err := WriteTextString(test.s, &buff); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buff.Bytes(), test.encoded) {
			t.Fatalf("expected %x, got %x", test.encoded, buff.Bytes())
		}

		if s, err := ReadTextString(&buff); err != nil {
			t.Fatal(err)
		} else if s != test.s {
			t.Fatalf("got %q, expected %q", s, test.s)
		}
	}
}

func TestReadTextStringInvalidUtf8(t *testing.T) {
	if _, err := ReadTextString(bytes.NewReader([]byte{0x62, 0xC3, 0x28})); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, expected ErrMalformed", err)
	}
}

func TestBooleanRoundTrip(t *testing.T) {
	for _, b := range []bool{false, true} {
		var buff bytes.Buffer
		if err := WriteBoolean(b, &buff); err != nil {
			t.Fatal(err)
		}

		if v, err := ReadBoolean(&buff); err != nil {
			t.Fatal(err)
		} else if v != b {
			t.Fatalf("got %t, expected %t", v, b)
		}
	}

	if _, err := ReadBoolean(bytes.NewReader([]byte{0x00})); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, expected ErrMalformed", err)
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	tests := []struct {
		f       float64
		encoded []byte
	}{
		{1.1, []byte{0xFB, 0x3F, 0xF1, 0x99, 0x99, 0x99, 0x99, 0x99, 0x9A}},
		{-4.1, []byte{0xFB, 0xC0, 0x10, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66}},
	}

	for _, test := range tests {
		var buff bytes.Buffer
		if err := WriteFloat64(test.f, &buff); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buff.Bytes(), test.encoded) {
			t.Fatalf("expected %x, got %x", test.encoded, buff.Bytes())
		}

		if f, err := ReadFloat64(&buff); err != nil {
			t.Fatal(err)
		} else if f != test.f {
			t.Fatalf("got %f, expected %f", f, test.f)
		}
	}
}

func TestReadExpect(t *testing.T) {
	if err := ReadExpect(IndefiniteArray, bytes.NewReader([]byte{0x9F})); err != nil {
		t.Fatal(err)
	}
	if err := ReadExpect(IndefiniteArray, bytes.NewReader([]byte{0x80})); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, expected ErrMalformed", err)
	}
	if err := ReadExpect(IndefiniteArray, bytes.NewReader([]byte{})); !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, expected ErrTruncated", err)
	}
}

func TestReadRawBytesTruncated(t *testing.T) {
	if _, err := ReadRawBytes(4, bytes.NewReader([]byte{0x01, 0x02})); !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, expected ErrTruncated", err)
	}
}
