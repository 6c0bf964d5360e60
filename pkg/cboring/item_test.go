// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestItemEncodeVectors(t *testing.T) {
	tests := []struct {
		item    interface{}
		encoded []byte
	}{
		{uint64(0), []byte{0x00}},
		{uint64(100), []byte{0x18, 0x64}},
		{int64(-100), []byte{0x38, 0x63}},
		{uint64(10), []byte{0x0A}},
		{[]byte{0x01, 0x02, 0x03, 0x04}, []byte{0x44, 0x01, 0x02, 0x03, 0x04}},
		{"IETF", []byte{0x64, 0x49, 0x45, 0x54, 0x46}},
		{[]interface{}{}, []byte{0x80}},
		{[]interface{}{uint64(1), uint64(2), uint64(3)}, []byte{0x83, 0x01, 0x02, 0x03}},
		{
			[]interface{}{uint64(1), []interface{}{uint64(2), uint64(3)}, []interface{}{uint64(4), uint64(5)}},
			[]byte{0x83, 0x01, 0x82, 0x02, 0x03, 0x82, 0x04, 0x05},
		},
		{map[interface{}]interface{}{}, []byte{0xA0}},
		{false, []byte{0xF4}},
		{true, []byte{0xF5}},
		{nil, []byte{0xF6}},
		{1.1, []byte{0xFB, 0x3F, 0xF1, 0x99, 0x99, 0x99, 0x99, 0x99, 0x9A}},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.item), func(t *testing.T) {
			data, err := Encode(test.item)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(data, test.encoded) {
				t.Fatalf("expected %x, got %x", test.encoded, data)
			}

			item, consumed, err := Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			if consumed != len(data) {
				t.Fatalf("consumed %d of %d bytes", consumed, len(data))
			}
			if !reflect.DeepEqual(item, test.item) {
				t.Fatalf("got %v, expected %v", item, test.item)
			}
		})
	}
}

func TestItemMapDeterminism(t *testing.T) {
	m := map[interface{}]interface{}{
		"b":       uint64(2),
		"a":       uint64(1),
		uint64(1): uint64(0),
	}

	// Keys are ordered by their encodings: 0x01 before "a" before "b".
	expected := []byte{0xA3, 0x01, 0x00, 0x61, 0x61, 0x01, 0x61, 0x62, 0x02}

	for i := 0; i < 16; i++ {
		data, err := Encode(m)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, expected) {
			t.Fatalf("expected %x, got %x", expected, data)
		}
	}
}

func TestItemDecodeAnyValidForm(t *testing.T) {
	tests := []struct {
		data []byte
		item interface{}
	}{
		// Non-minimal integer encodings.
		{[]byte{0x18, 0x00}, uint64(0)},
		{[]byte{0x19, 0x00, 0x0A}, uint64(10)},
		// Indefinite-length array.
		{[]byte{0x9F, 0x01, 0x02, 0xFF}, []interface{}{uint64(1), uint64(2)}},
		{[]byte{0x9F, 0xFF}, []interface{}{}},
		// Undefined decodes like null.
		{[]byte{0xF7}, nil},
	}

	for _, test := range tests {
		item, consumed, err := Decode(test.data)
		if err != nil {
			t.Fatalf("%x: %v", test.data, err)
		}
		if consumed != len(test.data) {
			t.Fatalf("%x: consumed %d of %d bytes", test.data, consumed, len(test.data))
		}
		if !reflect.DeepEqual(item, test.item) {
			t.Fatalf("%x: got %v, expected %v", test.data, item, test.item)
		}
	}
}

func TestItemDecodeConsumed(t *testing.T) {
	data := []byte{0x83, 0x01, 0x02, 0x03, 0x17, 0x18, 0x2A}

	item, consumed, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != 4 {
		t.Fatalf("consumed %d bytes, expected 4", consumed)
	}
	if !reflect.DeepEqual(item, []interface{}{uint64(1), uint64(2), uint64(3)}) {
		t.Fatalf("unexpected item %v", item)
	}

	if item, consumed, err = Decode(data[consumed:]); err != nil || consumed != 1 || item != uint64(23) {
		t.Fatalf("second item: %v, %d, %v", item, consumed, err)
	}
}

func TestItemDecodeErrors(t *testing.T) {
	tests := []struct {
		data []byte
		err  error
	}{
		{[]byte{}, ErrTruncated},
		{[]byte{0x19, 0x03}, ErrTruncated},
		{[]byte{0x44, 0x01, 0x02}, ErrTruncated},
		{[]byte{0x83, 0x01, 0x02}, ErrTruncated},
		{[]byte{0x9F, 0x01}, ErrTruncated},
		{[]byte{0xA1, 0x01}, ErrTruncated},
		{[]byte{0x1C}, ErrMalformed},
		{[]byte{0x1F}, ErrMalformed},
		{[]byte{0x3F}, ErrMalformed},
		{[]byte{0xC1, 0x01}, ErrMalformed},
		{[]byte{0x5F, 0x41, 0x01, 0xFF}, ErrMalformed},
		{[]byte{0x7F, 0x61, 0x61, 0xFF}, ErrMalformed},
		{[]byte{0xBF, 0x01, 0x02, 0xFF}, ErrMalformed},
		{[]byte{0x3B, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, ErrMalformed},
		{[]byte{0xF8, 0x20}, ErrMalformed},
		{[]byte{0xF9, 0x3C, 0x00}, ErrMalformed},
		{[]byte{0xFF}, ErrMalformed},
		{[]byte{0xA1, 0x80, 0x00}, ErrMalformed},
		{[]byte{0x83, 0x01, 0xFF, 0x02}, ErrMalformed},
	}

	for _, test := range tests {
		if _, _, err := Decode(test.data); !errors.Is(err, test.err) {
			t.Fatalf("%x: got %v, expected %v", test.data, err, test.err)
		}
	}
}

func TestItemDecodeAll(t *testing.T) {
	items, err := DecodeAll([]byte{0x01, 0x62, 0x68, 0x69, 0x82, 0xF5, 0xF6})
	if err != nil {
		t.Fatal(err)
	}

	expected := []interface{}{uint64(1), "hi", []interface{}{true, nil}}
	if !reflect.DeepEqual(items, expected) {
		t.Fatalf("got %v, expected %v", items, expected)
	}

	if items, err = DecodeAll([]byte{}); err != nil || len(items) != 0 {
		t.Fatalf("empty input: %v, %v", items, err)
	}

	if _, err = DecodeAll([]byte{0x01, 0x19, 0x03}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, expected ErrTruncated", err)
	}
}

func TestItemEncodeNonNegativeInt(t *testing.T) {
	// Non-negative signed integers are encoded as unsigned integers and
	// therefore come back as uint64.
	data, err := Encode(int64(10))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0x0A}) {
		t.Fatalf("expected 0a, got %x", data)
	}

	item, _, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if item != uint64(10) {
		t.Fatalf("got %v (%T), expected uint64(10)", item, item)
	}
}

func TestItemEncodeUnsupportedType(t *testing.T) {
	if _, err := Encode(struct{}{}); err == nil {
		t.Fatal("encoding an unmapped type succeeded")
	}
}

func TestItemReEncodeCanonical(t *testing.T) {
	// Everything this encoder emits must survive a decode/encode cycle
	// byte-for-byte.
	items := []interface{}{
		uint64(42),
		int64(-42),
		"hello",
		[]byte{0xDE, 0xAD, 0xBE, 0xEF},
		[]interface{}{uint64(7), "x", []interface{}{nil, true}},
		map[interface{}]interface{}{"k": uint64(1), uint64(2): "v"},
	}

	for _, item := range items {
		first, err := Encode(item)
		if err != nil {
			t.Fatal(err)
		}

		decoded, consumed, err := Decode(first)
		if err != nil || consumed != len(first) {
			t.Fatalf("%v: %v, consumed %d", item, err, consumed)
		}

		second, err := Encode(decoded)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("%v: %x != %x", item, first, second)
		}
	}
}
