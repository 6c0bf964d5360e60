// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
)

// Items are CBOR data of an upfront unknown shape, mapped to plain Go values:
//
//	unsigned integer  uint64
//	negative integer  int64
//	byte string       []byte
//	text string       string
//	array             []interface{}
//	map               map[interface{}]interface{}
//	boolean           bool
//	null, undefined   nil
//	float             float64
//
// The typed Read and Write functions should be preferred wherever the shape
// is known, which holds for every Bundle Protocol message.

// WriteItem writes the canonical CBOR encoding of a generic item. Map entries
// are ordered by their encoded keys, so identical maps yield identical bytes.
// It fails only for Go values without a CBOR mapping, or when w does.
func WriteItem(item interface{}, w io.Writer) error {
	switch v := item.(type) {
	case nil:
		_, err := w.Write([]byte{simpleNull})
		return err

	case bool:
		return WriteBoolean(v, w)

	case uint64:
		return WriteUInt(v, w)

	case uint:
		return WriteUInt(uint64(v), w)

	case int64:
		if v >= 0 {
			return WriteUInt(uint64(v), w)
		}
		return WriteNegInt(v, w)

	case int:
		return WriteItem(int64(v), w)

	case []byte:
		return WriteByteString(v, w)

	case string:
		return WriteTextString(v, w)

	case float64:
		return WriteFloat64(v, w)

	case []interface{}:
		if err := WriteArrayLength(uint64(len(v)), w); err != nil {
			return err
		}
		for _, elem := range v {
			if err := WriteItem(elem, w); err != nil {
				return err
			}
		}
		return nil

	case map[interface{}]interface{}:
		return writeMapItem(v, w)

	default:
		return fmt.Errorf("cboring: no CBOR mapping for type %T", item)
	}
}

func writeMapItem(m map[interface{}]interface{}, w io.Writer) error {
	type pair struct {
		encodedKey []byte
		value      interface{}
	}

	pairs := make([]pair, 0, len(m))
	for k, v := range m {
		var buff bytes.Buffer
		if err := WriteItem(k, &buff); err != nil {
			return err
		}
		pairs = append(pairs, pair{buff.Bytes(), v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].encodedKey, pairs[j].encodedKey) < 0
	})

	if err := WriteMapPairLength(uint64(len(pairs)), w); err != nil {
		return err
	}
	for _, p := range pairs {
		if _, err := w.Write(p.encodedKey); err != nil {
			return err
		}
		if err := WriteItem(p.value, w); err != nil {
			return err
		}
	}
	return nil
}

// ReadItem reads one generic item from r. The FlagBreakCode signal is passed
// through for indefinite-length array iteration.
func ReadItem(r io.Reader) (interface{}, error) {
	h, err := readHead(r)
	if err != nil {
		return nil, err
	}

	switch h.major() {
	case UInt:
		if h.indefinite {
			return nil, fmt.Errorf("%w: unsigned integer with indefinite length", ErrMalformed)
		}
		return h.val, nil

	case NegInt:
		if h.indefinite {
			return nil, fmt.Errorf("%w: negative integer with indefinite length", ErrMalformed)
		}
		if h.val > math.MaxInt64 {
			return nil, fmt.Errorf("%w: negative integer -%d overflows int64", ErrMalformed, h.val+1)
		}
		return -1 - int64(h.val), nil

	case ByteString:
		if h.indefinite {
			return nil, fmt.Errorf("%w: indefinite-length byte strings are not supported", ErrMalformed)
		}
		return ReadRawBytes(h.val, r)

	case TextString:
		if h.indefinite {
			return nil, fmt.Errorf("%w: indefinite-length text strings are not supported", ErrMalformed)
		}
		data, err := ReadRawBytes(h.val, r)
		if err != nil {
			return nil, err
		}
		return string(data), nil

	case Array:
		return readArrayItem(h, r)

	case Map:
		return readMapItem(h, r)

	case Tag:
		return nil, fmt.Errorf("%w: tags are not supported", ErrMalformed)

	default:
		return readSimpleItem(h)
	}
}

func readArrayItem(h head, r io.Reader) (interface{}, error) {
	if h.indefinite {
		arr := make([]interface{}, 0)
		for {
			elem, err := ReadItem(r)
			if err == FlagBreakCode {
				return arr, nil
			} else if err != nil {
				return nil, eofIsTruncated(err)
			}
			arr = append(arr, elem)
		}
	}

	arr := make([]interface{}, 0, allocationHint(h.val))
	for i := uint64(0); i < h.val; i++ {
		elem, err := ReadItem(r)
		if err != nil {
			return nil, eofIsTruncated(err)
		}
		arr = append(arr, elem)
	}
	return arr, nil
}

func readMapItem(h head, r io.Reader) (interface{}, error) {
	if h.indefinite {
		return nil, fmt.Errorf("%w: indefinite-length maps are not supported", ErrMalformed)
	}

	m := make(map[interface{}]interface{}, allocationHint(h.val))
	for i := uint64(0); i < h.val; i++ {
		key, err := ReadItem(r)
		if err != nil {
			return nil, eofIsTruncated(err)
		}

		switch key.(type) {
		case uint64, int64, string, bool, float64, nil:
		default:
			return nil, fmt.Errorf("%w: unsupported map key type %T", ErrMalformed, key)
		}

		value, err := ReadItem(r)
		if err != nil {
			return nil, eofIsTruncated(err)
		}
		m[key] = value
	}
	return m, nil
}

func readSimpleItem(h head) (interface{}, error) {
	switch h.raw {
	case simpleFalse:
		return false, nil
	case simpleTrue:
		return true, nil
	case simpleNull, simpleUndef:
		return nil, nil
	case simpleFloat64:
		return math.Float64frombits(h.val), nil
	default:
		return nil, fmt.Errorf("%w: unsupported simple value, head 0x%02X", ErrMalformed, h.raw)
	}
}

// allocationHint caps an announced collection length for the initial
// allocation. The collection still grows to any actually transmitted size.
func allocationHint(n uint64) int {
	const maxPreallocation = 1024
	if n > maxPreallocation {
		return maxPreallocation
	}
	return int(n)
}

// eofIsTruncated converts a clean io.EOF into an ErrTruncated. Nested items
// follow an already read head, so running dry is always a truncation there.
func eofIsTruncated(err error) error {
	if err == io.EOF {
		return fmt.Errorf("%w: input ended within an item", ErrTruncated)
	}
	if err == FlagBreakCode {
		return fmt.Errorf("%w: break code outside an indefinite-length array", ErrMalformed)
	}
	return err
}

// Encode returns the canonical CBOR encoding of a generic item.
func Encode(item interface{}) ([]byte, error) {
	var buff bytes.Buffer
	if err := WriteItem(item, &buff); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// Decode reads the first item of data, also reporting the consumed byte count.
func Decode(data []byte) (item interface{}, consumed int, err error) {
	cr := &countingReader{r: bytes.NewReader(data)}

	item, err = ReadItem(cr)
	if err == io.EOF {
		err = fmt.Errorf("%w: empty input", ErrTruncated)
	} else if err == FlagBreakCode {
		err = fmt.Errorf("%w: unexpected break code", ErrMalformed)
	}

	consumed = cr.n
	if err != nil {
		item = nil
	}
	return
}

// DecodeAll reads items until data is exhausted. Trailing bytes which form no
// complete item fail the whole decoding.
func DecodeAll(data []byte) (items []interface{}, err error) {
	r := bytes.NewReader(data)
	items = make([]interface{}, 0)

	for r.Len() > 0 {
		item, itemErr := ReadItem(r)
		if itemErr != nil {
			return nil, eofIsTruncated(itemErr)
		}
		items = append(items, item)
	}
	return
}

type countingReader struct {
	r io.Reader
	n int
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += n
	return n, err
}
