// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"bytes"
	"io"
	"testing"
)

type testPoint struct {
	X uint64
	Y string
}

func (tp *testPoint) MarshalCbor(w io.Writer) error {
	if err := WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := WriteUInt(tp.X, w); err != nil {
		return err
	}
	return WriteTextString(tp.Y, w)
}

func (tp *testPoint) UnmarshalCbor(r io.Reader) error {
	if n, err := ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return ErrMalformed
	}

	var err error
	if tp.X, err = ReadUInt(r); err != nil {
		return err
	}
	tp.Y, err = ReadTextString(r)
	return err
}

func TestMarshalerRoundTrip(t *testing.T) {
	var buff bytes.Buffer

	in := testPoint{X: 23, Y: "dtn"}
	if err := Marshal(&in, &buff); err != nil {
		t.Fatal(err)
	}

	var out testPoint
	if err := Unmarshal(&out, &buff); err != nil {
		t.Fatal(err)
	}

	if in != out {
		t.Fatalf("got %v, expected %v", out, in)
	}
}

func TestMarshalerIndefiniteArrayLoop(t *testing.T) {
	// The Bundle wire format is an indefinite-length array of blocks. Its
	// decoder unmarshals elements until the FlagBreakCode signal surfaces.
	var buff bytes.Buffer

	if _, err := buff.Write([]byte{IndefiniteArray}); err != nil {
		t.Fatal(err)
	}
	points := []testPoint{{1, "a"}, {2, "b"}, {3, "c"}}
	for i := range points {
		if err := Marshal(&points[i], &buff); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := buff.Write([]byte{BreakCode}); err != nil {
		t.Fatal(err)
	}

	if err := ReadExpect(IndefiniteArray, &buff); err != nil {
		t.Fatal(err)
	}

	var read []testPoint
	for {
		var tp testPoint
		if err := Unmarshal(&tp, &buff); err == FlagBreakCode {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		read = append(read, tp)
	}

	if len(read) != len(points) {
		t.Fatalf("read %d points, expected %d", len(read), len(points))
	}
	for i := range points {
		if read[i] != points[i] {
			t.Fatalf("index %d: got %v, expected %v", i, read[i], points[i])
		}
	}
}
