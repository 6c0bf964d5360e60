// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cboring

import (
	"io"
)

// CborMarshaler is the interface implemented by types serializing themselves
// from and to streamed CBOR.
type CborMarshaler interface {
	MarshalCbor(w io.Writer) error
	UnmarshalCbor(r io.Reader) error
}

// Marshal writes m's CBOR representation to w.
func Marshal(m CborMarshaler, w io.Writer) error {
	return m.MarshalCbor(w)
}

// Unmarshal populates m from its CBOR representation read from r.
func Unmarshal(m CborMarshaler, r io.Reader) error {
	return m.UnmarshalCbor(r)
}
