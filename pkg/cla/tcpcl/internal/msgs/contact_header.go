// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msgs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ContactHeaderVersion is the protocol version this implementation speaks.
const ContactHeaderVersion uint8 = 4

// contactHeaderMagic are the four magic octets starting a Contact Header.
var contactHeaderMagic = []byte("dtn!")

// contactHeaderCode hooks the Contact Header into the message dispatch. It
// equals the first magic octet, 'd'.
const contactHeaderCode uint8 = 0x64

// ErrContactHeaderMismatch indicates a Contact Header with an unknown magic
// or an unsupported protocol version. The session must be closed.
var ErrContactHeaderMismatch = errors.New("contact header mismatch")

// ContactHeader is the fixed eight octet exchange starting a session: the
// magic "dtn!", the protocol version, a flags octet and the sender's keepalive
// interval in seconds as a big endian uint16. Unlike the framed messages, it
// is transmitted bit-exact without a CBOR payload.
type ContactHeader struct {
	Flags     uint8
	Keepalive uint16
}

// NewContactHeader with given flags and keepalive interval in seconds.
func NewContactHeader(flags uint8, keepalive uint16) *ContactHeader {
	return &ContactHeader{
		Flags:     flags,
		Keepalive: keepalive,
	}
}

func (ch ContactHeader) String() string {
	return fmt.Sprintf("ContactHeader(Version=%d, Flags=%#x, Keepalive=%d)",
		ContactHeaderVersion, ch.Flags, ch.Keepalive)
}

func (ch ContactHeader) Marshal(w io.Writer) error {
	var data = make([]byte, 8)
	copy(data[:4], contactHeaderMagic)
	data[4] = ContactHeaderVersion
	data[5] = ch.Flags
	binary.BigEndian.PutUint16(data[6:], ch.Keepalive)

	if n, err := w.Write(data); err != nil {
		return err
	} else if n != len(data) {
		return fmt.Errorf("wrote %d instead of %d bytes", n, len(data))
	}

	return nil
}

func (ch *ContactHeader) Unmarshal(r io.Reader) error {
	var data = make([]byte, 8)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}

	if !bytes.Equal(data[:4], contactHeaderMagic) {
		return fmt.Errorf("%w: invalid magic %x", ErrContactHeaderMismatch, data[:4])
	}
	if version := data[4]; version != ContactHeaderVersion {
		return fmt.Errorf("%w: version %d, expected %d", ErrContactHeaderMismatch, version, ContactHeaderVersion)
	}

	ch.Flags = data[5]
	ch.Keepalive = binary.BigEndian.Uint16(data[6:])
	return nil
}
