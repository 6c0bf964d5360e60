// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package msgs provides the messages of the TCP Convergence Layer protocol.
//
// After an initial Contact Header exchange, all traffic on a session consists
// of framed messages: a one octet message type code followed by the message's
// fields as a CBOR array, wrapped in a CBOR byte string for length prefixing.
package msgs

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// Message describes a message of the TCP Convergence Layer protocol.
//
// Marshal and Unmarshal operate on the whole frame, message type code
// included.
type Message interface {
	fmt.Stringer

	// Marshal this Message to a Writer.
	Marshal(w io.Writer) error

	// Unmarshal this Message from a Reader.
	Unmarshal(r io.Reader) error
}

// messages maps the known message type codes to an exemplary instance of
// their Message type, used by ReadMessage to create new instances.
//
// The Contact Header is not a framed message. However, as its magic starts
// with 0x64, it can be hooked in here and parsed by the same dispatch.
var messages = map[uint8]Message{
	XFER_SEGMENT:      &XferSegmentMessage{},
	XFER_ACK:          &XferAckMessage{},
	XFER_REFUSE:       &XferRefuseMessage{},
	KEEPALIVE:         &KeepaliveMessage{},
	SESS_TERM:         &SessTermMessage{},
	MSG_REJECT:        &MsgRejectMessage{},
	SESS_INIT:         &SessInitMessage{},
	contactHeaderCode: &ContactHeader{},
}

// NewMessage based on the message type code.
func NewMessage(typeCode uint8) (msg Message, err error) {
	msgType, exists := messages[typeCode]
	if !exists {
		err = fmt.Errorf("no message registered for type code %#x", typeCode)
		return
	}

	msgElem := reflect.TypeOf(msgType).Elem()
	msg = reflect.New(msgElem).Interface().(Message)
	return
}

// ReadMessage parses the next Message from the Reader.
func ReadMessage(r io.Reader) (msg Message, err error) {
	msgTypeBytes := make([]byte, 1)
	if _, msgTypeErr := io.ReadFull(r, msgTypeBytes); msgTypeErr != nil {
		err = msgTypeErr
		return
	}

	msg, err = NewMessage(msgTypeBytes[0])
	if err != nil {
		return
	}

	msgReader := io.MultiReader(bytes.NewBuffer(msgTypeBytes), r)
	err = msg.Unmarshal(msgReader)
	return
}

// marshalFrame writes a framed message: type code, then the CBOR encoded
// fields wrapped in a byte string.
func marshalFrame(typeCode uint8, fields cboring.CborMarshaler, w io.Writer) error {
	var buff bytes.Buffer
	if err := cboring.Marshal(fields, &buff); err != nil {
		return fmt.Errorf("marshalling message fields failed: %w", err)
	}

	if _, err := w.Write([]byte{typeCode}); err != nil {
		return err
	}
	return cboring.WriteByteString(buff.Bytes(), w)
}

// unmarshalFrame reads a framed message and decodes its CBOR fields.
func unmarshalFrame(typeCode uint8, fields cboring.CborMarshaler, r io.Reader) error {
	codeBytes := make([]byte, 1)
	if _, err := io.ReadFull(r, codeBytes); err != nil {
		return err
	} else if codeBytes[0] != typeCode {
		return fmt.Errorf("message type code is %#x, expected %#x", codeBytes[0], typeCode)
	}

	payload, err := cboring.ReadByteString(r)
	if err != nil {
		return fmt.Errorf("reading message payload failed: %w", err)
	}

	payloadBuff := bytes.NewBuffer(payload)
	if err := cboring.Unmarshal(fields, payloadBuff); err != nil {
		return fmt.Errorf("unmarshalling message fields failed: %w", err)
	} else if payloadBuff.Len() != 0 {
		return fmt.Errorf("message payload contains %d trailing bytes", payloadBuff.Len())
	}

	return nil
}
