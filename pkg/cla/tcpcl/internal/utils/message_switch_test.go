// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package utils

import (
	"io"
	"testing"
	"time"

	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
)

func TestMessageSwitchSimple(t *testing.T) {
	const keepaliveSends = 1000

	in, out := io.Pipe()
	ms := NewMessageSwitch(in, out)
	incoming, outgoing, errChan := ms.Exchange()

	go func() {
		for i := 0; i < keepaliveSends; i++ {
			outgoing <- msgs.NewKeepaliveMessage()
		}
	}()

	for i := 0; i < keepaliveSends; i++ {
		select {
		case err := <-errChan:
			t.Fatal(err)

		case msg := <-incoming:
			if _, ok := msg.(*msgs.KeepaliveMessage); !ok {
				t.Fatalf("msg is %T", msg)
			}

		case <-time.After(250 * time.Millisecond):
			t.Fatal("timeout")
		}
	}

	if err := ms.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMessageSwitchGarbage(t *testing.T) {
	in, out := io.Pipe()
	ms := NewMessageSwitch(in, out)
	_, _, errChan := ms.Exchange()

	go func() {
		_, _ = out.Write([]byte{0xF0, 0x0B, 0xA2})
	}()

	select {
	case <-errChan:

	case <-time.After(250 * time.Millisecond):
		t.Fatal("timeout")
	}
}
