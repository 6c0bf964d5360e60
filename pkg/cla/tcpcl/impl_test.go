// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tcpcl

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla"
)

func randomTcpPort(t *testing.T) (port int) {
	if addr, err := net.ResolveTCPAddr("tcp", "localhost:0"); err != nil {
		t.Fatal(err)
	} else if l, err := net.ListenTCP("tcp", addr); err != nil {
		t.Fatal(err)
	} else {
		port = l.Addr().(*net.TCPAddr).Port
		_ = l.Close()
	}
	return
}

func randomData(size int) []byte {
	payload := make([]byte, size)

	rand.New(rand.NewSource(0)).Read(payload)

	return payload
}

func testBundle(t *testing.T, source, destination interface{}, payload []byte) bpv7.Bundle {
	bndl, err := bpv7.Builder().
		CRC(bpv7.CRC32).
		Source(source).
		Destination(destination).
		CreationTimestampNow().
		Lifetime(30 * time.Minute).
		HopCountBlock(64).
		PayloadBlock(payload).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return bndl
}

func handleListener(listener cla.ConvergenceProvider, msgs, clients int, clientWg, serverWg *sync.WaitGroup, errs chan error) {
	var (
		msgsRecv  uint32
		msgsApprd uint32
	)

	defer serverWg.Done()

	manager := cla.NewManager()
	manager.Register(listener)

	go func() {
		for {
			switch cs := <-manager.Channel(); cs.MessageType {
			case cla.ReceivedBundle:
				atomic.AddUint32(&msgsRecv, 1)

			case cla.PeerAppeared:
				atomic.AddUint32(&msgsApprd, 1)

				if sender, ok := cs.Sender.(cla.ConvergenceSender); !ok {
					errs <- fmt.Errorf("listener: new peer is not a ConvergenceSender; %v", cs)
				} else {
					dst := sender.GetPeerEndpointID()
					bndl, err := bpv7.Builder().
						CRC(bpv7.CRC32).
						Source("dtn://server/").
						Destination(dst).
						CreationTimestampNow().
						Lifetime(30 * time.Minute).
						HopCountBlock(64).
						PayloadBlock([]byte("hello back!")).
						Build()
					if err != nil {
						errs <- fmt.Errorf("listener: %w", err)
					} else if err = sender.Send(&bndl); err != nil {
						errs <- fmt.Errorf("listener for %v: %w", dst, err)
					}
				}
			}
		}
	}()

	clientWg.Wait()
	time.Sleep(time.Second)

	if err := manager.Close(); err != nil {
		errs <- err
	}

	if r := atomic.LoadUint32(&msgsRecv); r != uint32(msgs*clients) {
		errs <- fmt.Errorf("listener received %d messages instead of %d", r, msgs*clients)
	}
	if a := atomic.LoadUint32(&msgsApprd); a != uint32(clients) {
		errs <- fmt.Errorf("listener received %d appeared peers instead of %d", a, clients)
	}
}

func handleClient(serverAddr string, clientNo, msgs, payload int, clientWg *sync.WaitGroup, errs chan error) {
	defer clientWg.Done()

	clientEid := bpv7.MustNewEndpointID(fmt.Sprintf("dtn://client-%d/", clientNo))
	client := DialTCP(serverAddr, clientEid, false)
	if err, _ := client.Start(); err != nil {
		errs <- fmt.Errorf("client %d: %w", clientNo, err)
		return
	}

	time.Sleep(time.Second)

	var thisClientWg sync.WaitGroup
	thisClientWg.Add(2)

	go func() {
		for {
			switch cs := <-client.Channel(); cs.MessageType {
			case cla.ReceivedBundle:
				thisClientWg.Done()
			}
		}
	}()

	go func() {
		defer thisClientWg.Done()

		for i := 0; i < msgs; i++ {
			bndl, err := bpv7.Builder().
				CRC(bpv7.CRC32).
				Source(clientEid).
				Destination("dtn://server/").
				CreationTimestampNow().
				Lifetime(30 * time.Minute).
				HopCountBlock(64).
				PayloadBlock(randomData(payload)).
				Build()

			if err != nil {
				errs <- fmt.Errorf("client %d: %w", clientNo, err)
			} else if err := client.Send(&bndl); err != nil {
				errs <- fmt.Errorf("client %d: %w", clientNo, err)
			}
		}
	}()

	thisClientWg.Wait()
	time.Sleep(time.Second)

	if err := client.Close(); err != nil {
		errs <- err
	}
}

func startTestNetwork(msgs, clients, payload int, t *testing.T) {
	var serverAddr = fmt.Sprintf("localhost:%d", randomTcpPort(t))
	var errs = make(chan error)

	var clientWg sync.WaitGroup
	var serverWg sync.WaitGroup

	clientWg.Add(clients)
	serverWg.Add(1)

	listener := ListenTCP(serverAddr, bpv7.MustNewEndpointID("dtn://server/"))
	go handleListener(listener, msgs, clients, &clientWg, &serverWg, errs)
	time.Sleep(250 * time.Millisecond)

	for i := 0; i < clients; i++ {
		go handleClient(serverAddr, i, msgs, payload, &clientWg, errs)
	}

	go func() {
		serverWg.Wait()
		close(errs)
	}()

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestImplNetwork(t *testing.T) {
	tests := []struct {
		clients int
		msgs    int
		payload int
	}{
		{1, 1, 64},
		{1, 1, 2097152},
		{1, 256, 1024},
		{2, 1, 64},
		{2, 256, 1024},
		{64, 1, 1024},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%d-%d-%d", test.clients, test.msgs, test.payload), func(t *testing.T) {
			startTestNetwork(test.msgs, test.clients, test.payload, t)
		})
	}
}

// TestClientContactHeaderMismatch lets a client dial a peer speaking protocol version 3. The session must be
// closed erroneous directly after the Contact Header exchange; no XFER_SEGMENT may have hit the wire.
func TestClientContactHeaderMismatch(t *testing.T) {
	serverAddr := fmt.Sprintf("localhost:%d", randomTcpPort(t))

	ln, err := net.Listen("tcp", serverAddr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	bytesRecv := make(chan int, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			bytesRecv <- -1
			return
		}

		// Contact Header with version 3 instead of 4.
		_, _ = conn.Write([]byte{0x64, 0x74, 0x6E, 0x21, 0x03, 0x00, 0x00, 0x1E})

		var total int
		buff := make([]byte, 64)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, err := conn.Read(buff)
			total += n
			if err != nil {
				break
			}
		}
		_ = conn.Close()
		bytesRecv <- total
	}()

	client := DialTCP(serverAddr, bpv7.MustNewEndpointID("dtn://victim/"), false)
	err, _ = client.Start()
	if !errors.Is(err, ErrContactHeaderMismatch) {
		t.Fatalf("error is %v, expected ErrContactHeaderMismatch", err)
	}

	if state := client.State(); state != SessionClosedError {
		t.Fatalf("session state is %v, expected closed with error", state)
	}
	if sessErr := client.Err(); !errors.Is(sessErr, ErrContactHeaderMismatch) {
		t.Fatalf("session error is %v", sessErr)
	}

	// The peer must have seen at most our Contact Header, never a XFER_SEGMENT.
	if total := <-bytesRecv; total != 0 && total != 8 {
		t.Fatalf("peer received %d bytes, expected at most the 8 byte Contact Header", total)
	}
}

func TestClientSessionLifecycle(t *testing.T) {
	serverAddr := fmt.Sprintf("localhost:%d", randomTcpPort(t))

	manager := cla.NewManager()
	manager.Register(ListenTCP(serverAddr, bpv7.MustNewEndpointID("dtn://server/")))
	defer func() { _ = manager.Close() }()

	go func() {
		for range manager.Channel() {
		}
	}()

	time.Sleep(250 * time.Millisecond)

	client := DialTCP(serverAddr, bpv7.MustNewEndpointID("dtn://client/"), false)
	if state := client.State(); state != SessionIdle {
		t.Fatalf("fresh client's state is %v", state)
	}

	if err, _ := client.Start(); err != nil {
		t.Fatal(err)
	}
	if state := client.State(); state != SessionEstablished {
		t.Fatalf("started client's state is %v", state)
	}

	go func() {
		for range client.Channel() {
		}
	}()

	for i := 0; i < 2; i++ {
		bndl := testBundle(t, "dtn://client/", "dtn://server/", randomData(1024))

		if tid, err := client.SendBundle(bndl); err != nil {
			t.Fatal(err)
		} else if tid != uint64(i) {
			t.Fatalf("transfer ID is %d, expected %d", tid, i)
		}
	}

	// Acknowledgements arrive asynchronously.
	for deadline := time.Now().Add(5 * time.Second); ; {
		if client.Stats().TransfersSent == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats: %+v", client.Stats())
		}
		time.Sleep(50 * time.Millisecond)
	}

	stats := client.Stats()
	if stats.BytesSent == 0 || stats.BytesSent != stats.BytesAcked {
		t.Fatalf("stats: %+v", stats)
	}
	if stats.EstablishedAt.IsZero() || stats.Elapsed() <= 0 {
		t.Fatalf("stats: %+v", stats)
	}

	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if state := client.State(); state != SessionClosedClean {
		t.Fatalf("closed client's state is %v", state)
	}

	if _, err := client.SendBundle(testBundle(t, "dtn://client/", "dtn://server/", []byte("nope"))); !errors.Is(err, ErrSessionNotEstablished) {
		t.Fatalf("error is %v, expected ErrSessionNotEstablished", err)
	}
}
