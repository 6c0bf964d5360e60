// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package utils

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/msgs"
)

// TransferStats are the byte and transfer counters of one session.
type TransferStats struct {
	BytesSent         uint64
	BytesAcked        uint64
	BytesReceived     uint64
	TransfersSent     uint64
	TransfersReceived uint64
	TransfersRefused  uint64
}

// TransferManager transfers Bundles bidirectionally over a pair of msgs.Message channels.
//
// Outgoing bundles are serialized once, chunked into XFER_SEGMENT messages and enqueued; Send returns after
// enqueueing, not after acknowledgement. The peer's cumulative XFER_ACKs are observed asynchronously,
// correlated by the session-scoped monotonically increasing transfer ID. Incoming segments are reassembled
// and acknowledged, finished bundles are handed over through the Exchange channel.
type TransferManager struct {
	msgIn  <-chan msgs.Message
	msgOut chan<- msgs.Message

	chanBundles chan bpv7.Bundle
	chanErrors  chan error
	chanEvents  chan struct{}

	segmentMtu uint64

	inTransfers sync.Map // map[uint64]*IncomingTransfer

	outNextId  uint64
	outPending sync.Map // map[uint64]uint64, transfer ID -> total length

	statsMutex sync.RWMutex
	stats      TransferStats

	sendMutex sync.Mutex

	stopChan chan struct{}
	stopped  uint32
}

// NewTransferManager for incoming and outgoing msgs.Message channels and a negotiated segment MTU.
func NewTransferManager(msgIn <-chan msgs.Message, msgOut chan<- msgs.Message, segmentMtu uint64) (tm *TransferManager) {
	tm = &TransferManager{
		msgIn:  msgIn,
		msgOut: msgOut,

		chanBundles: make(chan bpv7.Bundle),
		chanErrors:  make(chan error),
		chanEvents:  make(chan struct{}, 32),

		segmentMtu: segmentMtu,

		stopChan: make(chan struct{}),
	}

	go tm.handle()

	return
}

// Exchange channels for incoming Bundles or errors.
func (tm *TransferManager) Exchange() (bundles <-chan bpv7.Bundle, errChan <-chan error) {
	bundles = tm.chanBundles
	errChan = tm.chanErrors
	return
}

// Events returns a channel ticking whenever a transfer starts or finishes, allowing
// an owner to inspect Busy without polling.
func (tm *TransferManager) Events() <-chan struct{} {
	return tm.chanEvents
}

// notify of a transfer state change, without ever blocking.
func (tm *TransferManager) notify() {
	select {
	case tm.chanEvents <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of this session's transfer counters.
func (tm *TransferManager) Stats() TransferStats {
	tm.statsMutex.RLock()
	defer tm.statsMutex.RUnlock()

	return tm.stats
}

// Busy indicates unacknowledged outbound or unfinished inbound transfers.
func (tm *TransferManager) Busy() (busy bool) {
	tm.outPending.Range(func(_, _ interface{}) bool {
		busy = true
		return false
	})
	if !busy {
		tm.inTransfers.Range(func(_, _ interface{}) bool {
			busy = true
			return false
		})
	}
	return
}

// Close down this TransferManager.
func (tm *TransferManager) Close() (err error) {
	if atomic.CompareAndSwapUint32(&tm.stopped, 0, 1) {
		close(tm.stopChan)
	} else {
		err = fmt.Errorf("TransferManager was already closed")
	}

	return
}

func (tm *TransferManager) handle() {
	for {
		select {
		case <-tm.stopChan:
			return

		case msg := <-tm.msgIn:
			switch msg := msg.(type) {
			// Related to outgoing transfers
			case *msgs.XferAckMessage:
				totalI, ok := tm.outPending.Load(msg.TransferId)
				if !ok {
					tm.chanErrors <- fmt.Errorf("received acknowledgement for unknown transfer %d", msg.TransferId)
					return
				}

				if total := totalI.(uint64); msg.AckLen > total {
					tm.chanErrors <- fmt.Errorf(
						"transfer %d: acknowledged %d of %d bytes", msg.TransferId, msg.AckLen, total)
					return
				} else if msg.AckLen == total {
					tm.outPending.Delete(msg.TransferId)

					tm.statsMutex.Lock()
					tm.stats.BytesAcked += total
					tm.stats.TransfersSent += 1
					tm.statsMutex.Unlock()

					tm.notify()
				}

			case *msgs.XferRefuseMessage:
				if _, ok := tm.outPending.Load(msg.TransferId); !ok {
					tm.chanErrors <- fmt.Errorf("received refusal for unknown transfer %d", msg.TransferId)
					return
				}
				tm.outPending.Delete(msg.TransferId)

				tm.statsMutex.Lock()
				tm.stats.TransfersRefused += 1
				tm.statsMutex.Unlock()

				tm.notify()

			// Related to incoming transfers
			case *msgs.XferSegmentMessage:
				transferI, _ := tm.inTransfers.LoadOrStore(msg.TransferId, NewIncomingTransfer(msg.TransferId))
				transfer := transferI.(*IncomingTransfer)

				if xa, err := transfer.NextSegment(msg); err != nil {
					tm.chanErrors <- err
					return
				} else {
					tm.msgOut <- xa

					tm.statsMutex.Lock()
					tm.stats.BytesReceived += uint64(len(msg.Data))
					tm.statsMutex.Unlock()
				}

				if transfer.IsFinished() {
					tm.inTransfers.Delete(msg.TransferId)

					if b, err := transfer.ToBundle(); err != nil {
						tm.chanErrors <- err
						return
					} else {
						tm.statsMutex.Lock()
						tm.stats.TransfersReceived += 1
						tm.statsMutex.Unlock()

						tm.notify()

						tm.chanBundles <- b
					}
				}

			// Everything else
			default:
				tm.chanErrors <- fmt.Errorf("unexpected message %T", msg)
				return
			}
		}
	}
}

// Send an outgoing Bundle and return its transfer ID. The method returns after all segments are enqueued;
// acknowledgement happens asynchronously. A dropped session afterwards means hard loss of this transfer.
func (tm *TransferManager) Send(b bpv7.Bundle) (tid uint64, err error) {
	tid = atomic.AddUint64(&tm.outNextId, 1) - 1

	transfer, err := NewBundleOutgoingTransfer(tid, b)
	if err != nil {
		return
	}

	// Register before the first segment leaves, a fast peer may acknowledge immediately.
	tm.outPending.Store(tid, transfer.Length())
	tm.notify()

	tm.statsMutex.Lock()
	tm.stats.BytesSent += transfer.Length()
	tm.statsMutex.Unlock()

	// Segments of one transfer must leave in order.
	tm.sendMutex.Lock()
	defer tm.sendMutex.Unlock()

	for {
		xs, segErr := transfer.NextSegment(tm.segmentMtu)
		if segErr == io.EOF {
			return
		} else if segErr != nil {
			tm.outPending.Delete(tid)
			err = segErr
			return
		}

		select {
		case tm.msgOut <- xs:

		case <-tm.stopChan:
			tm.outPending.Delete(tid)
			err = fmt.Errorf("TransferManager was stopped")
			return
		}
	}
}
