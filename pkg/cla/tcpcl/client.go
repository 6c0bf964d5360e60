// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tcpcl provides a TCP Convergence Layer for bidirectional bundle exchange.
//
// A session starts with a synchronous Contact Header exchange, negotiating the
// keepalive interval, followed by a SESS_INIT exchange, negotiating MRUs and
// node IDs. Established sessions transfer bundles as segmented, acknowledged
// messages and close down through a two-way SESS_TERM exchange.
package tcpcl

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/stages"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl/internal/utils"
)

// Client is a TCP Convergence Layer client for a bidirectional bundle exchange. Thus, the Client type
// implements both cla.ConvergenceReceiver and cla.ConvergenceSender.
//
// A Client can be created by a TCPListener for incoming connections or dialed for outgoing connections
// via DialTCP. Its session's progress can be inspected through the State, Err and Stats methods.
type Client struct {
	address    string
	permanent  bool
	activePeer bool

	customStartFunc func(*Client) error

	started    bool
	connCloser io.Closer

	messageSwitch   *utils.MessageSwitch
	stageHandler    *stages.StageHandler
	transferManager *utils.TransferManager

	nodeId     bpv7.EndpointID
	peerNodeId bpv7.EndpointID

	keepalive   uint16
	segmentMru  uint64
	transferMru uint64

	// state must be accessed by the State and setState methods.
	state int32

	sessMutex     sync.RWMutex
	sessErr       error
	establishedAt time.Time
	finalStats    utils.TransferStats

	reportChan chan cla.ConvergenceStatus

	closeChanSyn chan struct{}
	closeChanAck chan struct{}
}

func (client *Client) String() string {
	var b strings.Builder

	_, _ = fmt.Fprintf(&b, "TCPCL(")
	_, _ = fmt.Fprintf(&b, "address=%s, ", client.Address())
	_, _ = fmt.Fprintf(&b, "node=%s, ", client.GetEndpointID())
	_, _ = fmt.Fprintf(&b, "peer=%v, ", client.GetPeerEndpointID())
	if client.activePeer {
		_, _ = fmt.Fprintf(&b, "peer=active")
	} else {
		_, _ = fmt.Fprintf(&b, "peer=passive")
	}
	_, _ = fmt.Fprintf(&b, ")")

	return b.String()
}

func (client *Client) log() *log.Entry {
	return log.WithField("cla", client.String())
}

// State of this Client's session.
func (client *Client) State() SessionState {
	return SessionState(atomic.LoadInt32(&client.state))
}

func (client *Client) setState(state SessionState) {
	atomic.StoreInt32(&client.state, int32(state))
}

// Err returns the error of a session in the SessionClosedError state, nil otherwise.
func (client *Client) Err() error {
	client.sessMutex.RLock()
	defer client.sessMutex.RUnlock()

	return client.sessErr
}

// Stats returns a snapshot of this session's transfer statistics.
func (client *Client) Stats() SessionStats {
	client.sessMutex.RLock()
	establishedAt := client.establishedAt
	transferStats := client.finalStats
	client.sessMutex.RUnlock()

	if tm := client.transferManager; tm != nil {
		transferStats = tm.Stats()
	}

	return sessionStatsFromTransfers(establishedAt, transferStats)
}

// Start this Client and return both an error and a boolean indicating if another Start should be tried later.
func (client *Client) Start() (err error, retry bool) {
	if client.started {
		if client.activePeer {
			client.connCloser = nil
			client.messageSwitch = nil
		} else {
			err = fmt.Errorf("passive client cannot be restarted")
			retry = false
			return
		}
	}

	client.started = true

	client.reportChan = make(chan cla.ConvergenceStatus, 32)

	client.closeChanSyn = make(chan struct{})
	client.closeChanAck = make(chan struct{})

	if client.keepalive == 0 {
		client.keepalive = 30
	}
	if client.segmentMru == 0 {
		client.segmentMru = 1048576
	}
	if client.transferMru == 0 {
		client.transferMru = 1073741824
	}

	if client.messageSwitch == nil {
		client.setState(SessionConnecting)

		if err = client.customStartFunc(client); err != nil {
			client.storeErr(err)
			client.setState(SessionClosedError)

			retry = true
			return
		}
	}
	msIncoming, msOutgoing, msErrChan := client.messageSwitch.Exchange()

	client.setState(SessionContactNegotiation)

	conf := stages.Configuration{
		ActivePeer:   client.activePeer,
		ContactFlags: 0,
		Keepalive:    client.keepalive,
		SegmentMru:   client.segmentMru,
		TransferMru:  client.transferMru,
		NodeId:       client.nodeId,
	}

	sMtuChan := make(chan uint64)
	stageHandlerStages := []stages.StageSetup{
		{
			Stage: &stages.ContactStage{},
			PreHook: func(_ *stages.StageHandler, _ *stages.State) error {
				client.log().Debug("Starting Contact Stage")
				return nil
			},
		},
		{
			Stage: &stages.SessInitStage{},
			PreHook: func(_ *stages.StageHandler, _ *stages.State) error {
				client.log().Debug("Starting Session Init Stage")
				return nil
			},
			PostHook: func(_ *stages.StageHandler, state *stages.State) error {
				client.peerNodeId = state.PeerNodeId
				return nil
			},
		},
		{
			Stage: &stages.SessEstablishedStage{},
			PreHook: func(_ *stages.StageHandler, state *stages.State) error {
				client.log().Debug("Starting Session Established Stage")

				sMtuChan <- state.SegmentMtu
				return nil
			},
		}}
	client.stageHandler = stages.NewStageHandler(stageHandlerStages, msIncoming, msOutgoing, conf)

	select {
	case <-time.After(15 * time.Second):
		err = fmt.Errorf("establishing an exchangeable connection timed out")
		client.storeErr(err)
		client.setState(SessionClosedError)

		retry = true
		return

	case err = <-msErrChan:
		// A Contact Header mismatch surfaces here; the socket pump fails on the malformed
		// header before any stage sees a message.
		if err == nil {
			err = fmt.Errorf("message exchange failed")
		}
		client.storeErr(err)
		client.setState(SessionClosedError)

		_ = client.stageHandler.Close()
		// Unblock the aborted stage's error propagation.
		go func() { <-client.stageHandler.Error() }()

		if client.connCloser != nil {
			_ = client.connCloser.Close()
		}

		retry = true
		return

	case err = <-client.stageHandler.Error():
		if err == nil {
			err = fmt.Errorf("session negotiation failed")
		}
		client.storeErr(err)
		client.setState(SessionClosedError)

		_ = client.messageSwitch.Close()
		go func() { <-msErrChan }()

		if client.connCloser != nil {
			_ = client.connCloser.Close()
		}

		retry = true
		return

	case sMtu := <-sMtuChan:
		stageHandlerIn, stageHandlerOut := client.stageHandler.Exchanges()
		client.transferManager = utils.NewTransferManager(stageHandlerIn, stageHandlerOut, sMtu)
	}

	client.sessMutex.Lock()
	client.establishedAt = time.Now()
	client.sessMutex.Unlock()

	client.setState(SessionEstablished)

	client.log().Info("Started TCPCL session")

	client.reportChan <- cla.NewConvergencePeerAppeared(client, client.peerNodeId)

	go client.handle()
	return
}

// drainTransfers blocks until all outstanding transfers are acknowledged or the timeout passed. Send
// returns on enqueue, so a closing session must flush its queue before the socket goes down.
func (client *Client) drainTransfers(timeout time.Duration) {
	tm := client.transferManager
	if tm == nil {
		return
	}

	deadline := time.Now().Add(timeout)
	for tm.Busy() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}

func (client *Client) storeErr(err error) {
	client.sessMutex.Lock()
	defer client.sessMutex.Unlock()

	if client.sessErr == nil {
		client.sessErr = err
	}
}

func (client *Client) handle() {
	_, _, messageSwitchErr := client.messageSwitch.Exchange()
	stageHandlerErr := client.stageHandler.Error()
	incomingBundles, transferManagerErr := client.transferManager.Exchange()
	transferEvents := client.transferManager.Events()

	defer func() {
		client.log().Info("Closing down TCPCL session")

		client.reportChan <- cla.NewConvergencePeerDisappeared(client, client.peerNodeId)

		client.sessMutex.Lock()
		client.finalStats = client.transferManager.Stats()
		client.sessMutex.Unlock()

		closeErrFuncs := []func() error{
			client.transferManager.Close,
			client.stageHandler.Close,
			client.messageSwitch.Close,
			func() error {
				if client.connCloser != nil {
					return client.connCloser.Close()
				} else {
					return nil
				}
			},
		}
		for i, errFunc := range closeErrFuncs {
			if err := errFunc(); err != nil {
				client.log().WithError(err).WithField("no", i).Debug("Error occurred while closing")
			}
		}

		client.transferManager = nil
		client.stageHandler = nil
		client.messageSwitch = nil

		if client.Err() != nil {
			client.setState(SessionClosedError)
		} else {
			client.setState(SessionClosedClean)
		}

		close(client.closeChanAck)
	}()

	for {
		var err error
		select {
		case b := <-incomingBundles:
			client.log().WithField("bundle", b).Info("Received Bundle")
			client.reportChan <- cla.NewConvergenceReceivedBundle(client, client.nodeId, &b)

		case <-transferEvents:
			// Transition between an idle established and a transferring session.
			if state := client.State(); state == SessionEstablished || state == SessionTransferring {
				if client.transferManager.Busy() {
					client.setState(SessionTransferring)
				} else {
					client.setState(SessionEstablished)
				}
			}

		case <-client.closeChanSyn:
			client.log().Debug("Received close signal")
			client.setState(SessionTerminating)
			client.drainTransfers(5 * time.Second)
			return

		case err = <-messageSwitchErr:
		case err = <-stageHandlerErr:
		case err = <-transferManagerErr:
		}

		if err != nil {
			if errors.Is(err, stages.StageClose) {
				// Graceful shutdown after a completed two-way SESS_TERM exchange.
				client.log().Debug("Session closed down by SESS_TERM")
				client.setState(SessionTerminating)
			} else if errors.Is(err, io.EOF) {
				client.log().Info("Received EOF")
				client.storeErr(err)
			} else {
				client.log().WithError(err).Error("Error occurred")
				client.storeErr(err)
			}
			return
		}
	}
}

// SendBundle transmits an outgoing bundle and returns its session-scoped transfer ID.
//
// The method returns once all segments are enqueued, not once they are acknowledged; acknowledgement is
// observed asynchronously and reflected in this Client's Stats. ErrSessionNotEstablished is returned
// outside the SessionEstablished and SessionTransferring states.
func (client *Client) SendBundle(b bpv7.Bundle) (tid uint64, err error) {
	switch client.State() {
	case SessionEstablished, SessionTransferring:
	default:
		err = ErrSessionNotEstablished
		return
	}

	tm := client.transferManager
	if tm == nil {
		err = ErrSessionNotEstablished
		return
	}

	client.log().WithField("bundle", b).Debug("Sending Bundle...")
	if tid, err = tm.Send(b); err == nil {
		client.log().WithFields(log.Fields{
			"bundle":   b,
			"transfer": tid,
		}).Info("Enqueued Bundle")
	}
	return
}

// Send a bundle to this Client's peer, implementing cla.ConvergenceSender.
func (client *Client) Send(b *bpv7.Bundle) error {
	_, err := client.SendBundle(*b)
	return err
}

// Close signals this Client to shut down.
func (client *Client) Close() error {
	close(client.closeChanSyn)
	<-client.closeChanAck

	return nil
}

// Channel represents a return channel for transmitted bundles, status messages, etc.
func (client *Client) Channel() chan cla.ConvergenceStatus {
	return client.reportChan
}

// Address should return a unique address string to both identify this Client and ensure it will not opened twice.
func (client *Client) Address() string {
	return client.address
}

// IsPermanent returns true, if this CLA should not be removed after failures.
func (client *Client) IsPermanent() bool {
	return client.permanent
}

// GetEndpointID returns the endpoint ID assigned to this CLA.
func (client *Client) GetEndpointID() bpv7.EndpointID {
	return client.nodeId
}

// GetPeerEndpointID returns the endpoint ID assigned to this CLA's peer, if it's known. Otherwise the zero
// endpoint will be returned.
func (client *Client) GetPeerEndpointID() bpv7.EndpointID {
	return client.peerNodeId
}
