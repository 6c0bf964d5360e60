// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// convergenceElem wraps a Convergence to assign a status, supervised by a Manager.
type convergenceElem struct {
	conv Convergence

	mutex sync.Mutex

	// convChnl is the Manager's inChnl.
	convChnl chan ConvergenceStatus

	// ttl is the amount of remaining Start attempts. A negative ttl implies an
	// active convergenceElem.
	ttl int

	// stop{Syn,Ack} supervise closing this convergenceElem, see deactivate().
	stopSyn chan struct{}
	stopAck chan struct{}
}

// newConvergenceElement creates a new convergenceElem for a Convergence with
// an initial ttl value.
func newConvergenceElement(conv Convergence, convChnl chan ConvergenceStatus, ttl int) *convergenceElem {
	return &convergenceElem{
		conv:     conv,
		convChnl: convChnl,
		ttl:      ttl,
	}
}

// asReceiver returns the wrapped Convergence as a ConvergenceReceiver, if possible.
func (ce *convergenceElem) asReceiver() (ConvergenceReceiver, bool) {
	cr, ok := ce.conv.(ConvergenceReceiver)
	return cr, ok
}

// asSender returns the wrapped Convergence as a ConvergenceSender, if possible.
func (ce *convergenceElem) asSender() (ConvergenceSender, bool) {
	cs, ok := ce.conv.(ConvergenceSender)
	return cs, ok
}

// isActive returns if the wrapped Convergence is active.
func (ce *convergenceElem) isActive() bool {
	return ce.ttl < 0
}

// handler forwards the Convergence's ConvergenceStatus messages to the
// Manager until this convergenceElem is deactivated.
func (ce *convergenceElem) handler() {
	for {
		select {
		case <-ce.stopSyn:
			log.WithField("cla", ce.conv).Debug("Closing CLA's handler")

			close(ce.stopAck)
			return

		case cs := <-ce.conv.Channel():
			log.WithFields(log.Fields{
				"cla":    ce.conv,
				"status": cs.String(),
			}).Debug("Forwarding ConvergenceStatus to Manager")

			ce.convChnl <- cs
		}
	}
}

// activate tries to start the wrapped Convergence. Both a success indicator
// and whether a new attempt should be made are returned.
func (ce *convergenceElem) activate() (successful, retry bool) {
	if ce.isActive() {
		return
	}

	ce.mutex.Lock()
	defer ce.mutex.Unlock()

	if ce.ttl == 0 && !ce.conv.IsPermanent() {
		log.WithFields(log.Fields{
			"cla":   ce.conv,
			"error": "TTL expired",
		}).Info("Failed to start CLA")

		return false, false
	}

	claErr, claRetry := ce.conv.Start()
	if claErr == nil {
		log.WithField("cla", ce.conv).Info("Started CLA")

		ce.ttl = -1

		ce.stopSyn = make(chan struct{})
		ce.stopAck = make(chan struct{})
		go ce.handler()

		return true, false
	}

	log.WithFields(log.Fields{
		"cla":       ce.conv,
		"permanent": ce.conv.IsPermanent(),
		"ttl":       ce.ttl,
		"retry":     claRetry,
		"error":     claErr,
	}).Info("Failed to start CLA")

	if claRetry {
		ce.ttl -= 1
	} else {
		ce.ttl = 0
	}

	return false, claRetry
}

// deactivate this convergenceElem, closing the wrapped Convergence and
// assigning a new ttl for future activations.
func (ce *convergenceElem) deactivate(ttl int) {
	if !ce.isActive() {
		return
	}

	log.WithField("cla", ce.conv).Info("Deactivating CLA")

	_ = ce.conv.Close()

	close(ce.stopSyn)
	<-ce.stopAck

	ce.ttl = ttl
}
