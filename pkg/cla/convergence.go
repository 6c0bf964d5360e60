// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cla defines the interfaces for Convergence Layer Adapters.
//
// A ConvergenceReceiver receives bundles from a peer and forwards them to an
// exposed channel. A ConvergenceSender transmits bundles to a peer. An
// implemented convergence layer can be one of those or both, depending on the
// convergence layer's specification.
//
// A ConvergenceProvider does not exchange bundles itself, but creates new
// Convergence instances, e.g., a listener accepting incoming connections.
//
// The Manager supervises all those types: it (re)starts them, fans their
// ConvergenceStatus messages into one channel and removes broken instances.
package cla

import (
	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

// Convergable describes any kind of type which supports convergence layer
// related services. This can be both a more specified Convergence interface
// type or a ConvergenceProvider.
type Convergable interface {
	// Close signals this Convergable to shut down.
	Close() error
}

// Convergence is the base interface for all Convergence Layer Adapters. There
// should be no direct implementation of this interface; implement
// ConvergenceReceiver and/or ConvergenceSender instead.
type Convergence interface {
	Convergable

	// Start this Convergence{Receiver,Sender}. An error might be returned next
	// to a boolean indicating if another Start attempt should be made later.
	Start() (error, bool)

	// Channel is a return channel for received bundles, status messages, etc.
	Channel() chan ConvergenceStatus

	// Address returns a unique address string, used both to identify this
	// Convergence{Receiver,Sender} and to ensure it is not opened twice.
	Address() string

	// IsPermanent returns true if this CLA should not be removed after failures.
	IsPermanent() bool
}

// ConvergenceReceiver receives bundles from a peer and forwards them to the
// channel exposed through the Channel method.
type ConvergenceReceiver interface {
	Convergence

	// GetEndpointID returns the endpoint ID assigned to this CLA.
	GetEndpointID() bpv7.EndpointID
}

// ConvergenceSender transmits bundles to another node.
type ConvergenceSender interface {
	Convergence

	// Send a bundle to this ConvergenceSender's peer. This method must be
	// thread safe and finish transmitting one bundle before acting on the next.
	Send(bndl *bpv7.Bundle) error

	// GetPeerEndpointID returns the endpoint ID assigned to this CLA's peer,
	// if it is already known. Otherwise the zero endpoint will be returned.
	GetPeerEndpointID() bpv7.EndpointID
}

// ConvergenceProvider supplies new Convergence instances to its Manager
// instead of transferring bundles itself, e.g., a listener registering one
// new Convergence for each accepted connection.
type ConvergenceProvider interface {
	Convergable

	// RegisterManager tells the ConvergenceProvider where to report new
	// Convergence instances to.
	RegisterManager(*Manager)

	// Start this ConvergenceProvider. The Manager calls RegisterManager first.
	Start() error
}
