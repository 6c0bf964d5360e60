// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/bpnode-go/pkg/cla"
)

// StaticRouting forwards bundles along the Core's RoutingTable only. The
// table itself is already consulted before any Algorithm, so this Algorithm
// contributes no fallback: a bundle without a matching route and without a
// directly connected destination stays stored until a route or peer shows up.
type StaticRouting struct {
	c *Core
}

// NewStaticRouting creates a StaticRouting Algorithm working on the given
// Core's RoutingTable.
func NewStaticRouting(c *Core) *StaticRouting {
	log.Debug("Initialised static routing")

	return &StaticRouting{c: c}
}

func (_ *StaticRouting) NotifyNewBundle(_ BundleDescriptor) {}

func (_ *StaticRouting) DispatchingAllowed(_ BundleDescriptor) bool {
	return true
}

// SenderForBundle returns no senders. The static next hop lookup has already
// happened at this point; without a route there is nothing left to choose.
func (sr *StaticRouting) SenderForBundle(bp BundleDescriptor) (css []cla.ConvergenceSender, del bool) {
	log.WithFields(log.Fields{
		"bundle":      bp.ID(),
		"destination": bp.MustBundle().PrimaryBlock.Destination,
	}).Debug("StaticRouting has no route for bundle")

	return nil, false
}

func (_ *StaticRouting) ReportFailure(_ BundleDescriptor, _ cla.ConvergenceSender) {}

func (_ *StaticRouting) ReportPeerAppeared(_ cla.Convergence) {}

func (_ *StaticRouting) ReportPeerDisappeared(_ cla.Convergence) {}

func (_ *StaticRouting) String() string {
	return "static"
}
