// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package routing is the Bundle Protocol Agent: it owns the convergence layer
// manager, the bundle store, the application agents and the routing decision,
// and moves bundles between all of them.
package routing

import (
	"encoding/gob"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/bpnode-go/pkg/agent"
	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla"
	"github.com/dtn7/bpnode-go/pkg/storage"
)

// Property value types this package stores in a BundleItem; the bpv7 types
// are registered in pkg/storage itself.
func init() {
	gob.Register(map[Constraint]bool{})
	gob.Register(map[cla.CLAType][]bpv7.EndpointID{})
}

// Core is the inner processing of our DTN node which handles transmission,
// reception and forwarding of bundles.
type Core struct {
	InspectAllBundles bool
	NodeId            bpv7.EndpointID

	agentManager *AgentManager
	cron         *Cron
	claManager   *cla.Manager
	idKeeper     IdKeeper
	routing      Algorithm
	routes       *RoutingTable
	status       *statusKeeper

	store *storage.Store

	stopSyn chan struct{}
	stopAck chan struct{}
}

// NewCore will be created according to the parameters.
//
//	storePath: path for the bundle and metadata storage
//	nodeId: singleton Endpoint ID/Node ID
//	inspectAllBundles: inspect all administrative records, not only those addressed to this node
//	routingConf: selected routing algorithm, its configuration and static routes
func NewCore(storePath string, nodeId bpv7.EndpointID, inspectAllBundles bool, routingConf RoutingConf) (*Core, error) {
	var c = new(Core)

	if !nodeId.IsSingleton() {
		return nil, fmt.Errorf("passed Node ID MUST be a singleton; %s is not", nodeId)
	}
	c.InspectAllBundles = inspectAllBundles
	c.NodeId = nodeId

	c.cron = NewCron()

	if store, err := storage.NewStore(storePath); err != nil {
		return nil, err
	} else {
		c.store = store
	}

	c.agentManager = NewAgentManager(c)

	c.claManager = cla.NewManager()

	c.idKeeper = NewIdKeeper()
	c.status = newStatusKeeper()

	c.routes = NewRoutingTable()
	if err := routingConf.InstallRoutes(c.routes); err != nil {
		return nil, err
	}

	if ra, raErr := routingConf.RoutingAlgorithm(c); raErr != nil {
		return nil, raErr
	} else {
		c.routing = ra
	}

	c.stopSyn = make(chan struct{})
	c.stopAck = make(chan struct{})

	if err := c.cron.Register("pending_bundles", c.checkPendingBundles, 10*time.Second); err != nil {
		log.WithError(err).Warn("Failed to register pending_bundles at cron")
	}
	if err := c.cron.Register("expired_bundles", c.checkExpiredBundles, 30*time.Second); err != nil {
		log.WithError(err).Warn("Failed to register expired_bundles at cron")
	}
	if err := c.cron.Register("status_keeper", c.status.clean, 10*time.Minute); err != nil {
		log.WithError(err).Warn("Failed to register status_keeper at cron")
	}

	go c.handler()

	return c, nil
}

// SetRoutingAlgorithm overwrites the used Algorithm.
func (c *Core) SetRoutingAlgorithm(routing Algorithm) {
	c.routing = routing
}

// RoutingTable grants access to the static next hop table, e.g., to install
// or remove routes at runtime.
func (c *Core) RoutingTable() *RoutingTable {
	return c.routes
}

// checkPendingBundles queries pending bundles from the store and tries to
// dispatch them again.
func (c *Core) checkPendingBundles() {
	if bis, err := c.store.QueryPending(); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Failed to fetch pending bundles")
	} else {
		for _, bi := range bis {
			log.WithFields(log.Fields{
				"bundle": bi.Id,
			}).Info("Retrying bundle from store")

			c.dispatching(NewBundleDescriptor(bi.BId, c.store))
		}
	}
}

// checkExpiredBundles drops stored bundles whose lifetime has passed. This
// also covers partial reassemblies; a deletion status report is generated
// when the bundle's control flags request one.
func (c *Core) checkExpiredBundles() {
	bis, err := c.store.QueryExpired()
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Failed to fetch expired bundles")
		return
	}

	for _, bi := range bis {
		log.WithFields(log.Fields{
			"bundle": bi.Id,
		}).Info("Dropping expired bundle from store")

		c.bundleDeletion(NewBundleDescriptor(bi.BId, c.store), bpv7.LifetimeExpired)
	}
}

// handler does the Core's background tasks
func (c *Core) handler() {
	for {
		select {
		// Invoked by Close(), shuts down
		case <-c.stopSyn:
			c.cron.Stop()

			if err := c.claManager.Close(); err != nil {
				log.WithError(err).Warn("Closing CLA Manager while shutting down errored")
			}

			if err := c.store.Close(); err != nil {
				log.WithError(err).Warn("Closing store while shutting down errored")
			}

			close(c.stopAck)
			return

		// Handle a received ConvergenceStatus
		case cs := <-c.claManager.Channel():
			switch cs.MessageType {
			case cla.ReceivedBundle:
				crb := cs.Message.(cla.ConvergenceReceivedBundle)

				bp := NewBundleDescriptorFromBundle(*crb.Bundle, c.store)
				bp.Receiver = crb.Endpoint
				_ = bp.Sync()

				c.receive(bp)

			case cla.PeerAppeared:
				c.routing.ReportPeerAppeared(cs.Sender)
				c.checkPendingBundles()

			case cla.PeerDisappeared:
				c.routing.ReportPeerDisappeared(cs.Sender)

			default:
				log.WithFields(log.Fields{
					"cla":    cs.Sender,
					"type":   cs.MessageType,
					"status": cs,
				}).Warn("Received ConvergenceStatus with unknown type")
			}
		}
	}
}

// Close shuts the Core down and notifies all bounded ConvergenceReceivers to
// also close the connection.
func (c *Core) Close() {
	close(c.stopSyn)
	<-c.stopAck
}

// RegisterApplicationAgent adds a new ApplicationAgent to this Core's list.
func (c *Core) RegisterApplicationAgent(app agent.ApplicationAgent) {
	c.agentManager.Register(app)
}

// senderForDestination returns an array of ConvergenceSenders whose peer node
// equals the requested one. This is used both for direct delivery and for
// resolving a static route's next hop to its connected CLAs.
func (c *Core) senderForDestination(endpoint bpv7.EndpointID) (css []cla.ConvergenceSender) {
	for _, cs := range c.claManager.Sender() {
		if cs.GetPeerEndpointID().SameNode(endpoint) {
			css = append(css, cs)
		}
	}
	return
}

// HasEndpoint checks if the given endpoint ID is assigned either to an
// application or a CLA governed by this BPA.
func (c *Core) HasEndpoint(endpoint bpv7.EndpointID) bool {
	if c.NodeId.SameNode(endpoint) {
		return true
	}

	if c.agentManager.HasEndpoint(endpoint) {
		return true
	}

	if c.claManager.HasEndpoint(endpoint) {
		return true
	}

	for _, cr := range c.claManager.Receiver() {
		if cr.GetEndpointID().SameNode(endpoint) {
			return true
		}
	}

	return false
}

// SendStatusReport creates a new status report in response to the given
// BundleDescriptor and transmits it.
func (c *Core) SendStatusReport(descriptor BundleDescriptor, status bpv7.StatusInformationPos, reason bpv7.StatusReportReason) {
	// Don't respond to other administrative records
	bndl, _ := descriptor.Bundle()
	if bndl.PrimaryBlock.BundleControlFlags.Has(bpv7.AdministrativeRecordPayload) {
		return
	}

	// Don't respond to ourself
	if c.HasEndpoint(bndl.PrimaryBlock.ReportTo) {
		return
	}

	log.WithFields(log.Fields{
		"bundle": descriptor.ID(),
		"status": status,
		"reason": reason,
	}).Info("Sending a status report for a bundle")

	var sr = bpv7.NewStatusReport(*bndl, status, reason, bpv7.DtnTimeNow())
	var ar, arErr = bpv7.AdministrativeRecordToCbor(sr)
	if arErr != nil {
		log.WithFields(log.Fields{
			"bundle": descriptor.ID(),
			"error":  arErr,
		}).Warn("Serializing administrative record failed")

		return
	}

	var aaEndpoint = descriptor.Receiver
	if aaEndpoint == bpv7.DtnNone() {
		aaEndpoint = c.NodeId
	}

	if !c.HasEndpoint(aaEndpoint) && aaEndpoint != c.NodeId {
		log.WithFields(log.Fields{
			"bundle":   descriptor.ID(),
			"endpoint": aaEndpoint,
		}).Warn("Failed to create status report, receiver is not a current endpoint")

		return
	}

	var outBndl, err = bpv7.Builder().
		BundleCtrlFlags(bpv7.AdministrativeRecordPayload).
		Source(aaEndpoint).
		Destination(bndl.PrimaryBlock.ReportTo).
		CreationTimestampNow().
		Lifetime("60m").
		Canonical(ar.Value, ar.BlockControlFlags).
		Build()

	if err != nil {
		log.WithFields(log.Fields{
			"bundle": descriptor.ID(),
			"error":  err,
		}).Warn("Creating status report bundle failed")

		return
	}

	c.SendBundle(&outBndl)
}

// RegisterConvergable is the exposed Register method from the CLA Manager.
func (c *Core) RegisterConvergable(conv cla.Convergable) {
	c.claManager.Register(conv)
}

// RegisterCLA registers a CLA with the CLA Manager (just as the
// RegisterConvergable method) but also adds the CLA's endpoint ID to the set
// of registered IDs for its type.
func (c *Core) RegisterCLA(conv cla.Convergable, claType cla.CLAType, eid bpv7.EndpointID) {
	c.claManager.RegisterEndpointID(claType, eid)
	c.claManager.Register(conv)
}

// RegisteredCLAs returns the EndpointIDs of all registered CLAs of the specified type.
// Returns an empty slice if no CLAs of the type exist.
func (c *Core) RegisteredCLAs(claType cla.CLAType) []bpv7.EndpointID {
	return c.claManager.EndpointIDs(claType)
}
