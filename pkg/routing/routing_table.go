// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"sync"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

// RoutingTable is a static next hop table, mapping a destination node to the
// peer node a bundle should be forwarded to. It is read on every forwarded
// bundle and only written on configuration changes.
type RoutingTable struct {
	mutex  sync.RWMutex
	routes map[bpv7.EndpointID]bpv7.EndpointID
}

// NewRoutingTable creates an empty RoutingTable.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{
		routes: make(map[bpv7.EndpointID]bpv7.EndpointID),
	}
}

// SetRoute to a destination node over the given next hop peer. An existing
// route for the same destination will be replaced.
func (rt *RoutingTable) SetRoute(destination, via bpv7.EndpointID) {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	rt.routes[destination] = via
}

// UnsetRoute removes the route to a destination node, if one exists.
func (rt *RoutingTable) UnsetRoute(destination bpv7.EndpointID) {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	delete(rt.routes, destination)
}

// Lookup the next hop for a destination. The match is performed on the node,
// not the demux part, so dtn://node/inbox matches a route for dtn://node/.
func (rt *RoutingTable) Lookup(destination bpv7.EndpointID) (via bpv7.EndpointID, ok bool) {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	for dst, nextHop := range rt.routes {
		if dst.SameNode(destination) {
			return nextHop, true
		}
	}
	return
}

// Routes returns a snapshot of the current table.
func (rt *RoutingTable) Routes() map[bpv7.EndpointID]bpv7.EndpointID {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	routes := make(map[bpv7.EndpointID]bpv7.EndpointID, len(rt.routes))
	for dst, via := range rt.routes {
		routes[dst] = via
	}
	return routes
}
