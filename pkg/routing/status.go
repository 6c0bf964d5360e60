// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"sync"
	"time"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

// BundleStatus describes the processing state of a bundle known to this node.
type BundleStatus int

const (
	// StatusInTransit is a stored bundle awaiting dispatching, forwarding or
	// reassembly.
	StatusInTransit BundleStatus = iota

	// StatusSent is a bundle which was handed over to at least one peer and
	// left this node's custody.
	StatusSent

	// StatusDelivered is a bundle delivered to a local application agent or
	// confirmed through a delivery status report.
	StatusDelivered

	// StatusExpired is a bundle dropped because its lifetime passed.
	StatusExpired

	// StatusDeleted is a bundle removed for another reason, or one this node
	// never knew.
	StatusDeleted
)

func (status BundleStatus) String() string {
	switch status {
	case StatusInTransit:
		return "in transit"

	case StatusSent:
		return "sent"

	case StatusDelivered:
		return "delivered"

	case StatusExpired:
		return "expired"

	case StatusDeleted:
		return "deleted"

	default:
		return "unknown"
	}
}

// statusEntry is a terminal BundleStatus together with its recording time.
type statusEntry struct {
	status BundleStatus
	when   time.Time
}

// statusKeeper remembers the terminal state of bundles after their removal
// from the store. Entries older than a day are cleaned out.
type statusKeeper struct {
	mutex sync.Mutex
	data  map[string]statusEntry
}

func newStatusKeeper() *statusKeeper {
	return &statusKeeper{
		data: make(map[string]statusEntry),
	}
}

func (sk *statusKeeper) record(bid bpv7.BundleID, status BundleStatus) {
	sk.mutex.Lock()
	defer sk.mutex.Unlock()

	// A delivery is final and must not be overwritten by a later deletion of
	// the stored bundle.
	if entry, ok := sk.data[bid.Scrub().String()]; ok && entry.status == StatusDelivered {
		return
	}

	sk.data[bid.Scrub().String()] = statusEntry{
		status: status,
		when:   time.Now(),
	}
}

func (sk *statusKeeper) lookup(bid bpv7.BundleID) (status BundleStatus, ok bool) {
	sk.mutex.Lock()
	defer sk.mutex.Unlock()

	entry, ok := sk.data[bid.Scrub().String()]
	return entry.status, ok
}

func (sk *statusKeeper) clean() {
	sk.mutex.Lock()
	defer sk.mutex.Unlock()

	threshold := time.Now().Add(-24 * time.Hour)
	for id, entry := range sk.data {
		if entry.when.Before(threshold) {
			delete(sk.data, id)
		}
	}
}

// Status reports the current BundleStatus for a BundleID. Stored bundles are
// checked lazily against their expiration date; everything else is derived
// from the store's constraints or the recorded terminal state.
func (c *Core) Status(bid bpv7.BundleID) BundleStatus {
	if status, ok := c.status.lookup(bid); ok {
		return status
	}

	bi, err := c.store.QueryId(bid)
	if err != nil {
		return StatusDeleted
	}

	if bi.Expires.Before(time.Now()) {
		c.status.record(bid, StatusExpired)
		return StatusExpired
	}

	if constraints, ok := bi.Properties["bundle/constraints"].(map[Constraint]bool); ok {
		if _, ok := constraints[LocalEndpoint]; ok {
			return StatusDelivered
		}
	}

	return StatusInTransit
}
