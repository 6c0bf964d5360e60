// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"strings"
)

// BlockControlFlags are the block processing control flags, present in each
// canonical block and described in section 4.2.4.
type BlockControlFlags uint64

const (
	// ReplicateBlock requests this block to be replicated into every fragment.
	ReplicateBlock BlockControlFlags = 0x01

	// StatusReportBlock requests a status report if this block cannot be processed.
	StatusReportBlock BlockControlFlags = 0x02

	// DeleteBundle requests a bundle deletion if this block cannot be processed.
	DeleteBundle BlockControlFlags = 0x04

	// RemoveBlock requests a removal of this block if it cannot be processed.
	RemoveBlock BlockControlFlags = 0x10
)

// Has returns true if a given flag or mask of flags is set.
func (bcf BlockControlFlags) Has(flag BlockControlFlags) bool {
	return (bcf & flag) != 0
}

// CheckValid allows any flag combination; since dtn-bpbis-24 all bit masks are valid.
func (bcf BlockControlFlags) CheckValid() error {
	return nil
}

// Strings returns the names of all set flags.
func (bcf BlockControlFlags) Strings() (fields []string) {
	checks := []struct {
		flag BlockControlFlags
		name string
	}{
		{RemoveBlock, "REMOVE_BLOCK"},
		{DeleteBundle, "DELETE_BUNDLE"},
		{StatusReportBlock, "REQUEST_STATUS_REPORT"},
		{ReplicateBlock, "REPLICATE_BLOCK"},
	}

	for _, check := range checks {
		if bcf.Has(check.flag) {
			fields = append(fields, check.name)
		}
	}

	return
}

func (bcf BlockControlFlags) String() string {
	return strings.Join(bcf.Strings(), ",")
}

// MarshalJSON writes a JSON array of the set flags.
func (bcf BlockControlFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(bcf.Strings())
}
