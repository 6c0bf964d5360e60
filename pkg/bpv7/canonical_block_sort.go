// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

// canonicalBlockNumberSort implements sort.Interface to order CanonicalBlocks
// ascending by their block number, with the payload block's fixed number one
// at the very end. Section 4.1 requires the payload to be the last block.
type canonicalBlockNumberSort []CanonicalBlock

func (cbs canonicalBlockNumberSort) Len() int {
	return len(cbs)
}

func (cbs canonicalBlockNumberSort) Swap(i, j int) {
	cbs[i], cbs[j] = cbs[j], cbs[i]
}

func (cbs canonicalBlockNumberSort) Less(i, j int) bool {
	switch {
	case cbs[i].BlockNumber == ExtBlockTypePayloadBlock:
		return false
	case cbs[j].BlockNumber == ExtBlockTypePayloadBlock:
		return true
	default:
		return cbs[i].BlockNumber < cbs[j].BlockNumber
	}
}
