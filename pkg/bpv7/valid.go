// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

// Valid is implemented by types which can check their fields for correctness.
// Bundles delegate their check down to each block and those blocks to their
// parts, so one call against a Bundle inspects the whole tree. Multiple
// errors should be accumulated, e.g., through the multierror package.
type Valid interface {
	// CheckValid returns an error for incorrect data.
	CheckValid() error
}
