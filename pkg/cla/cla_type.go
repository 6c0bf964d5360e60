// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import "fmt"

// CLAType is one of the supported Convergence Layer Adaptors.
type CLAType uint64

const (
	// TCPCL is the "Delay-Tolerant Networking TCP Convergence-Layer Protocol
	// Version 4", RFC 9174.
	TCPCL CLAType = 0

	// QUICL is a experimental convergence layer on top of QUIC streams.
	QUICL CLAType = 1

	unknownClaType CLAType = 255
)

// TypeFromString returns the CLAType for a convergence layer's name as used
// in configuration files and discovery announcements.
func TypeFromString(name string) (claType CLAType, ok bool) {
	switch name {
	case "tcpcl", "tcpclv4":
		return TCPCL, true
	case "quicl":
		return QUICL, true
	default:
		return unknownClaType, false
	}
}

// CheckValid errors for unknown CLATypes, e.g., from a broken announcement.
func (claType CLAType) CheckValid() error {
	switch claType {
	case TCPCL, QUICL:
		return nil
	default:
		return fmt.Errorf("unknown CLAType %d", uint64(claType))
	}
}

func (claType CLAType) String() string {
	switch claType {
	case TCPCL:
		return "tcpcl"
	case QUICL:
		return "quicl"
	default:
		return "unknown"
	}
}
