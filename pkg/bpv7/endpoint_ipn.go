// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

const (
	ipnEndpointSchemeName = "ipn"
	ipnEndpointSchemeNo   uint64 = 2
)

// IpnEndpoint describes the ipn URI scheme, a tuple of a node and a service
// number, e.g., "ipn:23.42". Both numbers are unsigned 64 bit integers; any
// non-negative value is allowed.
type IpnEndpoint struct {
	Node    uint64
	Service uint64
}

// NewIpnEndpoint from an URI with the ipn scheme.
func NewIpnEndpoint(uri string) (e EndpointType, err error) {
	ssp := strings.TrimPrefix(uri, ipnEndpointSchemeName+":")
	if ssp == uri {
		err = fmt.Errorf("%w: %q misses the ipn scheme", ErrInvalidEndpoint, uri)
		return
	}

	fields := strings.Split(ssp, ".")
	if len(fields) != 2 {
		err = fmt.Errorf("%w: ipn SSP consists of %d instead of two numbers", ErrInvalidEndpoint, len(fields))
		return
	}

	var node, service uint64
	if node, err = strconv.ParseUint(fields[0], 10, 64); err != nil {
		err = fmt.Errorf("%w: parsing ipn node number: %v", ErrInvalidEndpoint, err)
		return
	}
	if service, err = strconv.ParseUint(fields[1], 10, 64); err != nil {
		err = fmt.Errorf("%w: parsing ipn service number: %v", ErrInvalidEndpoint, err)
		return
	}

	e = IpnEndpoint{Node: node, Service: service}
	return
}

// SchemeName is "ipn" for IpnEndpoints.
func (_ IpnEndpoint) SchemeName() string {
	return ipnEndpointSchemeName
}

// SchemeNo is 2 for IpnEndpoints.
func (_ IpnEndpoint) SchemeNo() uint64 {
	return ipnEndpointSchemeNo
}

// Authority is the node number.
func (e IpnEndpoint) Authority() string {
	return strconv.FormatUint(e.Node, 10)
}

// Path is the service number with a leading slash.
func (e IpnEndpoint) Path() string {
	return "/" + strconv.FormatUint(e.Service, 10)
}

// IsSingleton is always true for ipn endpoints, as section 4.2.5.1.2 demands.
func (_ IpnEndpoint) IsSingleton() bool {
	return true
}

// CheckValid returns no error, since every node and service number is allowed.
func (_ IpnEndpoint) CheckValid() error {
	return nil
}

func (e IpnEndpoint) String() string {
	return fmt.Sprintf("%s:%d.%d", ipnEndpointSchemeName, e.Node, e.Service)
}

// MarshalCbor writes this IpnEndpoint's scheme-specific part, an array of the
// node and service number.
func (e IpnEndpoint) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, n := range []uint64{e.Node, e.Service} {
		if err := cboring.WriteUInt(n, w); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalCbor reads an IpnEndpoint's scheme-specific part.
func (e *IpnEndpoint) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("%w: ipn SSP is an array of %d instead of two elements", ErrInvalidEndpoint, l)
	}

	for _, n := range []*uint64{&e.Node, &e.Service} {
		if v, err := cboring.ReadUInt(r); err != nil {
			return err
		} else {
			*n = v
		}
	}

	return nil
}
