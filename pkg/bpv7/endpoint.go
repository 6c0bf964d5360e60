// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// ErrInvalidEndpoint indicates an endpoint identifier which violates its
// scheme's syntax or belongs to an unknown scheme.
var ErrInvalidEndpoint = errors.New("invalid endpoint identifier")

// EndpointType describes a discrete scheme-specific endpoint, e.g., a
// DtnEndpoint for the dtn scheme or an IpnEndpoint for the ipn scheme.
//
// Both the deserialization from CBOR and from an URI are dispatched in
// EndpointID based on the scheme. Thus, an EndpointType only needs to
// describe itself and write its scheme-specific part (SSP).
type EndpointType interface {
	Valid
	fmt.Stringer

	// MarshalCbor writes this endpoint's scheme-specific part.
	MarshalCbor(w io.Writer) error

	// SchemeName is the URI scheme name.
	SchemeName() string

	// SchemeNo is the URI scheme's registered number, used in the CBOR representation.
	SchemeNo() uint64

	// Authority is the authority part of the endpoint URI.
	Authority() string

	// Path is the path part of the endpoint URI, including a leading slash.
	Path() string

	// IsSingleton determines if this endpoint names a singleton.
	IsSingleton() bool
}

// EndpointID is a bundle endpoint identifier, as defined in section 4.2.5.1.
// The scheme-specific logic lives in the wrapped EndpointType.
type EndpointID struct {
	EndpointType EndpointType
}

// NewEndpointID based on an URI, e.g., "dtn://seven/" or "ipn:23.42".
func NewEndpointID(uri string) (e EndpointID, err error) {
	var et EndpointType

	switch scheme := strings.SplitN(uri, ":", 2)[0]; scheme {
	case dtnEndpointSchemeName:
		et, err = NewDtnEndpoint(uri)
	case ipnEndpointSchemeName:
		et, err = NewIpnEndpoint(uri)
	default:
		err = fmt.Errorf("%w: unknown scheme in %q", ErrInvalidEndpoint, uri)
	}

	if err == nil {
		e = EndpointID{et}
	}
	return
}

// MustNewEndpointID based on an URI like NewEndpointID, but panics on errors.
func MustNewEndpointID(uri string) EndpointID {
	if e, err := NewEndpointID(uri); err != nil {
		panic(err)
	} else {
		return e
	}
}

// DtnNone returns the null endpoint "dtn:none".
func DtnNone() EndpointID {
	return EndpointID{DtnEndpoint{IsDtnNone: true}}
}

// SameNode compares the node names respectively node numbers of two
// EndpointIDs, ignoring their demux parts. An unset EndpointType is treated
// like the null endpoint.
func (eid EndpointID) SameNode(other EndpointID) bool {
	a, b := eid, other
	if a.EndpointType == nil {
		a = DtnNone()
	}
	if b.EndpointType == nil {
		b = DtnNone()
	}

	if reflect.TypeOf(a.EndpointType) != reflect.TypeOf(b.EndpointType) {
		return false
	}

	return a.EndpointType.Authority() == b.EndpointType.Authority()
}

// CheckValid delegates into the wrapped EndpointType.
func (eid EndpointID) CheckValid() error {
	if eid.EndpointType == nil {
		return fmt.Errorf("%w: endpoint type is unset", ErrInvalidEndpoint)
	}
	return eid.EndpointType.CheckValid()
}

// IsSingleton determines if this endpoint names a singleton.
func (eid EndpointID) IsSingleton() bool {
	if eid.EndpointType == nil {
		return false
	}
	return eid.EndpointType.IsSingleton()
}

// Authority part of this endpoint's URI.
func (eid EndpointID) Authority() string {
	if eid.EndpointType == nil {
		return ""
	}
	return eid.EndpointType.Authority()
}

// Path part of this endpoint's URI.
func (eid EndpointID) Path() string {
	if eid.EndpointType == nil {
		return ""
	}
	return eid.EndpointType.Path()
}

func (eid EndpointID) String() string {
	if eid.EndpointType == nil {
		return DtnNone().String()
	}
	return eid.EndpointType.String()
}

// MarshalCbor writes this EndpointID's CBOR representation, an array of the
// scheme number and the scheme-specific part.
func (eid *EndpointID) MarshalCbor(w io.Writer) error {
	et := eid.EndpointType
	if et == nil {
		et = DtnNone().EndpointType
	}

	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(et.SchemeNo(), w); err != nil {
		return err
	}

	return et.MarshalCbor(w)
}

// UnmarshalCbor reads an EndpointID from its CBOR representation.
func (eid *EndpointID) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("EndpointID: expected array of length 2, got %d", l)
	}

	schemeNo, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}

	switch schemeNo {
	case dtnEndpointSchemeNo:
		var e DtnEndpoint
		if err := e.UnmarshalCbor(r); err != nil {
			return err
		}
		eid.EndpointType = e

	case ipnEndpointSchemeNo:
		var e IpnEndpoint
		if err := e.UnmarshalCbor(r); err != nil {
			return err
		}
		eid.EndpointType = e

	default:
		return fmt.Errorf("%w: unknown scheme number %d", ErrInvalidEndpoint, schemeNo)
	}

	return nil
}

// MarshalJSON writes this EndpointID's URI as a JSON string.
func (eid EndpointID) MarshalJSON() ([]byte, error) {
	return json.Marshal(eid.String())
}

// UnmarshalJSON reads an EndpointID from an URI within a JSON string.
func (eid *EndpointID) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err != nil {
		return err
	}

	e, err := NewEndpointID(uri)
	if err != nil {
		return err
	}

	*eid = e
	return nil
}
