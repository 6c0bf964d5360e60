// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

const (
	dtnEndpointSchemeName = "dtn"
	dtnEndpointSchemeNo   uint64 = 1

	dtnEndpointDtnNoneSsp = "none"
)

// dtnEndpointRegexp matches the URI of a non-null dtn endpoint. The node name
// is limited to alphanumerics and the characters "-", "." and "_", followed by
// a mandatory slash and an arbitrary demux.
var dtnEndpointRegexp = regexp.MustCompile(`^dtn://([\w\-.]+)/(.*)$`)

// DtnEndpoint describes the dtn URI scheme, e.g., "dtn://node/demux" for a
// regular endpoint or "dtn:none" for the null endpoint.
type DtnEndpoint struct {
	NodeName string
	Demux    string

	IsDtnNone bool
}

// NewDtnEndpoint from an URI with the dtn scheme.
func NewDtnEndpoint(uri string) (e EndpointType, err error) {
	switch {
	case uri == dtnEndpointSchemeName+":"+dtnEndpointDtnNoneSsp:
		e = DtnEndpoint{IsDtnNone: true}

	case dtnEndpointRegexp.MatchString(uri):
		submatches := dtnEndpointRegexp.FindStringSubmatch(uri)
		e = DtnEndpoint{
			NodeName: submatches[1],
			Demux:    submatches[2],
		}

	default:
		err = fmt.Errorf("%w: %q does not match the dtn scheme", ErrInvalidEndpoint, uri)
	}

	return
}

// SchemeName is "dtn" for DtnEndpoints.
func (_ DtnEndpoint) SchemeName() string {
	return dtnEndpointSchemeName
}

// SchemeNo is 1 for DtnEndpoints.
func (_ DtnEndpoint) SchemeNo() uint64 {
	return dtnEndpointSchemeNo
}

// Authority is the node name for a regular endpoint or "none" for the null endpoint.
func (e DtnEndpoint) Authority() string {
	if e.IsDtnNone {
		return dtnEndpointDtnNoneSsp
	}
	return e.NodeName
}

// Path is the demux with a leading slash for a regular endpoint or "/" for the null endpoint.
func (e DtnEndpoint) Path() string {
	if e.IsDtnNone {
		return "/"
	}
	return "/" + e.Demux
}

// IsSingleton is false for the null endpoint and for group endpoints, which
// are indicated by a demux starting with a tilde.
func (e DtnEndpoint) IsSingleton() bool {
	if e.IsDtnNone {
		return false
	}
	return !strings.HasPrefix(e.Demux, "~")
}

// CheckValid re-parses this endpoint's URI representation.
func (e DtnEndpoint) CheckValid() (err error) {
	_, err = NewDtnEndpoint(e.String())
	return
}

func (e DtnEndpoint) String() string {
	if e.IsDtnNone {
		return dtnEndpointSchemeName + ":" + dtnEndpointDtnNoneSsp
	}
	return fmt.Sprintf("%s://%s/%s", dtnEndpointSchemeName, e.NodeName, e.Demux)
}

// ssp is the scheme-specific part without the scheme prefix, e.g., "//node/demux".
func (e DtnEndpoint) ssp() string {
	return "//" + e.NodeName + "/" + e.Demux
}

// MarshalCbor writes this DtnEndpoint's scheme-specific part, which is the
// unsigned integer zero for the null endpoint or a text string otherwise.
func (e DtnEndpoint) MarshalCbor(w io.Writer) error {
	if e.IsDtnNone {
		return cboring.WriteUInt(0, w)
	}
	return cboring.WriteTextString(e.ssp(), w)
}

// UnmarshalCbor reads a DtnEndpoint's scheme-specific part.
func (e *DtnEndpoint) UnmarshalCbor(r io.Reader) error {
	m, n, err := cboring.ReadMajors(r)
	if err != nil {
		return err
	}

	switch m {
	case cboring.UInt:
		*e = DtnEndpoint{IsDtnNone: true}

	case cboring.TextString:
		data, err := cboring.ReadRawBytes(n, r)
		if err != nil {
			return err
		}

		tmp, err := NewDtnEndpoint(dtnEndpointSchemeName + ":" + string(data))
		if err != nil {
			return err
		}
		*e = tmp.(DtnEndpoint)

	default:
		return fmt.Errorf("%w: dtn SSP has major type %d", ErrInvalidEndpoint, m)
	}

	return nil
}
