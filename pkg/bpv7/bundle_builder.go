// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// BundleBuilder is a fluent builder for Bundles. Errors of the chained
// methods are stored and returned with the final Build call, so a chain does
// not need intermediate error checking.
//
//	bndl, err := bpv7.Builder().
//		CRC(bpv7.CRC32).
//		Source("dtn://src/").
//		Destination("dtn://dest/").
//		CreationTimestampNow().
//		Lifetime("30m").
//		HopCountBlock(64).
//		PayloadBlock([]byte("hello world!")).
//		Build()
type BundleBuilder struct {
	err error

	primary    PrimaryBlock
	canonicals []CanonicalBlock
	crcType    CRCType
}

// Builder creates a new BundleBuilder.
func Builder() *BundleBuilder {
	return &BundleBuilder{
		primary: PrimaryBlock{
			Version: dtnVersion,
			// Unless overwritten by BundleCtrlFlags, a delivery report is requested.
			BundleControlFlags: StatusRequestDelivery,
			CreationTimestamp:  NewCreationTimestamp(DtnTimeEpoch, 0),
		},
		crcType: CRCNo,
	}
}

// Error of a previous build step, or nil.
func (bldr *BundleBuilder) Error() error {
	return bldr.err
}

// CRC sets the CRC type for all blocks.
func (bldr *BundleBuilder) CRC(crcType CRCType) *BundleBuilder {
	if bldr.err == nil {
		bldr.crcType = crcType
	}
	return bldr
}

// Build the Bundle and return it next to all accumulated errors.
func (bldr *BundleBuilder) Build() (bndl Bundle, err error) {
	if bldr.err != nil {
		err = bldr.err
		return
	}

	if bldr.primary.SourceNode == (EndpointID{}) || bldr.primary.Destination == (EndpointID{}) {
		err = fmt.Errorf("both Source and Destination must be set")
		return
	}

	// An unset ReportTo defaults to the bundle's source.
	if bldr.primary.ReportTo == (EndpointID{}) {
		bldr.primary.ReportTo = bldr.primary.SourceNode
	}

	if bndl, err = NewBundle(bldr.primary, bldr.canonicals); err == nil {
		bndl.SetCRCType(bldr.crcType)
	}
	return
}

// mustBuild is Build for testing code, panicking instead of erring.
func (bldr *BundleBuilder) mustBuild() Bundle {
	if bndl, err := bldr.Build(); err != nil {
		panic(err)
	} else {
		return bndl
	}
}

// bldrParseEndpoint returns an EndpointID for either an EndpointID or its
// URI representation as a string.
func bldrParseEndpoint(eid interface{}) (e EndpointID, err error) {
	switch eid := eid.(type) {
	case EndpointID:
		e = eid
	case string:
		e, err = NewEndpointID(eid)
	default:
		err = fmt.Errorf("%T is neither an EndpointID nor a string", eid)
	}
	return
}

// bldrParseLifetime returns a millisecond amount for either a non-negative
// integer, a time.Duration or a duration string like "30m".
func bldrParseLifetime(duration interface{}) (ms uint64, err error) {
	switch duration := duration.(type) {
	case uint64:
		ms = duration
	case int:
		if duration < 0 {
			err = fmt.Errorf("lifetime of %d ms is negative", duration)
		} else {
			ms = uint64(duration)
		}
	case float64:
		// Numbers from parsed JSON arrive as float64.
		if duration < 0 {
			err = fmt.Errorf("lifetime of %f ms is negative", duration)
		} else {
			ms = uint64(duration)
		}
	case time.Duration:
		if duration < 0 {
			err = fmt.Errorf("lifetime of %v is negative", duration)
		} else {
			ms = uint64(duration.Milliseconds())
		}
	case string:
		if dur, durErr := time.ParseDuration(duration); durErr != nil {
			err = durErr
		} else if dur <= 0 {
			err = fmt.Errorf("lifetime of %v is not positive", dur)
		} else {
			ms = uint64(dur.Milliseconds())
		}
	default:
		err = fmt.Errorf("%T is an unsupported lifetime type", duration)
	}
	return
}

// Destination sets the bundle's destination, either an EndpointID or a string.
func (bldr *BundleBuilder) Destination(eid interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	if e, err := bldrParseEndpoint(eid); err != nil {
		bldr.err = err
	} else {
		bldr.primary.Destination = e
	}
	return bldr
}

// Source sets the bundle's source, either an EndpointID or a string.
func (bldr *BundleBuilder) Source(eid interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	if e, err := bldrParseEndpoint(eid); err != nil {
		bldr.err = err
	} else {
		bldr.primary.SourceNode = e
	}
	return bldr
}

// ReportTo sets the bundle's report-to endpoint, either an EndpointID or a string.
func (bldr *BundleBuilder) ReportTo(eid interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	if e, err := bldrParseEndpoint(eid); err != nil {
		bldr.err = err
	} else {
		bldr.primary.ReportTo = e
	}
	return bldr
}

// creationTimestamp sets the creation timestamp with a sequence number of zero.
func (bldr *BundleBuilder) creationTimestamp(t DtnTime) *BundleBuilder {
	if bldr.err == nil {
		bldr.primary.CreationTimestamp = NewCreationTimestamp(t, 0)
	}
	return bldr
}

// CreationTimestampEpoch sets the zero creation timestamp, requiring a
// Bundle Age Block.
func (bldr *BundleBuilder) CreationTimestampEpoch() *BundleBuilder {
	return bldr.creationTimestamp(DtnTimeEpoch)
}

// CreationTimestampNow sets the current time as the creation timestamp.
func (bldr *BundleBuilder) CreationTimestampNow() *BundleBuilder {
	return bldr.creationTimestamp(DtnTimeNow())
}

// CreationTimestampTime sets a creation timestamp from a time.Time.
func (bldr *BundleBuilder) CreationTimestampTime(t time.Time) *BundleBuilder {
	return bldr.creationTimestamp(DtnTimeFromTime(t))
}

// Lifetime sets the bundle's lifetime, either a millisecond amount, a
// time.Duration or a duration string, e.g., 30000, 30*time.Second or "30s".
func (bldr *BundleBuilder) Lifetime(duration interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	if ms, err := bldrParseLifetime(duration); err != nil {
		bldr.err = err
	} else {
		bldr.primary.Lifetime = ms
	}
	return bldr
}

// BundleCtrlFlags sets the bundle processing control flags.
func (bldr *BundleBuilder) BundleCtrlFlags(bcf BundleControlFlags) *BundleBuilder {
	if bldr.err == nil {
		bldr.primary.BundleControlFlags = bcf
	}
	return bldr
}

// nextBlockNumber for a new canonical block, starting after the payload
// block's fixed number of one.
func (bldr *BundleBuilder) nextBlockNumber() (no uint64) {
	no = uint64(len(bldr.canonicals) + 1)
	for _, cb := range bldr.canonicals {
		if cb.TypeCode() != ExtBlockTypePayloadBlock {
			no = cb.BlockNumber + 1
		}
	}
	if no == 1 {
		no = 2
	}
	return
}

// Canonical adds a canonical block for this ExtensionBlock.
func (bldr *BundleBuilder) Canonical(eb ExtensionBlock, bcf BlockControlFlags) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	no := bldr.nextBlockNumber()
	if eb.BlockTypeCode() == ExtBlockTypePayloadBlock {
		no = 1
	}

	bldr.canonicals = append(bldr.canonicals, NewCanonicalBlock(no, bcf, eb))
	return bldr
}

// PayloadBlock adds the payload block, either from a byte slice or a string.
func (bldr *BundleBuilder) PayloadBlock(data interface{}) *BundleBuilder {
	switch data := data.(type) {
	case []byte:
		return bldr.Canonical(NewPayloadBlock(data), 0)
	case string:
		return bldr.Canonical(NewPayloadBlock([]byte(data)), 0)
	default:
		if bldr.err == nil {
			bldr.err = fmt.Errorf("%T is an unsupported payload type", data)
		}
		return bldr
	}
}

// BundleAgeBlock adds a Bundle Age Block, accepting the same types as
// Lifetime. The age is converted to the block's microsecond granularity.
func (bldr *BundleBuilder) BundleAgeBlock(age interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	if ms, err := bldrParseLifetime(age); err != nil {
		bldr.err = err
		return bldr
	} else {
		return bldr.Canonical(NewBundleAgeBlock(ms*1000), ReplicateBlock)
	}
}

// HopCountBlock adds a Hop Count Block with the given hop limit.
func (bldr *BundleBuilder) HopCountBlock(limit interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	switch limit := limit.(type) {
	case int:
		return bldr.Canonical(NewHopCountBlock(uint8(limit)), ReplicateBlock)
	case uint8:
		return bldr.Canonical(NewHopCountBlock(limit), ReplicateBlock)
	case float64:
		return bldr.Canonical(NewHopCountBlock(uint8(limit)), ReplicateBlock)
	default:
		bldr.err = fmt.Errorf("%T is an unsupported hop limit type", limit)
		return bldr
	}
}

// PreviousNodeBlock adds a Previous Node Block for this EndpointID or string.
func (bldr *BundleBuilder) PreviousNodeBlock(eid interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	if e, err := bldrParseEndpoint(eid); err != nil {
		bldr.err = err
		return bldr
	} else {
		return bldr.Canonical(NewPreviousNodeBlock(e), ReplicateBlock)
	}
}

// StatusReport makes this Bundle an administrative record, reporting the
// given status assertion about the referenced Bundle.
func (bldr *BundleBuilder) StatusReport(bndl Bundle, statusItem StatusInformationPos, reason StatusReportReason) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	report := NewStatusReport(bndl, statusItem, reason, DtnTimeNow())
	cb, err := AdministrativeRecordToCbor(report)
	if err != nil {
		bldr.err = err
		return bldr
	}

	// An administrative record must not request status reports itself.
	bldr.primary.BundleControlFlags &^= StatusRequestReception | StatusRequestForward |
		StatusRequestDelivery | StatusRequestDeletion
	bldr.primary.BundleControlFlags |= AdministrativeRecordPayload

	bldr.canonicals = append(bldr.canonicals, cb)
	return bldr
}

// snakeCaseToCamelCase converts a method key like "payload_block" into its
// BundleBuilder method name, e.g., "PayloadBlock".
func snakeCaseToCamelCase(s string) (method string) {
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		method += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return
}

// BuildFromMap creates a Bundle from a map, keyed by the snake_case names of
// the BundleBuilder's methods. This allows bundle creation from parsed JSON.
func BuildFromMap(args map[string]interface{}) (bndl Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("building from map panicked: %v", r)
		}
	}()

	bldr := Builder()
	bldrValue := reflect.ValueOf(bldr)

	for key, value := range args {
		method := bldrValue.MethodByName(snakeCaseToCamelCase(key))
		if !method.IsValid() {
			return Bundle{}, fmt.Errorf("there is no method for %s", key)
		}

		switch method.Type().NumIn() {
		case 0:
			_ = method.Call(nil)
		case 1:
			_ = method.Call([]reflect.Value{reflect.ValueOf(value)})
		default:
			return Bundle{}, fmt.Errorf("method for %s expects %d arguments", key, method.Type().NumIn())
		}
	}

	return bldr.Build()
}
