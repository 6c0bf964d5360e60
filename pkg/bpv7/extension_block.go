// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// Block type codes of the extension blocks known to this implementation,
// as assigned in section 9.1.
const (
	// ExtBlockTypePayloadBlock is the block type code of a PayloadBlock.
	ExtBlockTypePayloadBlock uint64 = 1

	// ExtBlockTypePreviousNodeBlock is the block type code of a PreviousNodeBlock.
	ExtBlockTypePreviousNodeBlock uint64 = 6

	// ExtBlockTypeBundleAgeBlock is the block type code of a BundleAgeBlock.
	ExtBlockTypeBundleAgeBlock uint64 = 7

	// ExtBlockTypeHopCountBlock is the block type code of a HopCountBlock.
	ExtBlockTypeHopCountBlock uint64 = 10
)

// ExtensionBlock is the block-type-specific data of a canonical block.
//
// Next to the methods of this interface, an ExtensionBlock must implement
// some serialization: either the cboring.CborMarshaler for a CBOR structure
// or both encoding.BinaryMarshaler and encoding.BinaryUnmarshaler for raw
// bytes. The ExtensionBlockManager wraps either form within a CBOR byte
// string, as section 4.3.2 demands.
type ExtensionBlock interface {
	Valid

	// CheckContextValid checks this block against its surrounding Bundle.
	CheckContextValid(*Bundle) error

	// BlockTypeCode is the block type code of section 9.1.
	BlockTypeCode() uint64

	// BlockTypeName is a human-readable block name.
	BlockTypeName() string
}

// ExtensionBlockManager keeps book on the known ExtensionBlock types and
// dispatches their serialization. Unknown block types are preserved as
// GenericExtensionBlocks.
//
// A singleton ExtensionBlockManager, prepared with this package's blocks, is
// available through GetExtensionBlockManager.
type ExtensionBlockManager struct {
	data sync.Map // block type code (uint64) -> reflect.Type
}

// NewExtensionBlockManager without any registered ExtensionBlock types.
func NewExtensionBlockManager() *ExtensionBlockManager {
	return &ExtensionBlockManager{}
}

// Register a new ExtensionBlock type through an exemplary instance.
func (ebm *ExtensionBlockManager) Register(eb ExtensionBlock) error {
	if _, ok := eb.(*GenericExtensionBlock); ok {
		return fmt.Errorf("GenericExtensionBlock cannot be registered")
	}

	ebType := reflect.TypeOf(eb).Elem()
	if other, loaded := ebm.data.LoadOrStore(eb.BlockTypeCode(), ebType); loaded {
		return fmt.Errorf("block type code %d is already registered for %s",
			eb.BlockTypeCode(), other.(reflect.Type).Name())
	}

	return nil
}

// Unregister an ExtensionBlock type through an exemplary instance.
func (ebm *ExtensionBlockManager) Unregister(eb ExtensionBlock) {
	ebm.data.Delete(eb.BlockTypeCode())
}

// IsKnown returns true if an ExtensionBlock type is registered for this block type code.
func (ebm *ExtensionBlockManager) IsKnown(typeCode uint64) bool {
	_, known := ebm.data.Load(typeCode)
	return known
}

// createBlock returns a new zero-valued ExtensionBlock of the registered type.
func (ebm *ExtensionBlockManager) createBlock(typeCode uint64) (ExtensionBlock, error) {
	ebType, ok := ebm.data.Load(typeCode)
	if !ok {
		return nil, fmt.Errorf("no ExtensionBlock registered for block type code %d", typeCode)
	}

	return reflect.New(ebType.(reflect.Type)).Interface().(ExtensionBlock), nil
}

// WriteBlock writes the block-type-specific data of an ExtensionBlock,
// wrapped in a CBOR byte string, to a Writer.
func (ebm *ExtensionBlockManager) WriteBlock(eb ExtensionBlock, w io.Writer) error {
	switch m := eb.(type) {
	case cboring.CborMarshaler:
		var buff bytes.Buffer
		if err := cboring.Marshal(m, &buff); err != nil {
			return fmt.Errorf("marshalling %s failed: %w", eb.BlockTypeName(), err)
		}
		return cboring.WriteByteString(buff.Bytes(), w)

	case encoding.BinaryMarshaler:
		data, err := m.MarshalBinary()
		if err != nil {
			return fmt.Errorf("binary marshalling %s failed: %w", eb.BlockTypeName(), err)
		}
		return cboring.WriteByteString(data, w)

	default:
		return fmt.Errorf("ExtensionBlock %s implements no supported marshaler", eb.BlockTypeName())
	}
}

// ReadBlock reads an ExtensionBlock for the given block type code, wrapped in
// a CBOR byte string, from a Reader. An unknown block type code results in a
// GenericExtensionBlock.
func (ebm *ExtensionBlockManager) ReadBlock(typeCode uint64, r io.Reader) (ExtensionBlock, error) {
	data, err := cboring.ReadByteString(r)
	if err != nil {
		return nil, err
	}

	if !ebm.IsKnown(typeCode) {
		return NewGenericExtensionBlock(data, typeCode), nil
	}

	eb, err := ebm.createBlock(typeCode)
	if err != nil {
		return nil, err
	}

	switch m := eb.(type) {
	case cboring.CborMarshaler:
		if err := cboring.Unmarshal(m, bytes.NewBuffer(data)); err != nil {
			return nil, fmt.Errorf("unmarshalling %s failed: %w", eb.BlockTypeName(), err)
		}

	case encoding.BinaryUnmarshaler:
		if err := m.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("binary unmarshalling %s failed: %w", eb.BlockTypeName(), err)
		}

	default:
		return nil, fmt.Errorf("ExtensionBlock %s implements no supported unmarshaler", eb.BlockTypeName())
	}

	return eb, nil
}

// checkUniqueExtensionBlock verifies that a Bundle holds this very block
// instance as its only ExtensionBlock of the given type. Blocks limited to an
// at-most-once occurrence use this within their CheckContextValid.
func checkUniqueExtensionBlock(b *Bundle, typeCode uint64, eb ExtensionBlock) error {
	cb, err := b.ExtensionBlock(typeCode)
	if err != nil {
		return err
	}

	if cb.Value != eb {
		return fmt.Errorf("%s: bundle holds another instance of block type %d",
			eb.BlockTypeName(), typeCode)
	}

	return nil
}

var (
	extensionBlockManager      *ExtensionBlockManager
	extensionBlockManagerMutex sync.Mutex
)

// GetExtensionBlockManager returns the singleton ExtensionBlockManager. On
// its first use, the manager is populated with this package's ExtensionBlocks.
func GetExtensionBlockManager() *ExtensionBlockManager {
	extensionBlockManagerMutex.Lock()
	defer extensionBlockManagerMutex.Unlock()

	if extensionBlockManager == nil {
		extensionBlockManager = NewExtensionBlockManager()

		_ = extensionBlockManager.Register(NewPayloadBlock(nil))
		_ = extensionBlockManager.Register(NewPreviousNodeBlock(DtnNone()))
		_ = extensionBlockManager.Register(NewBundleAgeBlock(0))
		_ = extensionBlockManager.Register(NewHopCountBlock(23))
	}

	return extensionBlockManager
}
