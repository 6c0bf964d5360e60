// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

// GenericExtensionBlock preserves the data of an unknown ExtensionBlock type.
// This allows a node to forward bundles with blocks it cannot interpret.
type GenericExtensionBlock struct {
	data     []byte
	typeCode uint64
}

// NewGenericExtensionBlock from raw block data and a block type code.
func NewGenericExtensionBlock(data []byte, typeCode uint64) *GenericExtensionBlock {
	return &GenericExtensionBlock{
		data:     data,
		typeCode: typeCode,
	}
}

// BlockTypeCode as read from the unknown block.
func (geb *GenericExtensionBlock) BlockTypeCode() uint64 {
	return geb.typeCode
}

// BlockTypeName of every GenericExtensionBlock is "N/A".
func (geb *GenericExtensionBlock) BlockTypeName() string {
	return "N/A"
}

// MarshalBinary returns the preserved block data.
func (geb *GenericExtensionBlock) MarshalBinary() ([]byte, error) {
	return geb.data, nil
}

// UnmarshalBinary stores the raw block data.
func (geb *GenericExtensionBlock) UnmarshalBinary(data []byte) error {
	geb.data = data
	return nil
}

// CheckValid cannot inspect unknown block data and always passes.
func (geb *GenericExtensionBlock) CheckValid() error {
	return nil
}

// CheckContextValid has nothing to inspect for an unknown block.
func (geb *GenericExtensionBlock) CheckContextValid(*Bundle) error {
	return nil
}
