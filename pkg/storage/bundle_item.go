// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

// BundleItem is the store's view on a Bundle: the meta data the Store indexes
// plus references to the serialized Bundle, or its fragments, on disk.
type BundleItem struct {
	Id  string `badgerhold:"key"`
	BId bpv7.BundleID

	Pending bool      `badgerholdIndex:"Pending"`
	Expires time.Time `badgerholdIndex:"Expires"`

	Fragmented bool
	Parts      []BundlePart

	Properties map[string]interface{}
}

// bundleParts loads all serialized Bundles linked from this BundleItem.
func (bi BundleItem) bundleParts() (bundleParts []bpv7.Bundle, err error) {
	bundleParts = make([]bpv7.Bundle, len(bi.Parts))
	for i, part := range bi.Parts {
		if bundleParts[i], err = part.Load(); err != nil {
			return
		}
	}
	return
}

// Load the complete bpv7.Bundle for a BundleItem. If there are multiple
// fragments, a reassembly will be performed.
func (bi BundleItem) Load() (b bpv7.Bundle, err error) {
	var parts []bpv7.Bundle
	if parts, err = bi.bundleParts(); err == nil {
		if bi.Fragmented {
			b, err = bpv7.ReassembleFragments(parts)
		} else {
			b = parts[0]
		}
	}
	return
}

// IsComplete determines if the BundleItem is complete and can be Load()ed.
// An unfragmented BundleItem always is; a fragmented one needs all siblings.
func (bi BundleItem) IsComplete() bool {
	if !bi.Fragmented {
		return true
	}

	parts, err := bi.bundleParts()
	return err == nil && bpv7.IsBundleReassemblable(parts)
}

// BundlePart links a BundleItem to one serialized Bundle on disk with its
// fragmentation offsets, if any.
type BundlePart struct {
	Filename string

	FragmentOffset  uint64
	TotalDataLength uint64
}

// storeBundle writes the xz-compressed Bundle of a BundlePart to the disk.
func (bp BundlePart) storeBundle(b bpv7.Bundle) error {
	f, err := os.OpenFile(bp.Filename, os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	xzW, xzErr := xz.NewWriter(f)
	if xzErr != nil {
		return xzErr
	}
	if err := b.WriteBundle(xzW); err != nil {
		return err
	}
	return xzW.Close()
}

// deleteBundle removes the serialized Bundle from the disk.
func (bp BundlePart) deleteBundle() error {
	return os.Remove(bp.Filename)
}

// Load the Bundle struct from the disk.
func (bp BundlePart) Load() (b bpv7.Bundle, err error) {
	f, fErr := os.Open(bp.Filename)
	if fErr != nil {
		err = fErr
		return
	}
	defer func() { _ = f.Close() }()

	if xzR, xzErr := xz.NewReader(f); xzErr != nil {
		err = xzErr
	} else {
		b, err = bpv7.ParseBundle(xzR)
	}
	return
}

// calcExpirationDate for a Bundle. A Bundle originating from a node without
// an accurate clock carries a Bundle Age Block instead of a meaningful
// creation timestamp; in this case the remaining lifetime counts from now.
func calcExpirationDate(b bpv7.Bundle) time.Time {
	lifetime := time.Duration(b.PrimaryBlock.Lifetime) * time.Millisecond

	if b.PrimaryBlock.CreationTimestamp.IsZeroTime() {
		if cb, err := b.ExtensionBlock(bpv7.ExtBlockTypeBundleAgeBlock); err == nil {
			age := time.Duration(cb.Value.(*bpv7.BundleAgeBlock).Age()) * time.Microsecond
			return time.Now().Add(lifetime - age)
		}
		return time.Now().Add(lifetime)
	}

	return b.PrimaryBlock.CreationTimestamp.DtnTime().Time().Add(lifetime)
}

// bundlePartPath returns a path for a Bundle.
func bundlePartPath(id bpv7.BundleID, storagePath string) string {
	f := fmt.Sprintf("%x", sha256.Sum256([]byte(id.String())))
	return path.Join(storagePath, f)
}

// newBundleItem creates a new BundleItem for a Bundle.
func newBundleItem(b bpv7.Bundle, storagePath string) (bi BundleItem) {
	bid := b.ID()

	bi = BundleItem{
		Id:  bid.Scrub().String(),
		BId: bid.Scrub(),

		Pending: false,
		Expires: calcExpirationDate(b),

		Fragmented: b.PrimaryBlock.HasFragmentation(),

		Properties: make(map[string]interface{}),
	}

	bp := BundlePart{
		Filename: bundlePartPath(bid, storagePath),

		FragmentOffset:  bid.FragmentOffset,
		TotalDataLength: bid.TotalDataLength,
	}

	bi.Parts = append(bi.Parts, bp)

	return
}
