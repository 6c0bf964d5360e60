// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

func TestStore(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	b, bErr := bpv7.Builder().
		Source("dtn://src/").
		Destination("dtn://dest/").
		CreationTimestampNow().
		Lifetime("10m").
		PayloadBlock([]byte("hello world")).
		Build()
	if bErr != nil {
		t.Fatal(bErr)
	}

	if err := store.Push(b); err != nil {
		t.Fatal(err)
	}

	if bi, err := store.QueryId(b.ID()); err != nil {
		t.Fatal(err)
	} else {
		if l := len(bi.Parts); l != 1 {
			t.Fatalf("BundleItem was %d parts, instead of 1", l)
		}

		if b2, err := bi.Parts[0].Load(); err != nil {
			t.Fatal(err)
		} else if !reflect.DeepEqual(b, b2) {
			t.Fatalf("Bundle changed after loading")
		}
	}

	if bip, err := store.QueryPending(); err != nil {
		t.Fatal(err)
	} else if l := len(bip); l != 0 {
		t.Fatalf("Found %d pending BundleItem, instead of 0", l)
	}

	if bi, err := store.QueryId(b.ID()); err != nil {
		t.Fatal(err)
	} else {
		bi.Pending = true
		if err := store.Update(bi); err != nil {
			t.Fatal(err)
		}
	}

	if bip, err := store.QueryPending(); err != nil {
		t.Fatal(err)
	} else if l := len(bip); l != 1 {
		t.Fatalf("Found %d pending BundleItem, instead of 1", l)
	}

	if bi, err := store.QueryId(b.ID()); err != nil {
		t.Fatal(err)
	} else {
		bi.Expires = time.Now().Add(-1 * time.Second)
		if err := store.Update(bi); err != nil {
			t.Fatal(err)
		}
	}

	store.DeleteExpired()

	if bi, err := store.QueryId(b.ID()); err == nil {
		t.Fatalf("Deleted expired BundleItem was found: %v", bi)
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStoreFragments(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	payload := bytes.Repeat([]byte{0x23, 0x42}, 512)
	b, bErr := bpv7.Builder().
		Source("dtn://src/").
		Destination("dtn://dest/").
		CreationTimestampNow().
		Lifetime("10m").
		PayloadBlock(payload).
		Build()
	if bErr != nil {
		t.Fatal(bErr)
	}

	frags, fErr := b.Fragment(256)
	if fErr != nil {
		t.Fatal(fErr)
	}
	if len(frags) < 2 {
		t.Fatalf("Fragmentation produced %d fragments", len(frags))
	}

	// Push all fragments but the last one; the item must stay incomplete.
	for _, frag := range frags[:len(frags)-1] {
		if err := store.Push(frag); err != nil {
			t.Fatal(err)
		}
	}

	// A duplicated fragment must not be stored twice.
	if err := store.Push(frags[0]); err != nil {
		t.Fatal(err)
	}

	if bi, err := store.QueryId(b.ID()); err != nil {
		t.Fatal(err)
	} else {
		if !bi.Fragmented {
			t.Fatal("BundleItem is not marked as fragmented")
		}
		if l := len(bi.Parts); l != len(frags)-1 {
			t.Fatalf("BundleItem has %d parts, expected %d", l, len(frags)-1)
		}
		if bi.IsComplete() {
			t.Fatal("Incomplete BundleItem reported completeness")
		}
	}

	if err := store.Push(frags[len(frags)-1]); err != nil {
		t.Fatal(err)
	}

	bi, err := store.QueryId(b.ID())
	if err != nil {
		t.Fatal(err)
	}
	if !bi.IsComplete() {
		t.Fatal("Complete BundleItem reported incompleteness")
	}

	if b2, err := bi.Load(); err != nil {
		t.Fatal(err)
	} else if pb, pbErr := b2.PayloadBlock(); pbErr != nil {
		t.Fatal(pbErr)
	} else if data := pb.Value.(*bpv7.PayloadBlock).Data(); !bytes.Equal(data, payload) {
		t.Fatalf("Reassembled payload differs: %d bytes instead of %d", len(data), len(payload))
	}
}
