// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"testing"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

func testStatusBundleID(t *testing.T, source string) bpv7.BundleID {
	b, err := bpv7.Builder().
		Source(source).
		Destination("dtn://dest/").
		CreationTimestampNow().
		Lifetime("10m").
		PayloadBlock([]byte("hello")).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return b.ID()
}

func TestStatusKeeper(t *testing.T) {
	keeper := newStatusKeeper()
	bid := testStatusBundleID(t, "dtn://src/")

	if _, ok := keeper.lookup(bid); ok {
		t.Fatal("empty keeper knows a bundle")
	}

	keeper.record(bid, StatusSent)
	if status, ok := keeper.lookup(bid); !ok || status != StatusSent {
		t.Fatalf("lookup returned (%v, %t)", status, ok)
	}

	// A delivery is terminal and survives a later deletion.
	keeper.record(bid, StatusDelivered)
	keeper.record(bid, StatusDeleted)
	if status, _ := keeper.lookup(bid); status != StatusDelivered {
		t.Fatalf("delivered bundle was downgraded to %v", status)
	}
}

func TestBundleStatusString(t *testing.T) {
	tests := []struct {
		status   BundleStatus
		expected string
	}{
		{StatusInTransit, "in transit"},
		{StatusSent, "sent"},
		{StatusDelivered, "delivered"},
		{StatusExpired, "expired"},
		{StatusDeleted, "deleted"},
		{BundleStatus(23), "unknown"},
	}

	for _, test := range tests {
		if s := test.status.String(); s != test.expected {
			t.Errorf("%d stringified to %s instead of %s", int(test.status), s, test.expected)
		}
	}
}
