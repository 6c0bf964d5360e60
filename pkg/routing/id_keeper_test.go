// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"fmt"
	"testing"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

func testIdKeeperBundle(t *testing.T, source string) bpv7.Bundle {
	b, err := bpv7.Builder().
		Source(source).
		Destination("dtn://dest/").
		CreationTimestampEpoch().
		Lifetime("60s").
		BundleCtrlFlags(bpv7.MustNotFragmented).
		BundleAgeBlock(0).
		PayloadBlock([]byte("hello world!")).
		Build()
	if err != nil {
		t.Fatalf("Creating bundle failed: %v", err)
	}
	return b
}

func TestIdKeeperSequence(t *testing.T) {
	keeper := NewIdKeeper()

	for i := uint64(0); i < 3; i++ {
		b := testIdKeeperBundle(t, "dtn://src/")
		keeper.update(&b)

		if seq := b.PrimaryBlock.CreationTimestamp.SequenceNumber(); seq != i {
			t.Errorf("bundle %d got sequence number %d", i, seq)
		}
	}
}

func TestIdKeeperDistinctSources(t *testing.T) {
	keeper := NewIdKeeper()

	for i := 0; i < 2; i++ {
		b := testIdKeeperBundle(t, fmt.Sprintf("dtn://src-%d/", i))
		keeper.update(&b)

		if seq := b.PrimaryBlock.CreationTimestamp.SequenceNumber(); seq != 0 {
			t.Errorf("first bundle of source %d got sequence number %d", i, seq)
		}
	}
}
