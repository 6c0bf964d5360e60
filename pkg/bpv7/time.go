// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dtn7/bpnode-go/pkg/cboring"
)

// DtnTime is the DTN time defined in section 4.2.6: milliseconds since the
// start of the year 2000 (UTC).
type DtnTime uint64

const (
	// milliseconds1970To2k is the offset between the Unix epoch and the DTN epoch.
	milliseconds1970To2k = 946684800000

	// DtnTimeEpoch is the zero timestamp, indicating the lack of an accurate clock.
	DtnTimeEpoch DtnTime = 0
)

// Time converts this DtnTime into an UTC-based time.Time.
func (t DtnTime) Time() time.Time {
	return time.UnixMilli(int64(t) + milliseconds1970To2k).UTC()
}

func (t DtnTime) String() string {
	return t.Time().Format("2006-01-02 15:04:05.000")
}

// DtnTimeFromTime converts a time.Time into a DtnTime, truncating to milliseconds.
func DtnTimeFromTime(t time.Time) DtnTime {
	return DtnTime(t.UTC().UnixMilli() - milliseconds1970To2k)
}

// DtnTimeNow returns the current time as a DtnTime.
func DtnTimeNow() DtnTime {
	return DtnTimeFromTime(time.Now())
}

// CreationTimestamp is the tuple of a DtnTime and a sequence number, which
// tells apart bundles from the same node created within the same millisecond.
// It is defined in section 4.2.7.
type CreationTimestamp [2]uint64

// NewCreationTimestamp from a DTN time and a sequence number.
func NewCreationTimestamp(t DtnTime, sequence uint64) CreationTimestamp {
	return CreationTimestamp{uint64(t), sequence}
}

// DtnTime part of this CreationTimestamp.
func (ct CreationTimestamp) DtnTime() DtnTime {
	return DtnTime(ct[0])
}

// SequenceNumber part of this CreationTimestamp.
func (ct CreationTimestamp) SequenceNumber() uint64 {
	return ct[1]
}

// IsZeroTime returns if the time part equals the epoch, indicating the lack
// of an accurate clock.
func (ct CreationTimestamp) IsZeroTime() bool {
	return ct.DtnTime() == DtnTimeEpoch
}

// Compare two CreationTimestamps lexicographically on their time and sequence
// number. It returns -1 if ct was created before other, 0 for equality and 1
// if ct was created afterwards.
func (ct CreationTimestamp) Compare(other CreationTimestamp) int {
	for i := 0; i < len(ct); i++ {
		switch {
		case ct[i] < other[i]:
			return -1
		case ct[i] > other[i]:
			return 1
		}
	}
	return 0
}

func (ct CreationTimestamp) String() string {
	return fmt.Sprintf("(%v, %d)", ct.DtnTime(), ct.SequenceNumber())
}

// MarshalCbor writes this CreationTimestamp as an array of two unsigned integers.
func (ct *CreationTimestamp) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, field := range ct {
		if err := cboring.WriteUInt(field, w); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalCbor reads a CreationTimestamp from its CBOR representation.
func (ct *CreationTimestamp) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("CreationTimestamp: expected array of length 2, got %d", l)
	}

	for i := 0; i < len(ct); i++ {
		if field, err := cboring.ReadUInt(r); err != nil {
			return err
		} else {
			ct[i] = field
		}
	}

	return nil
}

// MarshalJSON writes a JSON object with a human-readable date and the sequence number.
func (ct CreationTimestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Date string `json:"date"`
		Seq  uint64 `json:"sequenceNo"`
	}{
		Date: ct.DtnTime().String(),
		Seq:  ct.SequenceNumber(),
	})
}
