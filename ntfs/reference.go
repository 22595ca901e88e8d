// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

package ntfs

import (
	"fmt"
)

// RootRecordNumber is the MFT slot of the volume root directory.
const RootRecordNumber = 5

const recordNumberMask = 0x0000FFFFFFFFFFFF

// FileReference identifies one instance of a file system entry. The record
// number addresses the MFT slot, the sequence number is incremented every
// time the slot is freed.
type FileReference struct {
	RecordNumber   uint64
	SequenceNumber uint16
}

// ParseFileReference splits a packed 64 bit NTFS file reference.
func ParseFileReference(v uint64) FileReference {
	return FileReference{
		RecordNumber:   v & recordNumberMask,
		SequenceNumber: uint16(v >> 48),
	}
}

// Uint64 packs the reference into its on-disk representation.
func (r FileReference) Uint64() uint64 {
	return uint64(r.SequenceNumber)<<48 | r.RecordNumber&recordNumberMask
}

// IsZero reports whether the reference is unset.
func (r FileReference) IsZero() bool {
	return r.RecordNumber == 0 && r.SequenceNumber == 0
}

// IsRoot reports whether the reference points to the root directory slot.
func (r FileReference) IsRoot() bool {
	return r.RecordNumber == RootRecordNumber
}

func (r FileReference) String() string {
	return fmt.Sprintf("%d-%d", r.RecordNumber, r.SequenceNumber)
}

// Status is the result of comparing a requested reference with the slot it
// points to.
type Status int

const (
	// Unallocated means the slot is free or absent. If the slot is present
	// its content may still describe the requested entry.
	Unallocated Status = iota
	// Fresh means the slot is in use by the requested entry.
	Fresh
	// Stale means the slot was reused by a different entry.
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "unallocated"
	}
}

// Slot is the identity of an MFT slot as found in the table.
type Slot struct {
	Reference FileReference
	InUse     bool
}

// Classify compares requested with the slot currently stored at its record
// number. A requested sequence number of zero matches any sequence.
func Classify(requested FileReference, actual *Slot) Status {
	if actual == nil || actual.Reference.RecordNumber != requested.RecordNumber {
		return Unallocated
	}

	seq := actual.Reference.SequenceNumber
	switch {
	case requested.SequenceNumber == 0 || requested.SequenceNumber == seq:
		if actual.InUse {
			return Fresh
		}
		return Unallocated
	case !actual.InUse && requested.SequenceNumber+1 == seq:
		// freeing a slot bumps its sequence number
		return Unallocated
	default:
		return Stale
	}
}
