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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFileReference(t *testing.T) {
	ref := ParseFileReference(0x0003000000000029)
	assert.Equal(t, FileReference{RecordNumber: 41, SequenceNumber: 3}, ref)
	assert.Equal(t, uint64(0x0003000000000029), ref.Uint64())
	assert.Equal(t, "41-3", ref.String())
	assert.False(t, ref.IsRoot())
	assert.True(t, FileReference{}.IsZero())
}

func TestClassify(t *testing.T) {
	ref := func(n uint64, seq uint16) FileReference {
		return FileReference{RecordNumber: n, SequenceNumber: seq}
	}

	tests := []struct {
		name      string
		requested FileReference
		actual    *Slot
		want      Status
	}{
		{"absent", ref(10, 1), nil, Unallocated},
		{"fresh", ref(10, 1), &Slot{ref(10, 1), true}, Fresh},
		{"stale", ref(10, 1), &Slot{ref(10, 3), true}, Stale},
		{"stale reused", ref(10, 2), &Slot{ref(10, 1), true}, Stale},
		{"free same sequence", ref(10, 1), &Slot{ref(10, 1), false}, Unallocated},
		{"freed", ref(10, 1), &Slot{ref(10, 2), false}, Unallocated},
		{"free reused", ref(10, 1), &Slot{ref(10, 4), false}, Stale},
		{"wildcard sequence", ref(10, 0), &Slot{ref(10, 7), true}, Fresh},
		{"other slot", ref(10, 1), &Slot{ref(11, 1), true}, Unallocated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.requested, tt.actual))
		})
	}
}

func TestFileTime(t *testing.T) {
	assert.True(t, FileTime(0).IsZero())
	assert.Equal(t, time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC), FileTime(1).Truncate(time.Second))
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 100, time.UTC), FileTime(132223104000000001))
}

func TestDecodeUTF16(t *testing.T) {
	assert.Equal(t, "Zone.Identifier", DecodeUTF16([]byte("Z\x00o\x00n\x00e\x00.\x00I\x00d\x00e\x00n\x00t\x00i\x00f\x00i\x00e\x00r\x00")))
	assert.Equal(t, "ä", DecodeUTF16([]byte{0xE4, 0x00}))
	assert.Equal(t, "", DecodeUTF16(nil))
}

func TestFlagStrings(t *testing.T) {
	assert.Equal(t, "FILE_CREATE|CLOSE", ReasonString(0x80000100))
	assert.Equal(t, "", ReasonString(0))
	assert.Equal(t, "HIDDEN|ARCHIVE", FileAttributeString(0x22))
	assert.Equal(t, "DATA_MANAGEMENT", SourceInfoString(1))
	assert.Equal(t, "InitializeFileRecordSegment", OpInitializeFileRecordSegment.String())
	assert.Equal(t, "Unknown(0x40)", LogOperation(0x40).String())
	assert.Equal(t, "$FILE_NAME", AttributeFileName.String())
}
