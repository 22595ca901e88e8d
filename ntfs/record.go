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
	"bytes"
	"encoding/binary"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"
)

// Signatures of the multi sector structures found on an NTFS volume.
var (
	SignatureFile      = [4]byte{'F', 'I', 'L', 'E'}
	SignatureBad       = [4]byte{'B', 'A', 'A', 'D'}
	SignatureRestart   = [4]byte{'R', 'S', 'T', 'R'}
	SignatureCheckDisk = [4]byte{'C', 'H', 'K', 'D'}
	SignatureRecord    = [4]byte{'R', 'C', 'R', 'D'}
)

// Record header flags.
const (
	RecordInUse     = 0x0001
	RecordDirectory = 0x0002
	RecordExtend    = 0x0004
	RecordViewIndex = 0x0008
)

// RecordHeaderSize is the size of the fixed part of a FILE record header.
const RecordHeaderSize = 0x30

// RecordHeader is the fixed header of a FILE record.
type RecordHeader struct {
	Signature        [4]byte
	UsaOffset        uint16
	UsaCount         uint16
	LSN              uint64
	SequenceNumber   uint16
	LinkCount        uint16
	AttributesOffset uint16
	Flags            uint16
	BytesInUse       uint32
	BytesAllocated   uint32
	BaseReference    uint64
	NextAttributeID  uint16
	Align            uint16
	RecordNumber     uint32
}

// FileRecordSegment is a decoded FILE record. Extension records carry a non
// zero BaseReference and only a part of the attributes of their base.
type FileRecordSegment struct {
	Header        RecordHeader
	Reference     FileReference
	BaseReference FileReference

	StandardInformation *StandardInformation
	FileNames           []FileName
	AttributeList       []AttributeListEntry
	Attributes          []Attribute

	// Suspect is set if the update sequence array did not match.
	Suspect bool
}

// InUse reports whether the record is allocated.
func (s *FileRecordSegment) InUse() bool {
	return s.Header.Flags&RecordInUse != 0
}

// IsDirectory reports whether the record describes a directory.
func (s *FileRecordSegment) IsDirectory() bool {
	return s.Header.Flags&RecordDirectory != 0
}

// IsExtension reports whether the record extends another base record.
func (s *FileRecordSegment) IsExtension() bool {
	return !s.BaseReference.IsZero()
}

// PeekRecordSize returns the allocated size declared by a FILE record header
// or 0 if buf does not start with one.
func PeekRecordSize(buf []byte) int {
	if len(buf) < 0x20 || !bytes.Equal(buf[:4], SignatureFile[:]) {
		return 0
	}
	return int(binary.LittleEndian.Uint32(buf[0x1C:]))
}

// DecodeFileRecord decodes one MFT slot. slot is the position of the record
// in the MFT and becomes the record number of the result. The update sequence
// fixup is applied to buf in place.
//
// The returned error is ErrEmpty for unused slots, ErrCorrupt for records that
// cannot be interpreted and ErrTruncated if buf is shorter than the record. On
// ErrFixupMismatch the record is returned as well, marked Suspect.
func DecodeFileRecord(buf []byte, slot uint64) (*FileRecordSegment, error) {
	if len(buf) < RecordHeaderSize {
		return nil, truncated("file record of %d bytes", len(buf))
	}
	if isZero(buf[:4]) {
		return nil, ErrEmpty
	}

	seg := &FileRecordSegment{}
	if err := restruct.Unpack(buf[:RecordHeaderSize], binary.LittleEndian, &seg.Header); err != nil {
		return nil, corrupt("file record header: %s", err)
	}
	h := &seg.Header
	switch h.Signature {
	case SignatureFile:
	case SignatureBad:
		return nil, corrupt("record %d marked BAAD", slot)
	default:
		return nil, corrupt("record %d has signature %q", slot, h.Signature[:])
	}

	size := int(h.BytesAllocated)
	if size == 0 || size > len(buf) {
		if size > len(buf) {
			return nil, truncated("record %d declares %d bytes, %d available", slot, size, len(buf))
		}
		size = len(buf)
	}

	var fixupErr error
	if err := ApplyFixup(buf[:size], int(h.UsaOffset), int(h.UsaCount)); err != nil {
		if !errors.Is(err, ErrFixupMismatch) {
			return nil, err
		}
		seg.Suspect = true
		fixupErr = err
	}

	seg.Reference = FileReference{RecordNumber: slot, SequenceNumber: h.SequenceNumber}
	seg.BaseReference = ParseFileReference(h.BaseReference)

	limit := int(h.BytesInUse)
	if limit == 0 || limit > size {
		limit = size
	}
	if int(h.AttributesOffset) < RecordHeaderSize-6 || int(h.AttributesOffset) >= limit {
		return nil, corrupt("record %d attributes at %d, in use %d", slot, h.AttributesOffset, limit)
	}

	seg.decodeAttributes(buf[:limit], int(h.AttributesOffset))
	return seg, fixupErr
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
