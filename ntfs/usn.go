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
	"encoding/binary"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"
)

// UsnRecordV2Size and UsnRecordV3Size are the fixed header sizes of the
// respective record versions. The file name follows the header.
const (
	UsnRecordV2Size = 0x3C
	UsnRecordV3Size = 0x4C
)

type usnRecordV2 struct {
	RecordLength    uint32
	MajorVersion    uint16
	MinorVersion    uint16
	FileReference   uint64
	ParentReference uint64
	Usn             int64
	Timestamp       uint64
	Reason          uint32
	SourceInfo      uint32
	SecurityID      uint32
	FileAttributes  uint32
	FileNameLength  uint16
	FileNameOffset  uint16
}

type usnRecordV3 struct {
	RecordLength    uint32
	MajorVersion    uint16
	MinorVersion    uint16
	FileReference   [16]byte
	ParentReference [16]byte
	Usn             int64
	Timestamp       uint64
	Reason          uint32
	SourceInfo      uint32
	SecurityID      uint32
	FileAttributes  uint32
	FileNameLength  uint16
	FileNameOffset  uint16
}

// UsnRecord is a decoded change journal record.
type UsnRecord struct {
	Length          uint32
	MajorVersion    uint16
	MinorVersion    uint16
	FileReference   FileReference
	ParentReference FileReference
	Usn             int64
	Timestamp       uint64
	Reason          uint32
	SourceInfo      uint32
	SecurityID      uint32
	FileAttributes  uint32
	FileName        string
}

// PeekUsnRecordLength returns the declared length and major version of the
// record at the start of b.
func PeekUsnRecordLength(b []byte) (length uint32, major uint16) {
	if len(b) < 6 {
		return 0, 0
	}
	return binary.LittleEndian.Uint32(b), binary.LittleEndian.Uint16(b[4:])
}

// DecodeUsnRecord decodes a version 2 or 3 record occupying b. Version 4
// range tracking records yield ErrUnsupported.
func DecodeUsnRecord(b []byte) (*UsnRecord, error) {
	length, major := PeekUsnRecordLength(b)
	if int(length) > len(b) || length == 0 {
		return nil, truncated("usn record of %d bytes in %d", length, len(b))
	}
	b = b[:length]

	switch major {
	case 2:
		return decodeUsnRecordV2(b)
	case 3:
		return decodeUsnRecordV3(b)
	case 4:
		return nil, errors.Wrap(ErrUnsupported, "usn record version 4")
	}
	return nil, corrupt("usn record version %d", major)
}

func decodeUsnRecordV2(b []byte) (*UsnRecord, error) {
	if len(b) < UsnRecordV2Size {
		return nil, truncated("usn record v2 of %d bytes", len(b))
	}
	raw := usnRecordV2{}
	if err := restruct.Unpack(b[:UsnRecordV2Size], binary.LittleEndian, &raw); err != nil {
		return nil, corrupt("usn record v2: %s", err)
	}
	name, err := usnFileName(b, raw.FileNameOffset, raw.FileNameLength)
	if err != nil {
		return nil, err
	}
	return &UsnRecord{
		Length:          raw.RecordLength,
		MajorVersion:    raw.MajorVersion,
		MinorVersion:    raw.MinorVersion,
		FileReference:   ParseFileReference(raw.FileReference),
		ParentReference: ParseFileReference(raw.ParentReference),
		Usn:             raw.Usn,
		Timestamp:       raw.Timestamp,
		Reason:          raw.Reason,
		SourceInfo:      raw.SourceInfo,
		SecurityID:      raw.SecurityID,
		FileAttributes:  raw.FileAttributes,
		FileName:        name,
	}, nil
}

// decodeUsnRecordV3 maps the 128 bit file ids to NTFS references using their
// low 64 bits.
func decodeUsnRecordV3(b []byte) (*UsnRecord, error) {
	if len(b) < UsnRecordV3Size {
		return nil, truncated("usn record v3 of %d bytes", len(b))
	}
	raw := usnRecordV3{}
	if err := restruct.Unpack(b[:UsnRecordV3Size], binary.LittleEndian, &raw); err != nil {
		return nil, corrupt("usn record v3: %s", err)
	}
	name, err := usnFileName(b, raw.FileNameOffset, raw.FileNameLength)
	if err != nil {
		return nil, err
	}
	return &UsnRecord{
		Length:          raw.RecordLength,
		MajorVersion:    raw.MajorVersion,
		MinorVersion:    raw.MinorVersion,
		FileReference:   ParseFileReference(binary.LittleEndian.Uint64(raw.FileReference[:8])),
		ParentReference: ParseFileReference(binary.LittleEndian.Uint64(raw.ParentReference[:8])),
		Usn:             raw.Usn,
		Timestamp:       raw.Timestamp,
		Reason:          raw.Reason,
		SourceInfo:      raw.SourceInfo,
		SecurityID:      raw.SecurityID,
		FileAttributes:  raw.FileAttributes,
		FileName:        name,
	}, nil
}

func usnFileName(b []byte, offset, length uint16) (string, error) {
	end := int(offset) + int(length)
	if end > len(b) {
		return "", corrupt("usn file name at %d+%d in %d byte record", offset, length, len(b))
	}
	return DecodeUTF16(b[offset:end]), nil
}
