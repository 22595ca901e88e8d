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
	"fmt"

	"github.com/go-restruct/restruct"
)

// AttributeType identifies the kind of an MFT attribute.
type AttributeType uint32

// Attribute types used by the decoder.
const (
	AttributeStandardInformation AttributeType = 0x10
	AttributeAttributeList       AttributeType = 0x20
	AttributeFileName            AttributeType = 0x30
	AttributeObjectID            AttributeType = 0x40
	AttributeSecurityDescriptor  AttributeType = 0x50
	AttributeVolumeName          AttributeType = 0x60
	AttributeVolumeInformation   AttributeType = 0x70
	AttributeData                AttributeType = 0x80
	AttributeIndexRoot           AttributeType = 0x90
	AttributeIndexAllocation     AttributeType = 0xA0
	AttributeBitmap              AttributeType = 0xB0
	AttributeReparsePoint        AttributeType = 0xC0
	AttributeEAInformation       AttributeType = 0xD0
	AttributeEA                  AttributeType = 0xE0
	AttributeLoggedUtilityStream AttributeType = 0x100

	attributeEnd AttributeType = 0xFFFFFFFF
)

var attributeTypeNames = map[AttributeType]string{
	AttributeStandardInformation: "$STANDARD_INFORMATION",
	AttributeAttributeList:       "$ATTRIBUTE_LIST",
	AttributeFileName:            "$FILE_NAME",
	AttributeObjectID:            "$OBJECT_ID",
	AttributeSecurityDescriptor:  "$SECURITY_DESCRIPTOR",
	AttributeVolumeName:          "$VOLUME_NAME",
	AttributeVolumeInformation:   "$VOLUME_INFORMATION",
	AttributeData:                "$DATA",
	AttributeIndexRoot:           "$INDEX_ROOT",
	AttributeIndexAllocation:     "$INDEX_ALLOCATION",
	AttributeBitmap:              "$BITMAP",
	AttributeReparsePoint:        "$REPARSE_POINT",
	AttributeEAInformation:       "$EA_INFORMATION",
	AttributeEA:                  "$EA",
	AttributeLoggedUtilityStream: "$LOGGED_UTILITY_STREAM",
}

func (t AttributeType) String() string {
	if name, ok := attributeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%X", uint32(t))
}

// AttributeHeader is the common header of resident and non resident
// attributes.
type AttributeHeader struct {
	Type        uint32
	Length      uint32
	NonResident uint8
	NameLength  uint8
	NameOffset  uint16
	Flags       uint16
	Instance    uint16
}

const (
	attributeHeaderSize    = 0x10
	residentHeaderSize     = 0x18
	nonResidentHeaderSize  = 0x40
	standardInfoMinSize    = 0x30
	standardInfoSize       = 0x48
	fileNameHeaderSize     = 0x42
	attributeListEntrySize = 0x1A
)

// Attribute summarizes one attribute of a record.
type Attribute struct {
	Type     AttributeType
	Name     string
	Resident bool
	// Size is the value length of resident and the data size of non
	// resident attributes.
	Size     uint64
	Instance uint16
}

// StandardInformation holds the $STANDARD_INFORMATION timestamps and flags.
type StandardInformation struct {
	Times
	FileAttributes uint32
	OwnerID        uint32
	SecurityID     uint32
	USN            uint64
}

// Times are the four MACB timestamps stored in $STANDARD_INFORMATION and
// $FILE_NAME.
type Times struct {
	Created     uint64
	Modified    uint64
	MFTModified uint64
	Accessed    uint64
}

// Namespace of a $FILE_NAME attribute.
type Namespace uint8

// File name namespaces.
const (
	NamespacePOSIX       Namespace = 0
	NamespaceWin32       Namespace = 1
	NamespaceDOS         Namespace = 2
	NamespaceWin32AndDOS Namespace = 3
)

func (n Namespace) String() string {
	switch n {
	case NamespacePOSIX:
		return "POSIX"
	case NamespaceWin32:
		return "Win32"
	case NamespaceDOS:
		return "DOS"
	case NamespaceWin32AndDOS:
		return "Win32&DOS"
	}
	return fmt.Sprintf("namespace(%d)", uint8(n))
}

// FileName is a decoded $FILE_NAME attribute.
type FileName struct {
	Parent FileReference
	Times
	AllocatedSize uint64
	RealSize      uint64
	Flags         uint32
	Namespace     Namespace
	Name          string
}

// AttributeListEntry points to an attribute stored in another record.
type AttributeListEntry struct {
	Type          AttributeType
	Name          string
	StartingVCN   uint64
	BaseReference FileReference
	AttributeID   uint16
}

type standardInformationHeader struct {
	Created        uint64
	Modified       uint64
	MFTModified    uint64
	Accessed       uint64
	FileAttributes uint32
	MaxVersions    uint32
	Version        uint32
	ClassID        uint32
}

// standardInformationExtension follows the header since NTFS 3.0.
type standardInformationExtension struct {
	OwnerID      uint32
	SecurityID   uint32
	QuotaCharged uint64
	USN          uint64
}

type attributeListHeader struct {
	Type          uint32
	Length        uint16
	NameLength    uint8
	NameOffset    uint8
	StartingVCN   uint64
	BaseReference uint64
	AttributeID   uint16
}

type fileNameHeader struct {
	Parent        uint64
	Created       uint64
	Modified      uint64
	MFTModified   uint64
	Accessed      uint64
	AllocatedSize uint64
	RealSize      uint64
	Flags         uint32
	Reparse       uint32
	NameLength    uint8
	Namespace     uint8
}

// DecodeStandardInformation decodes the value of a $STANDARD_INFORMATION
// attribute.
func DecodeStandardInformation(value []byte) (*StandardInformation, error) {
	if len(value) < standardInfoMinSize {
		return nil, truncated("standard information of %d bytes", len(value))
	}
	h := standardInformationHeader{}
	if err := restruct.Unpack(value[:standardInfoMinSize], binary.LittleEndian, &h); err != nil {
		return nil, corrupt("standard information: %s", err)
	}
	si := &StandardInformation{
		Times: Times{
			Created:     h.Created,
			Modified:    h.Modified,
			MFTModified: h.MFTModified,
			Accessed:    h.Accessed,
		},
		FileAttributes: h.FileAttributes,
	}
	if len(value) >= standardInfoSize {
		ext := standardInformationExtension{}
		if err := restruct.Unpack(value[standardInfoMinSize:standardInfoSize], binary.LittleEndian, &ext); err != nil {
			return nil, corrupt("standard information: %s", err)
		}
		si.OwnerID = ext.OwnerID
		si.SecurityID = ext.SecurityID
		si.USN = ext.USN
	}
	return si, nil
}

// DecodeFileName decodes the value of a $FILE_NAME attribute.
func DecodeFileName(value []byte) (*FileName, error) {
	if len(value) < fileNameHeaderSize {
		return nil, truncated("file name of %d bytes", len(value))
	}
	h := fileNameHeader{}
	if err := restruct.Unpack(value[:fileNameHeaderSize], binary.LittleEndian, &h); err != nil {
		return nil, corrupt("file name: %s", err)
	}
	end := fileNameHeaderSize + 2*int(h.NameLength)
	if end > len(value) {
		return nil, truncated("file name of %d characters in %d bytes", h.NameLength, len(value))
	}
	return &FileName{
		Parent: ParseFileReference(h.Parent),
		Times: Times{
			Created:     h.Created,
			Modified:    h.Modified,
			MFTModified: h.MFTModified,
			Accessed:    h.Accessed,
		},
		AllocatedSize: h.AllocatedSize,
		RealSize:      h.RealSize,
		Flags:         h.Flags,
		Namespace:     Namespace(h.Namespace),
		Name:          DecodeUTF16(value[fileNameHeaderSize:end]),
	}, nil
}

// DecodeAttributeList decodes the entries of a resident $ATTRIBUTE_LIST.
// Decoding stops at the first entry that does not fit.
func DecodeAttributeList(value []byte) []AttributeListEntry {
	var entries []AttributeListEntry
	for off := 0; off+attributeListEntrySize <= len(value); {
		h := attributeListHeader{}
		if err := restruct.Unpack(value[off:off+attributeListEntrySize], binary.LittleEndian, &h); err != nil {
			break
		}
		length := int(h.Length)
		if length < attributeListEntrySize || off+length > len(value) {
			break
		}
		entry := AttributeListEntry{
			Type:          AttributeType(h.Type),
			StartingVCN:   h.StartingVCN,
			BaseReference: ParseFileReference(h.BaseReference),
			AttributeID:   h.AttributeID,
		}
		nameLength := int(h.NameLength)
		nameOffset := int(h.NameOffset)
		if nameLength > 0 && nameOffset+2*nameLength <= length {
			entry.Name = DecodeUTF16(value[off+nameOffset : off+nameOffset+2*nameLength])
		}
		entries = append(entries, entry)
		off += length
	}
	return entries
}

// decodeAttributes walks the attribute chain of a record. A broken chain ends
// the walk, the attributes decoded so far are kept.
func (s *FileRecordSegment) decodeAttributes(buf []byte, off int) {
	for off+4 <= len(buf) {
		if AttributeType(binary.LittleEndian.Uint32(buf[off:])) == attributeEnd {
			return
		}
		if off+attributeHeaderSize > len(buf) {
			return
		}
		h := AttributeHeader{}
		if err := restruct.Unpack(buf[off:off+attributeHeaderSize], binary.LittleEndian, &h); err != nil {
			return
		}
		length := int(h.Length)
		if length < attributeHeaderSize || off+length > len(buf) {
			return
		}
		s.decodeAttribute(h, buf[off:off+length])
		off += length
	}
}

func (s *FileRecordSegment) decodeAttribute(h AttributeHeader, raw []byte) {
	attr := Attribute{
		Type:     AttributeType(h.Type),
		Resident: h.NonResident == 0,
		Instance: h.Instance,
	}
	if h.NameLength > 0 {
		end := int(h.NameOffset) + 2*int(h.NameLength)
		if end <= len(raw) {
			attr.Name = DecodeUTF16(raw[h.NameOffset:end])
		}
	}

	if !attr.Resident {
		if len(raw) >= nonResidentHeaderSize {
			attr.Size = binary.LittleEndian.Uint64(raw[0x30:])
		}
		s.Attributes = append(s.Attributes, attr)
		return
	}

	if len(raw) < residentHeaderSize {
		s.Attributes = append(s.Attributes, attr)
		return
	}
	valueLength := int(binary.LittleEndian.Uint32(raw[0x10:]))
	valueOffset := int(binary.LittleEndian.Uint16(raw[0x14:]))
	attr.Size = uint64(valueLength)
	s.Attributes = append(s.Attributes, attr)
	if valueOffset+valueLength > len(raw) {
		return
	}
	value := raw[valueOffset : valueOffset+valueLength]

	switch attr.Type {
	case AttributeStandardInformation:
		if si, err := DecodeStandardInformation(value); err == nil {
			s.StandardInformation = si
		}
	case AttributeFileName:
		if fn, err := DecodeFileName(value); err == nil {
			s.FileNames = append(s.FileNames, *fn)
		}
	case AttributeAttributeList:
		s.AttributeList = append(s.AttributeList, DecodeAttributeList(value)...)
	}
}
