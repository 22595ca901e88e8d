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

// Package mft parses the master file table of an NTFS volume into file
// records and reconstructs their full paths.
package mft

import (
	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// FileRecord is one base record of the MFT with the attributes of its
// extension records merged in.
type FileRecord struct {
	Reference ntfs.FileReference
	// Base is set for extension records that could not be merged.
	Base      ntfs.FileReference
	InUse     bool
	Directory bool
	Suspect   bool
	LSN       uint64
	LinkCount uint16

	StandardInformation *ntfs.StandardInformation
	FileNames           []ntfs.FileName
	Attributes          []ntfs.Attribute

	primary int
}

func newFileRecord(seg *ntfs.FileRecordSegment) *FileRecord {
	r := &FileRecord{
		Reference:           seg.Reference,
		Base:                seg.BaseReference,
		InUse:               seg.InUse(),
		Directory:           seg.IsDirectory(),
		Suspect:             seg.Suspect,
		LSN:                 seg.Header.LSN,
		LinkCount:           seg.Header.LinkCount,
		StandardInformation: seg.StandardInformation,
		FileNames:           seg.FileNames,
		Attributes:          seg.Attributes,
	}
	r.selectPrimary()
	return r
}

// IsExtension reports whether the record is an extension of another record.
func (r *FileRecord) IsExtension() bool {
	return !r.Base.IsZero()
}

// merge adds the names and attributes of an extension record.
func (r *FileRecord) merge(ext *FileRecord) {
	r.FileNames = append(r.FileNames, ext.FileNames...)
	r.Attributes = append(r.Attributes, ext.Attributes...)
	if r.StandardInformation == nil {
		r.StandardInformation = ext.StandardInformation
	}
	r.Suspect = r.Suspect || ext.Suspect
	r.selectPrimary()
}

// selectPrimary picks the first name that is not a DOS short name. A record
// with only a short name uses that one.
func (r *FileRecord) selectPrimary() {
	r.primary = -1
	for i, fn := range r.FileNames {
		if fn.Namespace != ntfs.NamespaceDOS {
			r.primary = i
			return
		}
	}
	if len(r.FileNames) > 0 {
		r.primary = 0
	}
}

// PrimaryName returns the $FILE_NAME used for path reconstruction or nil.
func (r *FileRecord) PrimaryName() *ntfs.FileName {
	if r.primary < 0 || r.primary >= len(r.FileNames) {
		return nil
	}
	return &r.FileNames[r.primary]
}

// Name returns the primary name of the record.
func (r *FileRecord) Name() string {
	if fn := r.PrimaryName(); fn != nil {
		return fn.Name
	}
	return ""
}

// Parent returns the parent directory of the primary name.
func (r *FileRecord) Parent() ntfs.FileReference {
	if fn := r.PrimaryName(); fn != nil {
		return fn.Parent
	}
	return ntfs.FileReference{}
}

// Slot returns the identity of the record for reference classification.
func (r *FileRecord) Slot() *ntfs.Slot {
	return &ntfs.Slot{Reference: r.Reference, InUse: r.InUse}
}

// Link is one name of a record within a parent directory.
type Link struct {
	Parent    ntfs.FileReference
	Name      string
	ShortName string
	Primary   bool
}

// Links returns one entry per distinct parent and long name. DOS names are
// attached to the long name in the same directory.
func (r *FileRecord) Links() []Link {
	var links []Link
	seen := map[Link]bool{}
	for i, fn := range r.FileNames {
		if fn.Namespace == ntfs.NamespaceDOS && i != r.primary {
			continue
		}
		key := Link{Parent: fn.Parent, Name: fn.Name}
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, Link{Parent: fn.Parent, Name: fn.Name, Primary: i == r.primary})
	}
	for _, fn := range r.FileNames {
		if fn.Namespace != ntfs.NamespaceDOS {
			continue
		}
		for i := range links {
			if links[i].Parent == fn.Parent && links[i].ShortName == "" && links[i].Name != fn.Name {
				links[i].ShortName = fn.Name
				break
			}
		}
	}
	return links
}

// Streams returns the names of the alternate data streams.
func (r *FileRecord) Streams() []string {
	var streams []string
	for _, attr := range r.Attributes {
		if attr.Type == ntfs.AttributeData && attr.Name != "" {
			streams = append(streams, attr.Name)
		}
	}
	return streams
}

// Size returns the size of the unnamed data stream or the size recorded in
// the primary name.
func (r *FileRecord) Size() uint64 {
	for _, attr := range r.Attributes {
		if attr.Type == ntfs.AttributeData && attr.Name == "" {
			return attr.Size
		}
	}
	if fn := r.PrimaryName(); fn != nil {
		return fn.RealSize
	}
	return 0
}
