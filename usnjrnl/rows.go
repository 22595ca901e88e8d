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

package usnjrnl

import (
	"fmt"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/mft"
	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// TableName is the name of the table holding change journal rows.
const TableName = "lv1_fs_ntfs_usnjrnl"

// Row is one output row of the change journal table.
type Row struct {
	gostore.RowKey `structs:",flatten"`

	Usn                  int64
	Timestamp            string
	Version              string
	RecordNumber         uint64 `structs:"record_number"`
	SequenceNumber       uint16 `structs:"sequence_number"`
	ParentRecordNumber   uint64 `structs:"parent_record_number"`
	ParentSequenceNumber uint16 `structs:"parent_sequence_number"`
	FileName             string `structs:"file_name"`
	Reason               string
	SourceInfo           string `structs:"source_info"`
	SecurityID           uint32 `structs:"security_id"`
	FileAttributes       string `structs:"file_attributes"`
	ResolvedName         string `structs:"resolved_name"`
	Path                 string
}

// NewRow builds the row of a journal record. ResolvedName is the current
// name of the referenced record and stays empty if the record is absent or
// its slot was reused. Path is built from the parent directory and the
// journal name.
func NewRow(key gostore.RowKey, rec *ntfs.UsnRecord, table *mft.Table, paths *mft.Reconstructor) *Row {
	row := &Row{
		RowKey:               key,
		Usn:                  rec.Usn,
		Timestamp:            gostore.FormatTime(ntfs.FileTime(rec.Timestamp)),
		Version:              version(rec),
		RecordNumber:         rec.FileReference.RecordNumber,
		SequenceNumber:       rec.FileReference.SequenceNumber,
		ParentRecordNumber:   rec.ParentReference.RecordNumber,
		ParentSequenceNumber: rec.ParentReference.SequenceNumber,
		FileName:             rec.FileName,
		Reason:               ntfs.ReasonString(rec.Reason),
		SourceInfo:           ntfs.SourceInfoString(rec.SourceInfo),
		SecurityID:           rec.SecurityID,
		FileAttributes:       ntfs.FileAttributeString(rec.FileAttributes),
	}
	if table == nil {
		return row
	}
	if target, status := table.Lookup(rec.FileReference); target != nil && status != ntfs.Stale {
		row.ResolvedName = target.Name()
	}
	if paths != nil {
		if parent, _ := table.Lookup(rec.ParentReference); parent != nil || rec.ParentReference.IsRoot() {
			row.Path = paths.ResolveLink(rec.ParentReference, rec.FileName).String()
		}
	}
	return row
}

func version(rec *ntfs.UsnRecord) string {
	return fmt.Sprintf("%d.%d", rec.MajorVersion, rec.MinorVersion)
}
