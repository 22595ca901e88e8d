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

package mft

import (
	"strings"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// TableName is the name of the table holding MFT rows.
const TableName = "lv1_fs_ntfs_mft"

// NamePolicy selects how records with several names are written.
type NamePolicy string

const (
	// NamePolicyLinks writes one row per hard link.
	NamePolicyLinks NamePolicy = "links"
	// NamePolicyPrimary writes one row per record using its primary name.
	NamePolicyPrimary NamePolicy = "primary"
)

// Row is one output row of the MFT table.
type Row struct {
	gostore.RowKey `structs:",flatten"`

	RecordNumber         uint64 `structs:"record_number"`
	SequenceNumber       uint16 `structs:"sequence_number"`
	ParentRecordNumber   uint64 `structs:"parent_record_number"`
	ParentSequenceNumber uint16 `structs:"parent_sequence_number"`
	InUse                bool   `structs:"in_use"`
	IsDirectory          bool   `structs:"is_directory"`
	Name                 string
	ShortName            string `structs:"short_name"`
	Path                 string
	PathState            string `structs:"path_state"`
	HardLink             bool   `structs:"hard_link"`
	Size                 uint64
	FileAttributes       string `structs:"file_attributes"`
	Streams              string
	LSN                  uint64 `structs:"lsn"`
	SICreated            string `structs:"si_created"`
	SIModified           string `structs:"si_modified"`
	SIMFTModified        string `structs:"si_mft_modified"`
	SIAccessed           string `structs:"si_accessed"`
	FNCreated            string `structs:"fn_created"`
	FNModified           string `structs:"fn_modified"`
	FNMFTModified        string `structs:"fn_mft_modified"`
	FNAccessed           string `structs:"fn_accessed"`
	Suspect              bool
}

// Rows calls fn for the rows of every base record in slot order.
func Rows(table *Table, paths *Reconstructor, key gostore.RowKey, policy NamePolicy, fn func(row *Row) error) error {
	return table.Walk(func(rec *FileRecord) error {
		for _, row := range RecordRows(rec, paths, key, policy) {
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordRows builds the rows of one record. Records without any name yield
// a single row with an unresolved path.
func RecordRows(rec *FileRecord, paths *Reconstructor, key gostore.RowKey, policy NamePolicy) []*Row {
	links := rec.Links()
	if len(links) == 0 {
		row := newRow(rec, key)
		row.Path = Path{Reason: Unresolved}.String()
		row.PathState = Unresolved.String()
		return []*Row{row}
	}

	var rows []*Row
	for _, link := range links {
		if policy == NamePolicyPrimary && !link.Primary {
			continue
		}
		var path Path
		if link.Primary {
			path = paths.Resolve(rec.Reference)
		} else {
			path = paths.ResolveLink(link.Parent, link.Name)
		}

		row := newRow(rec, key)
		row.ParentRecordNumber = link.Parent.RecordNumber
		row.ParentSequenceNumber = link.Parent.SequenceNumber
		row.Name = link.Name
		row.ShortName = link.ShortName
		row.Path = path.String()
		row.PathState = path.Reason.String()
		row.HardLink = !link.Primary
		if fn := rec.PrimaryName(); fn != nil && link.Primary {
			row.FNCreated = gostore.FormatTime(ntfs.FileTime(fn.Created))
			row.FNModified = gostore.FormatTime(ntfs.FileTime(fn.Modified))
			row.FNMFTModified = gostore.FormatTime(ntfs.FileTime(fn.MFTModified))
			row.FNAccessed = gostore.FormatTime(ntfs.FileTime(fn.Accessed))
		}
		rows = append(rows, row)
	}
	return rows
}

func newRow(rec *FileRecord, key gostore.RowKey) *Row {
	row := &Row{
		RowKey:         key,
		RecordNumber:   rec.Reference.RecordNumber,
		SequenceNumber: rec.Reference.SequenceNumber,
		InUse:          rec.InUse,
		IsDirectory:    rec.Directory,
		Size:           rec.Size(),
		Streams:        strings.Join(rec.Streams(), "|"),
		LSN:            rec.LSN,
		Suspect:        rec.Suspect,
	}
	if si := rec.StandardInformation; si != nil {
		row.FileAttributes = ntfs.FileAttributeString(si.FileAttributes)
		row.SICreated = gostore.FormatTime(ntfs.FileTime(si.Created))
		row.SIModified = gostore.FormatTime(ntfs.FileTime(si.Modified))
		row.SIMFTModified = gostore.FormatTime(ntfs.FileTime(si.MFTModified))
		row.SIAccessed = gostore.FormatTime(ntfs.FileTime(si.Accessed))
	}
	return row
}
