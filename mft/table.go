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
	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// Table indexes the records of one MFT by record number. It is built once
// and read-only afterwards, so lookups may run concurrently.
type Table struct {
	records map[uint64]*FileRecord
	order   []uint64
	pending map[uint64][]*FileRecord
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		records: map[uint64]*FileRecord{},
		pending: map[uint64][]*FileRecord{},
	}
}

// Load drains p into a new table.
func Load(p *Parser) (*Table, error) {
	t := NewTable()
	for p.Next() {
		t.Add(p.Record())
	}
	return t, p.Err()
}

// Add inserts a record. Extension records are merged into their base record
// once both have been added, in either order.
func (t *Table) Add(rec *FileRecord) {
	if rec.IsExtension() {
		base, ok := t.records[rec.Base.RecordNumber]
		if ok && base.Reference.SequenceNumber == rec.Base.SequenceNumber {
			base.merge(rec)
			return
		}
		t.pending[rec.Base.RecordNumber] = append(t.pending[rec.Base.RecordNumber], rec)
		return
	}

	n := rec.Reference.RecordNumber
	if _, ok := t.records[n]; !ok {
		t.order = append(t.order, n)
	}
	t.records[n] = rec
	if exts, ok := t.pending[n]; ok {
		var rest []*FileRecord
		for _, ext := range exts {
			if ext.Base.SequenceNumber == rec.Reference.SequenceNumber {
				rec.merge(ext)
			} else {
				rest = append(rest, ext)
			}
		}
		if rest == nil {
			delete(t.pending, n)
		} else {
			t.pending[n] = rest
		}
	}
}

// Get returns the record stored at a record number.
func (t *Table) Get(recordNumber uint64) (*FileRecord, bool) {
	rec, ok := t.records[recordNumber]
	return rec, ok
}

// Lookup resolves ref and classifies it against the slot found.
func (t *Table) Lookup(ref ntfs.FileReference) (*FileRecord, ntfs.Status) {
	rec, ok := t.records[ref.RecordNumber]
	if !ok {
		return nil, ntfs.Unallocated
	}
	return rec, ntfs.Classify(ref, rec.Slot())
}

// Len returns the number of base records.
func (t *Table) Len() int {
	return len(t.records)
}

// Orphans returns the extension records whose base record is missing.
func (t *Table) Orphans() []*FileRecord {
	var orphans []*FileRecord
	for _, exts := range t.pending {
		orphans = append(orphans, exts...)
	}
	return orphans
}

// Walk calls fn for every base record in slot order and stops at the first
// error.
func (t *Table) Walk(fn func(rec *FileRecord) error) error {
	for _, n := range t.order {
		if err := fn(t.records[n]); err != nil {
			return err
		}
	}
	return nil
}
