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

// Package gostore provides the interface between the NTFS parsers and the
// case database. It is implemented by the ntfsstore CaseStore and by the in
// memory MemorySink.
package gostore

import (
	"fmt"
	"io"
	"time"
)

// RowKey prefixes every row written for a partition.
type RowKey struct {
	PartitionID string `structs:"partition_id"`
	CaseID      string `structs:"case_id"`
	EvidenceID  string `structs:"evidence_id"`
}

// Valid reports whether all parts of the key are set.
func (k RowKey) Valid() bool {
	return k.PartitionID != "" && k.CaseID != "" && k.EvidenceID != ""
}

// Partition states recorded in the partition status table.
const (
	StateComplete = "complete"
	StatePartial  = "partial"
)

// PartitionStatus is written once per processed partition.
type PartitionStatus struct {
	RowKey `structs:",flatten"`

	RunID    string `structs:"run_id"`
	Key      string `structs:"partition_key"`
	State    string
	Rows     int
	Errors   string
	Finished string
}

// Sink receives the rows of a partition. Implementations must be safe for
// concurrent use by several partitions.
type Sink interface {
	BulkInsert(table string, rows []interface{}) error
	RecordPartition(status PartitionStatus) error
}

// Archiver keeps copies of the raw streams a partition was extracted from.
type Archiver interface {
	ArchiveStream(name string, r io.Reader, size int64) error
}

// BulkInsertError reports a bulk insert that stopped after a part of the rows
// had been committed.
type BulkInsertError struct {
	Table    string
	Inserted int
	Failed   int
	Err      error
}

func (e *BulkInsertError) Error() string {
	return fmt.Sprintf("insert into %s failed after %d rows, %d rows lost: %s", e.Table, e.Inserted, e.Failed, e.Err)
}

func (e *BulkInsertError) Unwrap() error {
	return e.Err
}

// TimeFormat is used for all timestamps stored in the database.
const TimeFormat = "2006-01-02T15:04:05.0000000Z"

// FormatTime renders t in UTC, the zero time becomes "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormat)
}
