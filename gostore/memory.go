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

package gostore

import (
	"io"
	"io/ioutil"
	"sync"
)

// MemorySink keeps all rows in memory. Errors configured in Fail are
// returned for inserts into the respective table.
type MemorySink struct {
	mu         sync.Mutex
	tables     map[string][]interface{}
	partitions []PartitionStatus
	streams    map[string][]byte

	Fail map[string]error
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{tables: map[string][]interface{}{}, streams: map[string][]byte{}, Fail: map[string]error{}}
}

// BulkInsert appends rows to table.
func (s *MemorySink) BulkInsert(table string, rows []interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.Fail[table]; ok {
		return &BulkInsertError{Table: table, Failed: len(rows), Err: err}
	}
	s.tables[table] = append(s.tables[table], rows...)
	return nil
}

// RecordPartition stores status.
func (s *MemorySink) RecordPartition(status PartitionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions = append(s.partitions, status)
	return nil
}

// Rows returns a copy of the rows inserted into table.
func (s *MemorySink) Rows(table string) []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interface{}(nil), s.tables[table]...)
}

// Partitions returns the recorded partition states.
func (s *MemorySink) Partitions() []PartitionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PartitionStatus(nil), s.partitions...)
}

// ArchiveStream keeps a copy of the stream.
func (s *MemorySink) ArchiveStream(name string, r io.Reader, size int64) error {
	b, err := ioutil.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[name] = b
	return nil
}

// Stream returns an archived stream.
func (s *MemorySink) Stream(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.streams[name]
	return b, ok
}
