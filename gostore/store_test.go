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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "", FormatTime(time.Time{}))
	assert.Equal(t, "2020-01-01T00:00:00.0000001Z", FormatTime(time.Date(2020, 1, 1, 0, 0, 0, 100, time.UTC)))
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	sink.Fail["broken"] = errors.New("disk full")

	assert.NoError(t, sink.BulkInsert("rows", []interface{}{1, 2}))
	assert.NoError(t, sink.BulkInsert("rows", []interface{}{3}))
	assert.Equal(t, []interface{}{1, 2, 3}, sink.Rows("rows"))

	err := sink.BulkInsert("broken", []interface{}{1})
	var bulkErr *BulkInsertError
	assert.True(t, errors.As(err, &bulkErr))
	assert.Equal(t, 1, bulkErr.Failed)
	assert.EqualError(t, err, "insert into broken failed after 0 rows, 1 rows lost: disk full")

	key := RowKey{PartitionID: "p", CaseID: "c", EvidenceID: "e"}
	assert.True(t, key.Valid())
	assert.False(t, RowKey{CaseID: "c"}.Valid())
	assert.NoError(t, sink.RecordPartition(PartitionStatus{RowKey: key, State: StateComplete}))
	assert.Len(t, sink.Partitions(), 1)
}
