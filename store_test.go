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

package ntfsstore

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/logfile"
	"github.com/forensicanalysis/ntfsstore/mft"
	"github.com/forensicanalysis/ntfsstore/usnjrnl"
)

var testKey = gostore.RowKey{PartitionID: "p1", CaseID: "case", EvidenceID: "evidence"}

func setup(t *testing.T) (*CaseStore, string) {
	url := filepath.Join(t.TempDir(), "case", "ntfs.db")
	store, err := New(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) // nolint:errcheck
	return store, url
}

func mftRows(names ...string) []interface{} {
	var rows []interface{}
	for i, name := range names {
		rows = append(rows, &mft.Row{
			RowKey:         testKey,
			RecordNumber:   uint64(64 + i),
			SequenceNumber: 1,
			InUse:          true,
			Name:           name,
			Path:           "/" + name,
			PathState:      "complete",
		})
	}
	return rows
}

func count(t *testing.T, store *CaseStore, table string) int64 {
	elements, err := store.Query("SELECT count(*) AS n FROM " + quote(table))
	require.NoError(t, err)
	require.Len(t, elements, 1)
	return gjson.GetBytes(elements[0], "n").Int()
}

func TestNew(t *testing.T) {
	_, url := setup(t)

	_, err := New(url)
	assert.True(t, errors.Is(err, ErrStoreExists))

	_, err = Open(filepath.Join(filepath.Dir(url), "missing.db"))
	assert.True(t, errors.Is(err, ErrStoreNotExists))

	_, err = New("foo\x00bar")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	store, url := setup(t)
	require.NoError(t, store.BulkInsert(mft.TableName, mftRows("a.txt")))
	require.NoError(t, store.Close())

	store, err := Open(url)
	require.NoError(t, err)
	defer store.Close() // nolint:errcheck

	assert.Equal(t, int64(1), count(t, store, mft.TableName))
	assert.Equal(t, []string{
		PartitionTableName,
		logfile.RecordTableName,
		logfile.RestartTableName,
		mft.TableName,
		usnjrnl.TableName,
	}, store.Tables())
}

func TestColumns(t *testing.T) {
	cols, err := columns(mft.Row{})
	require.NoError(t, err)
	var names []string
	for _, col := range cols[:5] {
		names = append(names, col.name)
	}
	assert.Equal(t, []string{"partition_id", "case_id", "evidence_id", "record_number", "sequence_number"}, names)
	assert.Equal(t, "INTEGER", cols[3].sqlType)

	cols, err = columns(logfile.RecordRow{})
	require.NoError(t, err)
	types := map[string]string{}
	for _, col := range cols {
		types[col.name] = col.sqlType
	}
	assert.Equal(t, "BLOB", types["redo_data"])
	assert.Equal(t, "TEXT", types["path"])
	assert.Equal(t, "INTEGER", types["suspect"])

	_, err = columns("row")
	assert.Error(t, err)
}

func TestCaseStore_BulkInsert(t *testing.T) {
	store, _ := setup(t)
	store.BatchSize = 2

	require.NoError(t, store.BulkInsert(mft.TableName, mftRows("a", "b", "c", "d", "e")))
	assert.Equal(t, int64(5), count(t, store, mft.TableName))

	// the second chunk holds a row of another table and is rolled back
	rows := append(mftRows("f", "g", "h"), &usnjrnl.Row{RowKey: testKey})
	err := store.BulkInsert(mft.TableName, rows)
	var bulkErr *gostore.BulkInsertError
	require.True(t, errors.As(err, &bulkErr))
	assert.Equal(t, 2, bulkErr.Inserted)
	assert.Equal(t, 2, bulkErr.Failed)
	assert.Equal(t, int64(7), count(t, store, mft.TableName))

	err = store.BulkInsert("unknown", mftRows("x"))
	require.True(t, errors.As(err, &bulkErr))
	assert.True(t, errors.Is(err, ErrUnknownTable))
	assert.Equal(t, 1, bulkErr.Failed)
}

func TestCaseStore_Concurrent(t *testing.T) {
	store, _ := setup(t)
	store.BatchSize = 3
	require.NoError(t, store.ArchiveStream("ev/p1/$MFT", strings.NewReader("mft"), 3))

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 10; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			errs <- store.BulkInsert(mft.TableName, mftRows("a", "b", "c", "d"))
		}()
		go func() {
			defer wg.Done()
			_, err := store.Select(mft.TableName, []map[string]string{{"name": "a"}})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := store.Query("SELECT count(*) FROM " + quote(mft.TableName))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- store.ReadStream("ev/p1/$MFT", ioutil.Discard)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(40), count(t, store, mft.TableName))
}

func TestCaseStore_Select(t *testing.T) {
	store, _ := setup(t)
	require.NoError(t, store.BulkInsert(mft.TableName, mftRows("a.txt", "b.log", "c.txt")))
	require.NoError(t, store.BulkInsert(logfile.RecordTableName, []interface{}{
		&logfile.RecordRow{RowKey: testKey, LSN: 7, RedoData: []byte{0xCA, 0xFE}},
	}))

	tests := []struct {
		name       string
		conditions []map[string]string
		want       []string
	}{
		{"all", nil, []string{"a.txt", "b.log", "c.txt"}},
		{"like", []map[string]string{{"name": "%.txt"}}, []string{"a.txt", "c.txt"}},
		{"or", []map[string]string{{"name": "b.log"}, {"path": "/c.txt"}}, []string{"b.log", "c.txt"}},
		{"and", []map[string]string{{"name": "%.txt", "record_number": "64"}}, []string{"a.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elements, err := store.Select(mft.TableName, tt.conditions)
			require.NoError(t, err)
			var got []string
			for _, element := range elements {
				got = append(got, gjson.GetBytes(element, "name").String())
			}
			assert.Equal(t, tt.want, got)
		})
	}

	elements, err := store.Select(logfile.RecordTableName, nil)
	require.NoError(t, err)
	require.Len(t, elements, 1)
	element, err := elements[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "cafe", element["redo_data"])
	assert.Nil(t, element["undo_data"])
	assert.Equal(t, float64(7), element["lsn"])

	_, err = store.Select(mft.TableName, []map[string]string{{"name; DROP TABLE x": "a"}})
	assert.Error(t, err)
	_, err = store.Select("unknown", nil)
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestCaseStore_Validate(t *testing.T) {
	store, _ := setup(t)
	require.NoError(t, store.BulkInsert(mft.TableName, mftRows("a.txt")))

	flaws, err := store.Validate()
	require.NoError(t, err)
	assert.Len(t, flaws, 1, flaws)

	require.NoError(t, store.RecordPartition(gostore.PartitionStatus{
		RowKey: testKey,
		RunID:  "run",
		Key:    "p1",
		State:  gostore.StateComplete,
		Rows:   1,
	}))
	flaws, err = store.Validate()
	require.NoError(t, err)
	assert.Empty(t, flaws)

	require.NoError(t, store.BulkInsert(usnjrnl.TableName, []interface{}{
		&usnjrnl.Row{RowKey: gostore.RowKey{PartitionID: "p1", EvidenceID: "evidence"}},
	}))
	require.NoError(t, store.RecordPartition(gostore.PartitionStatus{RowKey: testKey, State: "unknown"}))
	flaws, err = store.Validate()
	require.NoError(t, err)
	assert.Len(t, flaws, 2, flaws)
}
