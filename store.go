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
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/logfile"
	"github.com/forensicanalysis/ntfsstore/mft"
	"github.com/forensicanalysis/ntfsstore/usnjrnl"
)

const caseStoreVersion = 1
const caseApplicationID = 1853122163 // "ntfs"

// PartitionTableName is the table holding one status row per processed
// partition.
const PartitionTableName = "_partitions"

// DefaultBatchSize is the number of rows inserted per savepoint.
const DefaultBatchSize = 1000

var (
	ErrStoreExists    = errors.New("store already exists")
	ErrStoreNotExists = errors.New("store does not exist")
	ErrUnknownTable   = errors.New("unknown table")
	ErrUnknownStream  = errors.New("unknown stream")
)

// The CaseStore is the case database all partitions of an extraction write
// their rows into. It is safe for concurrent use; all statements share one
// connection and are serialized.
type CaseStore struct {
	cursor   *sqlite.Conn
	tables   *tableMap
	sqlMutex sync.Mutex

	// BatchSize bounds the rows committed in a single savepoint.
	BatchSize int
}

var _ gostore.Sink = &CaseStore{}

// New creates a new CaseStore.
func New(url string) (*CaseStore, error) {
	return open(url, true)
}

// Open opens an existing CaseStore.
func Open(url string) (*CaseStore, error) {
	return open(url, false)
}

func pragma(conn *sqlite.Conn, name string) (int64, error) {
	stmt, err := conn.Prepare("PRAGMA " + name)
	if err != nil {
		return 0, err
	}
	_, err = stmt.Step()
	if err != nil {
		return 0, err
	}
	i := stmt.GetInt64(name)
	return i, stmt.Finalize()
}

func setPragma(conn *sqlite.Conn, name string, i int64) error {
	return exec(conn, "PRAGMA "+name+" = "+fmt.Sprint(i))
}

func open(url string, create bool) (*CaseStore, error) { // nolint:gocyclo
	if url != ":memory:" {
		url = strings.TrimRight(url, "/")

		exists := true
		_, err := os.Stat(url)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			exists = false
		}

		if create && exists {
			return nil, ErrStoreExists
		}
		if !create && !exists {
			return nil, ErrStoreNotExists
		}

		if create {
			err = os.MkdirAll(path.Dir(url), 0750)
			if err != nil {
				return nil, err
			}

			logrus.WithField("store", url).Info("creating store")
			f, err := os.Create(url)
			if err != nil {
				return nil, err
			}
			f.Close() // nolint:errcheck
		}
	}

	store := &CaseStore{tables: newTableMap(), BatchSize: DefaultBatchSize}

	var err error
	store.cursor, err = sqlite.OpenConn(url, 0)
	if err != nil {
		return nil, err
	}

	if err := store.checkFormat(create); err != nil {
		store.cursor.Close() // nolint:errcheck
		return nil, err
	}

	for _, t := range []struct {
		name      string
		prototype interface{}
	}{
		{mft.TableName, mft.Row{}},
		{logfile.RestartTableName, logfile.RestartRow{}},
		{logfile.RecordTableName, logfile.RecordRow{}},
		{usnjrnl.TableName, usnjrnl.Row{}},
		{PartitionTableName, gostore.PartitionStatus{}},
	} {
		if err := store.Declare(t.name, t.prototype); err != nil {
			store.cursor.Close() // nolint:errcheck
			return nil, err
		}
	}
	if err := exec(store.cursor, archiveTable); err != nil {
		store.cursor.Close() // nolint:errcheck
		return nil, err
	}

	return store, nil
}

func (store *CaseStore) checkFormat(create bool) error {
	if create {
		err := setPragma(store.cursor, "application_id", caseApplicationID)
		if err != nil {
			return err
		}
		return setPragma(store.cursor, "user_version", caseStoreVersion)
	}

	applicationID, err := pragma(store.cursor, "application_id")
	if err != nil {
		return err
	}
	if applicationID != caseApplicationID {
		msg := "wrong file format (application_id is %d, requires %d)"
		return fmt.Errorf(msg, applicationID, caseApplicationID)
	}

	version, err := pragma(store.cursor, "user_version")
	if err != nil {
		return err
	}
	if version != caseStoreVersion {
		msg := "wrong file format (user_version is %d, requires %d)"
		return fmt.Errorf(msg, version, caseStoreVersion)
	}
	return nil
}

/* ################################
#   API
################################ */

// Declare creates the table for rows of the prototype's type if it does
// not exist yet. An existing table must have the same columns.
func (store *CaseStore) Declare(name string, prototype interface{}) error {
	cols, err := columns(prototype)
	if err != nil {
		return errors.Wrapf(err, "could not declare %s", name)
	}
	if len(cols) == 0 {
		return fmt.Errorf("could not declare %s: no columns", name)
	}

	var definitions, names, quoted, params []string
	for _, col := range cols {
		definitions = append(definitions, quote(col.name)+" "+col.sqlType)
		names = append(names, col.name)
		quoted = append(quoted, quote(col.name))
		params = append(params, "?")
	}

	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	err = exec(store.cursor, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(name), strings.Join(definitions, ", ")))
	if err != nil {
		return errors.Wrapf(err, "could not create %s", name)
	}
	if cols[0].name == keyColumns[0] {
		index := quote("idx_" + name + "_partition")
		err = exec(store.cursor, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", index, quote(name), quote(cols[0].name)))
		if err != nil {
			return err
		}
	}

	existing, err := store.tableColumns(name)
	if err != nil {
		return err
	}
	if strings.Join(existing, ",") != strings.Join(names, ",") {
		return fmt.Errorf("table %s has columns (%s), requires (%s)", name, strings.Join(existing, ", "), strings.Join(names, ", "))
	}

	schema, err := tableSchema(name, cols)
	if err != nil {
		return err
	}

	store.tables.store(&table{
		name:    name,
		columns: cols,
		insert:  fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(name), strings.Join(quoted, ", "), strings.Join(params, ", ")), // #nosec
		schema:  schema,
	})
	return nil
}

// Tables returns the names of all declared tables.
func (store *CaseStore) Tables() []string {
	return store.tables.names()
}

// BulkInsert adds rows to a declared table. Rows are committed in chunks of
// BatchSize; a failing chunk is rolled back and reported with the number of
// rows committed before it in a *gostore.BulkInsertError.
func (store *CaseStore) BulkInsert(name string, rows []interface{}) error {
	t, ok := store.tables.load(name)
	if !ok {
		return &gostore.BulkInsertError{Table: name, Failed: len(rows), Err: errors.Wrap(ErrUnknownTable, name)}
	}

	batchSize := store.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	inserted := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := store.insertChunk(t, rows[start:end]); err != nil {
			return &gostore.BulkInsertError{Table: name, Inserted: inserted, Failed: len(rows) - inserted, Err: err}
		}
		inserted = end
	}
	return nil
}

func (store *CaseStore) insertChunk(t *table, rows []interface{}) (err error) {
	defer sqlitex.Save(store.cursor)(&err)

	stmt, err := store.cursor.Prepare(t.insert)
	if err != nil {
		return errors.Wrapf(err, "could not prepare statement %s", t.insert)
	}
	for _, row := range rows {
		if err := bind(stmt, t.columns, row); err != nil {
			_ = stmt.Reset()
			return err
		}
		if _, err := stmt.Step(); err != nil {
			_ = stmt.Reset()
			return errors.Wrapf(err, "could not insert into %s", t.name)
		}
		if err := stmt.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// RecordPartition adds the status row of a processed partition.
func (store *CaseStore) RecordPartition(status gostore.PartitionStatus) error {
	return store.BulkInsert(PartitionTableName, []interface{}{status})
}

// Query executes a sql query.
func (store *CaseStore) Query(query string) (elements []JSONElement, err error) {
	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	stmt, err := store.cursor.Prepare(query)
	if err != nil {
		return nil, err
	}

	return rowsToElements(stmt)
}

// Select retrieves the rows of a table. Conditions are or-ed, the column
// patterns of a single condition are and-ed and matched with LIKE.
func (store *CaseStore) Select(name string, conditions []map[string]string) (elements []JSONElement, err error) {
	t, ok := store.tables.load(name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownTable, name)
	}

	var ors, args []string
	for _, condition := range conditions {
		var keys []string
		for key := range condition {
			if !t.hasColumn(key) {
				return nil, fmt.Errorf("table %s has no column %s", name, key)
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var ands []string
		for _, key := range keys {
			ands = append(ands, quote(key)+" LIKE ?")
			args = append(args, condition[key])
		}
		if len(ands) > 0 {
			ors = append(ors, "("+strings.Join(ands, " AND ")+")")
		}
	}

	query := "SELECT rowid, * FROM " + quote(name)
	if len(ors) > 0 {
		query += " WHERE " + strings.Join(ors, " OR ") // #nosec
	}
	query += " ORDER BY rowid"

	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	stmt, err := store.cursor.Prepare(query)
	if err != nil {
		return nil, err
	}
	for i, arg := range args {
		stmt.BindText(i+1, arg)
	}

	return rowsToElements(stmt)
}

// Close closes the database. Closing twice is a no-op.
func (store *CaseStore) Close() error {
	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	if store.cursor == nil {
		return nil
	}
	err := store.cursor.Close()
	store.cursor = nil
	return err
}

/* ################################
#   Validate
################################ */

// Validate checks every row of every table against its schema and checks
// that each partition with rows has a status row.
func (store *CaseStore) Validate() (flaws []string, err error) {
	flaws = []string{}

	statuses, err := store.Select(PartitionTableName, nil)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{}
	for _, status := range statuses {
		known[gjson.GetBytes(status, "partition_id").String()] = true
	}

	for _, name := range store.Tables() {
		t, _ := store.tables.load(name)
		elements, err := store.Select(name, nil)
		if err != nil {
			return nil, err
		}

		missing := map[string]bool{}
		for _, element := range elements {
			valErr, err := validateSchema(t, element)
			if err != nil {
				return nil, err
			}
			flaws = append(flaws, valErr...)

			if name == PartitionTableName {
				continue
			}
			partition := gjson.GetBytes(element, "partition_id")
			if partition.Exists() && !known[partition.String()] && !missing[partition.String()] {
				missing[partition.String()] = true
				flaws = append(flaws, fmt.Sprintf("%s: partition '%s' has no status", name, partition.String()))
			}
		}
	}
	return flaws, nil
}

/* ################################
#   Intern
################################ */

func (t *table) hasColumn(name string) bool {
	for _, col := range t.columns {
		if col.name == name {
			return true
		}
	}
	return false
}

func (store *CaseStore) tableColumns(name string) ([]string, error) {
	stmt, err := store.cursor.Prepare(fmt.Sprintf("PRAGMA table_info (%s)", quote(name)))
	if err != nil {
		return nil, err
	}

	var cols []string
	for {
		if hasRow, err := stmt.Step(); err != nil {
			_ = stmt.Finalize()
			return nil, err
		} else if !hasRow {
			break
		}
		cols = append(cols, stmt.GetText("name"))
	}
	return cols, stmt.Finalize()
}

func exec(conn *sqlite.Conn, query string) error {
	stmt, err := conn.Prepare(query)
	if err != nil {
		return err
	}

	_, err = stmt.Step()
	if err != nil {
		_ = stmt.Finalize()
		return err
	}

	return stmt.Finalize()
}
