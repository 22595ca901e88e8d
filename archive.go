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
	"compress/zlib"
	"io"
	"time"

	"crawshaw.io/sqlite/sqlitex"
	"github.com/pkg/errors"

	"github.com/forensicanalysis/ntfsstore/gostore"
)

// ArchiveTableName is the sqlar table holding copies of the raw streams.
const ArchiveTableName = "sqlar"

const archiveTable = `CREATE TABLE IF NOT EXISTS sqlar(
  name TEXT PRIMARY KEY,  -- name of the stream
  mode INT,               -- access permissions
  mtime INT,              -- time of extraction
  sz INT,                 -- original stream size
  data BLOB               -- content
);`

const archiveMode = 0100644

var _ gostore.Archiver = &CaseStore{}

// ArchiveStream stores size bytes of r under name, replacing an earlier
// copy. Streams are stored uncompressed.
func (store *CaseStore) ArchiveStream(name string, r io.Reader, size int64) (err error) {
	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	defer sqlitex.Save(store.cursor)(&err)

	stmt, err := store.cursor.Prepare("INSERT OR REPLACE INTO sqlar (name, mode, mtime, sz, data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	stmt.BindText(1, name)
	stmt.BindInt64(2, archiveMode)
	stmt.BindInt64(3, time.Now().Unix())
	stmt.BindInt64(4, size)
	stmt.BindZeroBlob(5, size)
	if _, err := stmt.Step(); err != nil {
		_ = stmt.Reset()
		return errors.Wrapf(err, "could not archive %s", name)
	}
	if err := stmt.Reset(); err != nil {
		return err
	}

	blob, err := store.cursor.OpenBlob("", ArchiveTableName, "data", store.cursor.LastInsertRowID(), true)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(blob, r, size); err != nil {
		blob.Close() // nolint:errcheck
		return errors.Wrapf(err, "could not archive %s", name)
	}
	return blob.Close()
}

// Streams returns the names of all archived streams.
func (store *CaseStore) Streams() ([]string, error) {
	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	stmt, err := store.cursor.Prepare("SELECT name FROM sqlar WHERE data IS NOT NULL ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer stmt.Reset() // nolint:errcheck

	names := []string{}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			return names, nil
		}
		names = append(names, stmt.ColumnText(0))
	}
}

// ReadStream writes the archived stream name to w. Entries compressed by
// other sqlar tools are inflated.
func (store *CaseStore) ReadStream(name string, w io.Writer) error {
	store.sqlMutex.Lock()
	defer store.sqlMutex.Unlock()

	stmt, err := store.cursor.Prepare("SELECT rowid, sz, length(data) FROM sqlar WHERE name = ?")
	if err != nil {
		return err
	}
	stmt.BindText(1, name)
	hasRow, err := stmt.Step()
	if err != nil {
		_ = stmt.Reset()
		return err
	}
	if !hasRow {
		_ = stmt.Reset()
		return errors.Wrap(ErrUnknownStream, name)
	}
	id, size, stored := stmt.ColumnInt64(0), stmt.ColumnInt64(1), stmt.ColumnInt64(2)
	if err := stmt.Reset(); err != nil {
		return err
	}

	blob, err := store.cursor.OpenBlob("", ArchiveTableName, "data", id, false)
	if err != nil {
		return err
	}
	defer blob.Close() // nolint:errcheck

	var r io.Reader = blob
	if stored < size {
		zr, err := zlib.NewReader(blob)
		if err != nil {
			return errors.Wrapf(err, "could not inflate %s", name)
		}
		defer zr.Close() // nolint:errcheck
		r = zr
	}
	_, err = io.Copy(w, r)
	return err
}
