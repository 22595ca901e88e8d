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
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseStore_ArchiveStream(t *testing.T) {
	store, url := setup(t)

	mft := bytes.Repeat([]byte("FILE0\x00\x03\x00"), 512)
	require.NoError(t, store.ArchiveStream("ev/p1/$MFT", bytes.NewReader(mft), int64(len(mft))))
	require.NoError(t, store.ArchiveStream("ev/p1/$LogFile", bytes.NewReader([]byte("RSTR")), 4))

	// replaced
	require.NoError(t, store.ArchiveStream("ev/p1/$LogFile", bytes.NewReader([]byte("RCRD")), 4))

	// short streams are rolled back
	err := store.ArchiveStream("ev/p1/$UsnJrnl_$J", bytes.NewReader([]byte("short")), 10)
	assert.Error(t, err)

	names, err := store.Streams()
	require.NoError(t, err)
	assert.Equal(t, []string{"ev/p1/$LogFile", "ev/p1/$MFT"}, names)

	var buf bytes.Buffer
	require.NoError(t, store.ReadStream("ev/p1/$MFT", &buf))
	assert.Equal(t, mft, buf.Bytes())

	buf.Reset()
	require.NoError(t, store.ReadStream("ev/p1/$LogFile", &buf))
	assert.Equal(t, "RCRD", buf.String())

	err = store.ReadStream("ev/p2/$MFT", &buf)
	assert.True(t, errors.Is(err, ErrUnknownStream))

	// archives survive reopening and are not listed as row tables
	require.NoError(t, store.Close())
	reopened, err := Open(url)
	require.NoError(t, err)
	defer reopened.Close()
	assert.NotContains(t, reopened.Tables(), ArchiveTableName)
	names, err = reopened.Streams()
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestCaseStore_ReadCompressedStream(t *testing.T) {
	store, _ := setup(t)

	content := bytes.Repeat([]byte{0}, 4096)
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	stmt, err := store.cursor.Prepare("INSERT INTO sqlar (name, mode, mtime, sz, data) VALUES (?, ?, ?, ?, ?)")
	require.NoError(t, err)
	stmt.BindText(1, "ev/p1/$MFTMirr")
	stmt.BindInt64(2, archiveMode)
	stmt.BindInt64(3, 0)
	stmt.BindInt64(4, int64(len(content)))
	stmt.BindBytes(5, compressed.Bytes())
	_, err = stmt.Step()
	require.NoError(t, err)
	require.NoError(t, stmt.Reset())

	var buf bytes.Buffer
	require.NoError(t, store.ReadStream("ev/p1/$MFTMirr", &buf))
	assert.Equal(t, content, buf.Bytes())
}
