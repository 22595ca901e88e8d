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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/mft"
	"github.com/forensicanalysis/ntfsstore/ntfs"
	"github.com/forensicanalysis/ntfsstore/ntfs/ntfstest"
)

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func names(t *testing.T, stream []byte) ([]string, *Parser) {
	p := NewParser(bytes.NewReader(stream))
	var names []string
	for p.Next() {
		names = append(names, p.Record().FileName)
	}
	return names, p
}

func TestParser(t *testing.T) {
	stream := join(
		make([]byte, 3*4096),
		ntfstest.UsnRecordV2(ntfstest.Usn{File: ntfstest.Ref(64, 1), Parent: ntfstest.Ref(5, 5), Usn: 0x3000, Name: "a.txt"}),
		ntfstest.UsnRecordV4(),
		ntfstest.UsnRecordV3(ntfstest.Usn{File: ntfstest.Ref(65, 1), Parent: ntfstest.Ref(5, 5), Usn: 0x3060, Name: "b.txt"}),
		make([]byte, 24),
	)

	got, p := names(t, stream)
	require.NoError(t, p.Err())
	assert.Equal(t, []string{"a.txt", "b.txt"}, got)

	stats := p.Stats()
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 1, stats.Unsupported)
	assert.Equal(t, int64(3*4096+24), stats.SparseBytes)
	assert.Equal(t, int64(len(stream)), p.Offset())
}

func TestParserTruncated(t *testing.T) {
	first := ntfstest.UsnRecordV2(ntfstest.Usn{File: ntfstest.Ref(64, 1), Name: "kept.txt"})
	second := ntfstest.UsnRecordV2(ntfstest.Usn{File: ntfstest.Ref(65, 1), Name: "lost.txt"})

	implausible := append([]byte(nil), second...)
	implausible[0], implausible[1], implausible[2] = 0xFF, 0xFF, 0xFF

	tests := []struct {
		name   string
		stream []byte
	}{
		{"cut record", join(first, second[:len(second)-16])},
		{"implausible length", join(first, implausible)},
		{"unaligned length", join(first, []byte{0x41, 0, 0, 0, 2, 0, 0, 0})},
		{"trailing bytes", join(first, []byte{1, 2, 3})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, p := names(t, tt.stream)
			assert.Equal(t, []string{"kept.txt"}, got)
			assert.True(t, ntfs.IsTruncated(p.Err()), "unexpected error %v", p.Err())
			assert.Equal(t, 1, p.Stats().Truncated)
			assert.False(t, p.Next())
		})
	}
}

func TestParserCorruptRecord(t *testing.T) {
	bad := ntfstest.UsnRecordV2(ntfstest.Usn{Name: "bad"})
	bad[4] = 7
	stream := join(bad, ntfstest.UsnRecordV2(ntfstest.Usn{Name: "good"}))

	got, p := names(t, stream)
	assert.NoError(t, p.Err())
	assert.Equal(t, []string{"good"}, got)
	assert.Equal(t, 1, p.Stats().Corrupt)
}

func TestNewRow(t *testing.T) {
	table, err := mft.Load(mft.NewParser(bytes.NewReader(ntfstest.Volume(
		ntfstest.Record{Number: 40, Sequence: 1, InUse: true, Directory: true, Names: []ntfstest.Name{{Parent: ntfstest.Ref(5, 5), Name: "dir", Namespace: 1}}},
		ntfstest.Record{Number: 41, Sequence: 2, InUse: true, Names: []ntfstest.Name{{Parent: ntfstest.Ref(40, 1), Name: "renamed.txt", Namespace: 1}}},
	))))
	require.NoError(t, err)
	paths := mft.NewReconstructor(table, 0)
	key := gostore.RowKey{PartitionID: "p", CaseID: "c", EvidenceID: "e"}

	decode := func(u ntfstest.Usn) *ntfs.UsnRecord {
		rec, err := ntfs.DecodeUsnRecord(ntfstest.UsnRecordV2(u))
		require.NoError(t, err)
		return rec
	}

	tests := []struct {
		name         string
		usn          ntfstest.Usn
		resolvedName string
		path         string
	}{
		{"fresh", ntfstest.Usn{File: ntfstest.Ref(41, 2), Parent: ntfstest.Ref(40, 1), Name: "old.txt", Reason: 0x1000}, "renamed.txt", "/dir/old.txt"},
		{"reused slot", ntfstest.Usn{File: ntfstest.Ref(41, 1), Parent: ntfstest.Ref(40, 1), Name: "gone.txt"}, "", "/dir/gone.txt"},
		{"absent", ntfstest.Usn{File: ntfstest.Ref(500, 1), Parent: ntfstest.Ref(501, 1), Name: "x"}, "", ""},
		{"root parent", ntfstest.Usn{File: ntfstest.Ref(500, 1), Parent: ntfstest.Ref(5, 5), Name: "top"}, "", "/top"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewRow(key, decode(tt.usn), table, paths)
			assert.Equal(t, tt.resolvedName, row.ResolvedName)
			assert.Equal(t, tt.path, row.Path)
			assert.Equal(t, tt.usn.Name, row.FileName)
			assert.Equal(t, "2.0", row.Version)
			assert.Equal(t, key, row.RowKey)
		})
	}
}
