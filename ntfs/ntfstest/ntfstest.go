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

// Package ntfstest builds synthetic NTFS metadata structures for tests.
package ntfstest

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

const sectorSize = 512

var le = binary.LittleEndian

// UTF16 encodes s as little endian UTF-16.
func UTF16(s string) []byte {
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return b
}

// Protect writes usn into the last two bytes of every sector of buf and
// stores the original bytes in the update sequence array at usaOffset.
func Protect(buf []byte, usaOffset int, usn uint16) {
	sectors := len(buf) / sectorSize
	le.PutUint16(buf[usaOffset:], usn)
	for i := 0; i < sectors; i++ {
		end := (i+1)*sectorSize - 2
		copy(buf[usaOffset+2+2*i:], buf[end:end+2])
		le.PutUint16(buf[end:], usn)
	}
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// FileTime converts seconds since the Unix epoch to a FILETIME.
func FileTime(unix int64) uint64 {
	return uint64(unix+11644473600) * 10000000
}

// Ref packs a file reference.
func Ref(record uint64, seq uint16) uint64 {
	return uint64(seq)<<48 | record
}
