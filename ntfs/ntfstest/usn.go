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

package ntfstest

// Usn describes a synthetic change journal record.
type Usn struct {
	File      uint64
	Parent    uint64
	Usn       int64
	Timestamp int64
	Reason    uint32
	Name      string
}

// UsnRecordV2 encodes u as a version 2 record padded to 8 bytes.
func UsnRecordV2(u Usn) []byte {
	name := UTF16(u.Name)
	length := align8(0x3C + len(name))
	b := make([]byte, length)
	le.PutUint32(b[0x00:], uint32(length))
	le.PutUint16(b[0x04:], 2)
	le.PutUint64(b[0x08:], u.File)
	le.PutUint64(b[0x10:], u.Parent)
	le.PutUint64(b[0x18:], uint64(u.Usn))
	le.PutUint64(b[0x20:], FileTime(u.Timestamp))
	le.PutUint32(b[0x28:], u.Reason)
	le.PutUint32(b[0x34:], 0x20)
	le.PutUint16(b[0x38:], uint16(len(name)))
	le.PutUint16(b[0x3A:], 0x3C)
	copy(b[0x3C:], name)
	return b
}

// UsnRecordV3 encodes u as a version 3 record padded to 8 bytes.
func UsnRecordV3(u Usn) []byte {
	name := UTF16(u.Name)
	length := align8(0x4C + len(name))
	b := make([]byte, length)
	le.PutUint32(b[0x00:], uint32(length))
	le.PutUint16(b[0x04:], 3)
	le.PutUint64(b[0x08:], u.File)
	le.PutUint64(b[0x18:], u.Parent)
	le.PutUint64(b[0x28:], uint64(u.Usn))
	le.PutUint64(b[0x30:], FileTime(u.Timestamp))
	le.PutUint32(b[0x38:], u.Reason)
	le.PutUint32(b[0x44:], 0x20)
	le.PutUint16(b[0x48:], uint16(len(name)))
	le.PutUint16(b[0x4A:], 0x4C)
	copy(b[0x4C:], name)
	return b
}

// UsnRecordV4 returns a minimal version 4 range tracking record.
func UsnRecordV4() []byte {
	b := make([]byte, 0x50)
	le.PutUint32(b[0x00:], 0x50)
	le.PutUint16(b[0x04:], 4)
	return b
}
