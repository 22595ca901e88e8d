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

// Name is a $FILE_NAME attribute of a synthetic record.
type Name struct {
	Parent    uint64
	Name      string
	Namespace uint8
}

// Record describes a synthetic FILE record.
type Record struct {
	Number    uint32
	Sequence  uint16
	InUse     bool
	Directory bool
	Base      uint64
	LSN       uint64
	// Created is applied to all timestamps, in seconds since the Unix epoch.
	Created    int64
	Attributes uint32
	Names      []Name
	Streams    []string
	// Size becomes the length of a resident unnamed $DATA attribute and
	// must stay below a few hundred bytes.
	Size uint64
	// BreakFixup leaves a sector trailer that does not match the update
	// sequence number.
	BreakFixup bool
}

// RecordSize is the size of synthetic FILE records.
const RecordSize = 1024

const (
	usaOffset  = 0x30
	attrOffset = 0x38
)

// FileRecord encodes r as a 1024 byte FILE record with update sequence
// protection applied.
func FileRecord(r Record) []byte {
	buf := make([]byte, RecordSize)
	copy(buf, "FILE")
	le.PutUint16(buf[0x04:], usaOffset)
	le.PutUint16(buf[0x06:], RecordSize/sectorSize+1)
	le.PutUint64(buf[0x08:], r.LSN)
	le.PutUint16(buf[0x10:], r.Sequence)
	le.PutUint16(buf[0x12:], uint16(len(r.Names)))
	le.PutUint16(buf[0x14:], attrOffset)
	var flags uint16
	if r.InUse {
		flags |= 0x1
	}
	if r.Directory {
		flags |= 0x2
	}
	le.PutUint16(buf[0x16:], flags)
	le.PutUint32(buf[0x1C:], RecordSize)
	le.PutUint64(buf[0x20:], r.Base)
	le.PutUint32(buf[0x2C:], r.Number)

	off := attrOffset
	instance := uint16(0)
	ft := uint64(0)
	if r.Created != 0 {
		ft = FileTime(r.Created)
	}

	if r.Base == 0 {
		si := make([]byte, 0x48)
		for i := 0; i < 4; i++ {
			le.PutUint64(si[8*i:], ft)
		}
		le.PutUint32(si[0x20:], r.Attributes)
		off = resident(buf, off, 0x10, "", si, instance)
		instance++
	}

	for _, n := range r.Names {
		name := UTF16(n.Name)
		fn := make([]byte, 0x42+len(name))
		le.PutUint64(fn[0x00:], n.Parent)
		for i := 1; i <= 4; i++ {
			le.PutUint64(fn[8*i:], ft)
		}
		le.PutUint64(fn[0x28:], r.Size)
		le.PutUint64(fn[0x30:], r.Size)
		fn[0x40] = uint8(len(name) / 2)
		fn[0x41] = n.Namespace
		copy(fn[0x42:], name)
		off = resident(buf, off, 0x30, "", fn, instance)
		instance++
	}

	if r.Base == 0 && !r.Directory {
		off = resident(buf, off, 0x80, "", make([]byte, r.Size), instance)
		instance++
	}
	for _, stream := range r.Streams {
		off = resident(buf, off, 0x80, stream, []byte("ads"), instance)
		instance++
	}

	le.PutUint32(buf[off:], 0xFFFFFFFF)
	off += 8
	le.PutUint32(buf[0x18:], uint32(off))
	le.PutUint16(buf[0x28:], instance)

	Protect(buf, usaOffset, 0x0001)
	if r.BreakFixup {
		le.PutUint16(buf[RecordSize-2:], 0xBEEF)
	}
	return buf
}

func resident(buf []byte, off int, typ uint32, name string, value []byte, instance uint16) int {
	encodedName := UTF16(name)
	valueOffset := align8(0x18 + len(encodedName))
	length := align8(valueOffset + len(value))
	le.PutUint32(buf[off:], typ)
	le.PutUint32(buf[off+4:], uint32(length))
	buf[off+9] = uint8(len(encodedName) / 2)
	le.PutUint16(buf[off+0x0A:], 0x18)
	le.PutUint16(buf[off+0x0E:], instance)
	le.PutUint32(buf[off+0x10:], uint32(len(value)))
	le.PutUint16(buf[off+0x14:], uint16(valueOffset))
	copy(buf[off+0x18:], encodedName)
	copy(buf[off+valueOffset:], value)
	return off + length
}

// MFT concatenates records into an MFT stream. A nil record becomes an
// empty slot.
func MFT(records ...[]byte) []byte {
	var out []byte
	for _, r := range records {
		if r == nil {
			r = make([]byte, RecordSize)
		}
		out = append(out, r...)
	}
	return out
}

// Volume returns the records of a minimal volume: the root directory at slot
// 5 and the given records at their slots, which must be ascending and above
// 5. Unused slots are empty.
func Volume(records ...Record) []byte {
	slots := make([][]byte, 5)
	slots = append(slots, FileRecord(Record{
		Number:    5,
		Sequence:  5,
		InUse:     true,
		Directory: true,
		Names:     []Name{{Parent: Ref(5, 5), Name: ".", Namespace: 3}},
	}))
	for _, r := range records {
		for len(slots) < int(r.Number) {
			slots = append(slots, nil)
		}
		slots = append(slots, FileRecord(r))
	}
	return MFT(slots...)
}
