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

// LogPageSize is the page size of synthetic $LogFile streams.
const LogPageSize = 4096

// Restart describes a synthetic restart page.
type Restart struct {
	CurrentLSN    uint64
	CleanDismount bool
	Client        string
	OpenCount     uint32
}

// RestartPage encodes a RSTR page with a single log client.
func RestartPage(r Restart) []byte {
	page := make([]byte, LogPageSize)
	copy(page, "RSTR")
	le.PutUint16(page[0x04:], 0x1E)
	le.PutUint16(page[0x06:], LogPageSize/sectorSize+1)
	le.PutUint32(page[0x10:], LogPageSize)
	le.PutUint32(page[0x14:], LogPageSize)
	le.PutUint16(page[0x18:], 0x30)
	le.PutUint16(page[0x1A:], 1)
	le.PutUint16(page[0x1C:], 1)

	area := page[0x30:]
	le.PutUint64(area[0x00:], r.CurrentLSN)
	le.PutUint16(area[0x08:], 1)
	le.PutUint16(area[0x0A:], 0xFFFF)
	le.PutUint16(area[0x0C:], 0)
	if r.CleanDismount {
		le.PutUint16(area[0x0E:], 0x2)
	}
	le.PutUint32(area[0x10:], 0x2C)
	le.PutUint16(area[0x14:], 0xD0)
	le.PutUint16(area[0x16:], 0x30)
	le.PutUint64(area[0x18:], 0x400000)
	le.PutUint16(area[0x24:], 0x30)
	le.PutUint16(area[0x26:], 0x40)
	le.PutUint32(area[0x28:], r.OpenCount)

	client := area[0x30:]
	le.PutUint64(client[0x00:], r.CurrentLSN)
	le.PutUint64(client[0x08:], r.CurrentLSN)
	le.PutUint16(client[0x10:], 0xFFFF)
	le.PutUint16(client[0x12:], 0xFFFF)
	name := UTF16(r.Client)
	le.PutUint32(client[0x1C:], uint32(len(name)))
	copy(client[0x20:], name)

	Protect(page, 0x1E, 0x0001)
	return page
}

// LogRecord describes a synthetic NTFS client log record.
type LogRecord struct {
	LSN                uint64
	PreviousLSN        uint64
	TransactionID      uint32
	Redo               uint16
	Undo               uint16
	TargetAttribute    uint16
	TargetVCN          uint64
	ClusterBlockOffset uint16
	RedoData           []byte
	UndoData           []byte
}

// Encode returns the header and client data of the record.
func (r LogRecord) Encode() []byte {
	client := make([]byte, 0x28)
	le.PutUint16(client[0x00:], r.Redo)
	le.PutUint16(client[0x02:], r.Undo)
	le.PutUint16(client[0x0C:], r.TargetAttribute)
	le.PutUint16(client[0x0E:], 1)
	le.PutUint16(client[0x14:], r.ClusterBlockOffset)
	le.PutUint64(client[0x18:], r.TargetVCN)
	le.PutUint64(client[0x20:], 0x1000)

	le.PutUint16(client[0x04:], uint16(len(client)))
	le.PutUint16(client[0x06:], uint16(len(r.RedoData)))
	client = append(client, r.RedoData...)
	client = append(client, make([]byte, align8(len(client))-len(client))...)
	le.PutUint16(client[0x08:], uint16(len(client)))
	le.PutUint16(client[0x0A:], uint16(len(r.UndoData)))
	client = append(client, r.UndoData...)
	client = append(client, make([]byte, align8(len(client))-len(client))...)

	b := make([]byte, 0x30, 0x30+len(client))
	le.PutUint64(b[0x00:], r.LSN)
	le.PutUint64(b[0x08:], r.PreviousLSN)
	le.PutUint32(b[0x18:], uint32(len(client)))
	le.PutUint32(b[0x20:], 1)
	le.PutUint32(b[0x24:], r.TransactionID)
	return append(b, client...)
}

// RecordPages lays out the encoded records on consecutive RCRD pages starting
// at the data offset of the first page. A record that does not fit is
// continued on the next page.
func RecordPages(records ...[]byte) []byte {
	const dataOffset = 0x40
	var stream []byte
	for _, r := range records {
		stream = append(stream, r...)
		stream = append(stream, make([]byte, align8(len(stream))-len(stream))...)
	}

	var out []byte
	capacity := LogPageSize - dataOffset
	for len(stream) > 0 || out == nil {
		n := capacity
		if n > len(stream) {
			n = len(stream)
		}
		page := make([]byte, LogPageSize)
		copy(page, "RCRD")
		le.PutUint16(page[0x04:], 0x28)
		le.PutUint16(page[0x06:], LogPageSize/sectorSize+1)
		le.PutUint16(page[0x14:], 1)
		le.PutUint16(page[0x16:], 1)
		le.PutUint16(page[0x18:], uint16(dataOffset+n))
		copy(page[dataOffset:], stream[:n])
		stream = stream[n:]
		if len(stream) > 0 {
			le.PutUint32(page[0x10:], 1)
		}
		Protect(page, 0x28, 0x0001)
		out = append(out, page...)
	}
	return out
}

// LogFile concatenates two restart pages and the given record pages.
func LogFile(r Restart, pages ...[]byte) []byte {
	out := append(RestartPage(r), RestartPage(r)...)
	for _, p := range pages {
		out = append(out, p...)
	}
	return out
}
