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

package ntfs

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"
)

// PageKind classifies a $LogFile page by its signature.
type PageKind int

// Page kinds of the $LogFile.
const (
	PageUnknown PageKind = iota
	PageEmpty
	PageRestart
	PageRecord
)

func (k PageKind) String() string {
	switch k {
	case PageEmpty:
		return "empty"
	case PageRestart:
		return "restart"
	case PageRecord:
		return "record"
	}
	return "unknown"
}

// ClassifyPage returns the kind of a $LogFile page. Pages filled with 0xFF or
// zero bytes are empty.
func ClassifyPage(page []byte) PageKind {
	if len(page) < 4 {
		return PageUnknown
	}
	var sig [4]byte
	copy(sig[:], page)
	switch sig {
	case SignatureRestart, SignatureCheckDisk:
		return PageRestart
	case SignatureRecord:
		return PageRecord
	case [4]byte{0xFF, 0xFF, 0xFF, 0xFF}, [4]byte{}:
		return PageEmpty
	}
	return PageUnknown
}

// RestartPageHeader starts the two restart pages of the $LogFile.
type RestartPageHeader struct {
	Signature         [4]byte
	UsaOffset         uint16
	UsaCount          uint16
	ChkdskLSN         uint64
	SystemPageSize    uint32
	LogPageSize       uint32
	RestartAreaOffset uint16
	MinorVersion      int16
	MajorVersion      int16
}

// RestartArea describes the state of the log at the time the restart page
// was written.
type RestartArea struct {
	CurrentLSN            uint64
	LogClients            uint16
	ClientFreeList        uint16
	ClientInUseList       uint16
	Flags                 uint16
	SeqNumberBits         uint32
	RestartAreaLength     uint16
	ClientArrayOffset     uint16
	FileSize              int64
	LastLSNDataLength     uint32
	LogRecordHeaderLength uint16
	LogPageDataOffset     uint16
	RestartLogOpenCount   uint32
}

// RestartCleanDismount is set in RestartArea.Flags when the volume was
// dismounted cleanly.
const RestartCleanDismount = 0x0002

type logClientRecord struct {
	OldestLSN        uint64
	ClientRestartLSN uint64
	PrevClient       uint16
	NextClient       uint16
	SeqNumber        uint16
	Reserved         [6]byte
	ClientNameLength uint32
	ClientName       [128]byte
}

// LogClient is one entry of the client array of a restart area.
type LogClient struct {
	Name             string
	OldestLSN        uint64
	ClientRestartLSN uint64
	SeqNumber        uint16
}

// RestartPage is a decoded restart page.
type RestartPage struct {
	Header  RestartPageHeader
	Area    RestartArea
	Clients []LogClient
	Suspect bool
}

const (
	restartPageHeaderSize = 0x1E
	restartAreaSize       = 0x30
	logClientRecordSize   = 0xA0
)

// DecodeRestartPage decodes a RSTR or CHKD page. The update sequence fixup
// is applied to page in place. On ErrFixupMismatch the page is returned
// marked Suspect.
func DecodeRestartPage(page []byte) (*RestartPage, error) {
	if len(page) < restartPageHeaderSize {
		return nil, truncated("restart page of %d bytes", len(page))
	}
	rp := &RestartPage{}
	if err := restruct.Unpack(page[:restartPageHeaderSize], binary.LittleEndian, &rp.Header); err != nil {
		return nil, corrupt("restart page header: %s", err)
	}
	if rp.Header.Signature != SignatureRestart && rp.Header.Signature != SignatureCheckDisk {
		return nil, corrupt("restart page signature %q", rp.Header.Signature[:])
	}

	fixupErr := ApplyFixup(page, int(rp.Header.UsaOffset), int(rp.Header.UsaCount))
	if fixupErr != nil {
		if !errors.Is(fixupErr, ErrFixupMismatch) {
			return nil, fixupErr
		}
		rp.Suspect = true
	}

	off := int(rp.Header.RestartAreaOffset)
	if off < restartPageHeaderSize || off+restartAreaSize > len(page) {
		return nil, corrupt("restart area at %d in %d byte page", off, len(page))
	}
	if err := restruct.Unpack(page[off:off+restartAreaSize], binary.LittleEndian, &rp.Area); err != nil {
		return nil, corrupt("restart area: %s", err)
	}

	clients := off + int(rp.Area.ClientArrayOffset)
	for i := 0; i < int(rp.Area.LogClients); i++ {
		start := clients + i*logClientRecordSize
		if start+logClientRecordSize > len(page) {
			break
		}
		rec := logClientRecord{}
		if err := restruct.Unpack(page[start:start+logClientRecordSize], binary.LittleEndian, &rec); err != nil {
			break
		}
		nameLength := int(rec.ClientNameLength)
		if nameLength > len(rec.ClientName) {
			nameLength = len(rec.ClientName)
		}
		rp.Clients = append(rp.Clients, LogClient{
			Name:             DecodeUTF16(rec.ClientName[:nameLength]),
			OldestLSN:        rec.OldestLSN,
			ClientRestartLSN: rec.ClientRestartLSN,
			SeqNumber:        rec.SeqNumber,
		})
	}
	return rp, fixupErr
}

// RecordPageHeader starts every RCRD page of the $LogFile.
type RecordPageHeader struct {
	Signature        [4]byte
	UsaOffset        uint16
	UsaCount         uint16
	LastLSN          uint64
	Flags            uint32
	PageCount        uint16
	PagePosition     uint16
	NextRecordOffset uint16
	Reserved         [6]byte
	LastEndLSN       uint64
}

const recordPageHeaderSize = 0x28

// RecordPage is a decoded RCRD page header.
type RecordPage struct {
	Header RecordPageHeader
	// DataOffset is the first byte of log record data in the page.
	DataOffset int
	Suspect    bool
}

// DecodeRecordPage decodes the header of a RCRD page and applies the update
// sequence fixup to page in place. On ErrFixupMismatch the page is returned
// marked Suspect.
func DecodeRecordPage(page []byte) (*RecordPage, error) {
	if len(page) < recordPageHeaderSize {
		return nil, truncated("record page of %d bytes", len(page))
	}
	rp := &RecordPage{}
	if err := restruct.Unpack(page[:recordPageHeaderSize], binary.LittleEndian, &rp.Header); err != nil {
		return nil, corrupt("record page header: %s", err)
	}
	if rp.Header.Signature != SignatureRecord {
		return nil, corrupt("record page signature %q", rp.Header.Signature[:])
	}

	fixupErr := ApplyFixup(page, int(rp.Header.UsaOffset), int(rp.Header.UsaCount))
	if fixupErr != nil {
		if !errors.Is(fixupErr, ErrFixupMismatch) {
			return nil, fixupErr
		}
		rp.Suspect = true
	}

	rp.DataOffset = align8(int(rp.Header.UsaOffset) + 2*int(rp.Header.UsaCount))
	if rp.DataOffset < recordPageHeaderSize || rp.DataOffset >= len(page) {
		return nil, corrupt("record data at %d in %d byte page", rp.DataOffset, len(page))
	}
	return rp, fixupErr
}

// LogRecordHeaderSize is the size of the header preceding the client data of
// every log record.
const LogRecordHeaderSize = 0x30

// Log record types.
const (
	LogRecordClient  = 1
	LogRecordRestart = 2
)

// LogRecordMultiPage is set in LogRecordHeader.Flags when a record continues
// on the next page.
const LogRecordMultiPage = 0x0001

// LogRecordHeader is the fixed header of a log record.
type LogRecordHeader struct {
	ThisLSN           uint64
	ClientPreviousLSN uint64
	ClientUndoNextLSN uint64
	ClientDataLength  uint32
	ClientSeqNumber   uint16
	ClientIndex       uint16
	RecordType        uint32
	TransactionID     uint32
	Flags             uint16
	Reserved          [6]byte
}

// MaxClientDataLength bounds the client data of a plausible log record.
const MaxClientDataLength = 0x10000

// DecodeLogRecordHeader decodes the header at the start of b.
func DecodeLogRecordHeader(b []byte) (*LogRecordHeader, error) {
	if len(b) < LogRecordHeaderSize {
		return nil, truncated("log record header of %d bytes", len(b))
	}
	h := &LogRecordHeader{}
	if err := restruct.Unpack(b[:LogRecordHeaderSize], binary.LittleEndian, h); err != nil {
		return nil, corrupt("log record header: %s", err)
	}
	return h, nil
}

// Plausible reports whether the header looks like a record written by the
// log file service. The remainder of a page after the last record usually
// fails this check.
func (h *LogRecordHeader) Plausible() bool {
	if h.ThisLSN == 0 {
		return false
	}
	if h.RecordType != LogRecordClient && h.RecordType != LogRecordRestart {
		return false
	}
	return h.ClientDataLength <= MaxClientDataLength
}

// Length returns the total size of the record including its header.
func (h *LogRecordHeader) Length() int {
	return LogRecordHeaderSize + int(h.ClientDataLength)
}

// ClientData is the NTFS specific part at the start of the client data of a
// log record.
type ClientData struct {
	RedoOperation      uint16
	UndoOperation      uint16
	RedoOffset         uint16
	RedoLength         uint16
	UndoOffset         uint16
	UndoLength         uint16
	TargetAttribute    uint16
	LCNsToFollow       uint16
	RecordOffset       uint16
	AttributeOffset    uint16
	ClusterBlockOffset uint16
	Reserved           uint16
	TargetVCN          uint64
}

const clientDataSize = 0x20

// LogRecord is a decoded log record.
type LogRecord struct {
	Header LogRecordHeader
	// Client is only set for client records with enough data.
	Client *ClientData
	LCNs   []uint64
	Redo   []byte
	Undo   []byte
}

// RedoOperation returns the redo operation or Noop if the record carries no
// client data.
func (r *LogRecord) RedoOperation() LogOperation {
	if r.Client == nil {
		return OpNoop
	}
	return LogOperation(r.Client.RedoOperation)
}

// UndoOperation returns the undo operation or Noop if the record carries no
// client data.
func (r *LogRecord) UndoOperation() LogOperation {
	if r.Client == nil {
		return OpNoop
	}
	return LogOperation(r.Client.UndoOperation)
}

// DecodeLogRecord decodes a complete log record, header and client data. The
// redo and undo data are copied out of b.
func DecodeLogRecord(b []byte) (*LogRecord, error) {
	h, err := DecodeLogRecordHeader(b)
	if err != nil {
		return nil, err
	}
	if h.Length() > len(b) {
		return nil, truncated("log record %d needs %d bytes, %d available", h.ThisLSN, h.Length(), len(b))
	}
	rec := &LogRecord{Header: *h}
	data := b[LogRecordHeaderSize:h.Length()]
	if h.RecordType != LogRecordClient || len(data) < clientDataSize {
		return rec, nil
	}

	client := &ClientData{}
	if err := restruct.Unpack(data[:clientDataSize], binary.LittleEndian, client); err != nil {
		return nil, corrupt("client data: %s", err)
	}
	rec.Client = client

	for i := 0; i < int(client.LCNsToFollow); i++ {
		off := clientDataSize + 8*i
		if off+8 > len(data) {
			break
		}
		rec.LCNs = append(rec.LCNs, binary.LittleEndian.Uint64(data[off:]))
	}
	rec.Redo = span(data, int(client.RedoOffset), int(client.RedoLength))
	rec.Undo = span(data, int(client.UndoOffset), int(client.UndoLength))
	return rec, nil
}

func span(b []byte, off, length int) []byte {
	if length == 0 || off+length > len(b) {
		return nil
	}
	out := make([]byte, length)
	copy(out, b[off:off+length])
	return out
}
