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

// Package logfile parses the NTFS transaction log ($LogFile) into restart
// areas and log records.
package logfile

import (
	"bytes"
	"encoding/binary"

	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// Entry is either a *RestartArea or a *Record.
type Entry interface {
	entry()
}

// RestartArea is the content of one restart page.
type RestartArea struct {
	Offset         int64
	Signature      string
	ChkdskLSN      uint64
	CurrentLSN     uint64
	SystemPageSize uint32
	LogPageSize    uint32
	MajorVersion   int16
	MinorVersion   int16
	LogClients     uint16
	Flags          uint16
	SeqNumberBits  uint32
	FileSize       int64
	OpenCount      uint32
	Clients        []ntfs.LogClient
	Suspect        bool
}

func (*RestartArea) entry() {}

// CleanDismount reports whether the volume was dismounted cleanly.
func (a *RestartArea) CleanDismount() bool {
	return a.Flags&ntfs.RestartCleanDismount != 0
}

func newRestartArea(rp *ntfs.RestartPage, offset int64) *RestartArea {
	return &RestartArea{
		Offset:         offset,
		Signature:      string(rp.Header.Signature[:]),
		ChkdskLSN:      rp.Header.ChkdskLSN,
		CurrentLSN:     rp.Area.CurrentLSN,
		SystemPageSize: rp.Header.SystemPageSize,
		LogPageSize:    rp.Header.LogPageSize,
		MajorVersion:   rp.Header.MajorVersion,
		MinorVersion:   rp.Header.MinorVersion,
		LogClients:     rp.Area.LogClients,
		Flags:          rp.Area.Flags,
		SeqNumberBits:  rp.Area.SeqNumberBits,
		FileSize:       rp.Area.FileSize,
		OpenCount:      rp.Area.RestartLogOpenCount,
		Clients:        rp.Clients,
		Suspect:        rp.Suspect,
	}
}

// Record is one log record. Target is the MFT slot modified by the record
// and only valid if HasTarget is set. A target sequence number of zero
// matches any sequence.
type Record struct {
	Offset             int64
	LSN                uint64
	PreviousLSN        uint64
	UndoNextLSN        uint64
	RecordType         uint32
	TransactionID      uint32
	Flags              uint16
	RedoOperation      ntfs.LogOperation
	UndoOperation      ntfs.LogOperation
	TargetAttribute    uint16
	TargetVCN          uint64
	ClusterBlockOffset uint16
	RecordOffset       uint16
	AttributeOffset    uint16
	LCNs               []uint64
	Redo               []byte
	Undo               []byte
	Target             ntfs.FileReference
	HasTarget          bool
	Suspect            bool
}

func (*Record) entry() {}

// Geometry holds the volume parameters needed to map a log record to the
// MFT slot it modifies.
type Geometry struct {
	ClusterSize int
	RecordSize  int
}

// DefaultGeometry matches volumes formatted with default settings.
var DefaultGeometry = Geometry{ClusterSize: 4096, RecordSize: 1024}

func newRecord(lr *ntfs.LogRecord, offset int64, suspect bool, geo Geometry) *Record {
	r := &Record{
		Offset:        offset,
		LSN:           lr.Header.ThisLSN,
		PreviousLSN:   lr.Header.ClientPreviousLSN,
		UndoNextLSN:   lr.Header.ClientUndoNextLSN,
		RecordType:    lr.Header.RecordType,
		TransactionID: lr.Header.TransactionID,
		Flags:         lr.Header.Flags,
		RedoOperation: lr.RedoOperation(),
		UndoOperation: lr.UndoOperation(),
		LCNs:          lr.LCNs,
		Redo:          lr.Redo,
		Undo:          lr.Undo,
		Suspect:       suspect,
	}
	c := lr.Client
	if c == nil {
		return r
	}
	r.TargetAttribute = c.TargetAttribute
	r.TargetVCN = c.TargetVCN
	r.ClusterBlockOffset = c.ClusterBlockOffset
	r.RecordOffset = c.RecordOffset
	r.AttributeOffset = c.AttributeOffset

	if geo.RecordSize <= 0 || geo.ClusterSize <= 0 {
		return r
	}
	if !r.RedoOperation.TargetsFileRecord() && !r.UndoOperation.TargetsFileRecord() {
		return r
	}
	pos := c.TargetVCN*uint64(geo.ClusterSize) + uint64(c.ClusterBlockOffset)*ntfs.SectorSize
	r.Target = ntfs.FileReference{RecordNumber: pos / uint64(geo.RecordSize)}
	r.HasTarget = true
	if seq, ok := fileRecordSequence(r.Redo); ok {
		r.Target.SequenceNumber = seq
	} else if seq, ok := fileRecordSequence(r.Undo); ok {
		r.Target.SequenceNumber = seq
	}
	return r
}

// fileRecordSequence reads the sequence number of a FILE record image as
// carried by InitializeFileRecordSegment.
func fileRecordSequence(b []byte) (uint16, bool) {
	if len(b) < 0x12 || !bytes.Equal(b[:4], ntfs.SignatureFile[:]) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[0x10:]), true
}
