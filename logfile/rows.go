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

package logfile

import (
	"strconv"
	"strings"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/mft"
	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// Table names of the $LogFile rows.
const (
	RestartTableName = "lv1_fs_ntfs_logfile_restart_area"
	RecordTableName  = "lv1_fs_ntfs_logfile_log_record"
)

// RestartRow is one output row of the restart area table.
type RestartRow struct {
	gostore.RowKey `structs:",flatten"`

	Offset           int64
	Signature        string
	ChkdskLSN        uint64 `structs:"chkdsk_lsn"`
	CurrentLSN       uint64 `structs:"current_lsn"`
	SystemPageSize   uint32 `structs:"system_page_size"`
	LogPageSize      uint32 `structs:"log_page_size"`
	Version          string
	LogClients       uint16 `structs:"log_clients"`
	CleanDismount    bool   `structs:"clean_dismount"`
	SeqNumberBits    uint32 `structs:"seq_number_bits"`
	FileSize         int64  `structs:"file_size"`
	OpenCount        uint32 `structs:"restart_log_open_count"`
	ClientNames      string `structs:"client_names"`
	ClientRestartLSN uint64 `structs:"client_restart_lsn"`
	OldestLSN        uint64 `structs:"oldest_lsn"`
	Suspect          bool
}

// NewRestartRow builds the row of a restart area.
func NewRestartRow(key gostore.RowKey, a *RestartArea) *RestartRow {
	row := &RestartRow{
		RowKey:         key,
		Offset:         a.Offset,
		Signature:      a.Signature,
		ChkdskLSN:      a.ChkdskLSN,
		CurrentLSN:     a.CurrentLSN,
		SystemPageSize: a.SystemPageSize,
		LogPageSize:    a.LogPageSize,
		Version:        strconv.Itoa(int(a.MajorVersion)) + "." + strconv.Itoa(int(a.MinorVersion)),
		LogClients:     a.LogClients,
		CleanDismount:  a.CleanDismount(),
		SeqNumberBits:  a.SeqNumberBits,
		FileSize:       a.FileSize,
		OpenCount:      a.OpenCount,
		Suspect:        a.Suspect,
	}
	var names []string
	for _, c := range a.Clients {
		names = append(names, c.Name)
	}
	row.ClientNames = strings.Join(names, "|")
	if len(a.Clients) > 0 {
		row.ClientRestartLSN = a.Clients[0].ClientRestartLSN
		row.OldestLSN = a.Clients[0].OldestLSN
	}
	return row
}

// RecordRow is one output row of the log record table.
type RecordRow struct {
	gostore.RowKey `structs:",flatten"`

	Offset             int64
	LSN                uint64 `structs:"lsn"`
	PreviousLSN        uint64 `structs:"previous_lsn"`
	UndoNextLSN        uint64 `structs:"undo_next_lsn"`
	RecordType         string `structs:"record_type"`
	TransactionID      uint32 `structs:"transaction_id"`
	Flags              uint16
	RedoOperation      string `structs:"redo_operation"`
	UndoOperation      string `structs:"undo_operation"`
	TargetAttribute    uint16 `structs:"target_attribute"`
	TargetVCN          uint64 `structs:"target_vcn"`
	ClusterBlockOffset uint16 `structs:"cluster_block_offset"`
	RecordOffset       uint16 `structs:"record_offset"`
	AttributeOffset    uint16 `structs:"attribute_offset"`
	LCNs               string `structs:"lcns"`
	RecordNumber       uint64 `structs:"record_number"`
	SequenceNumber     uint16 `structs:"sequence_number"`
	HasTarget          bool   `structs:"has_target"`
	FileName           string `structs:"file_name"`
	Path               string
	RedoData           []byte `structs:"redo_data"`
	UndoData           []byte `structs:"undo_data"`
	Suspect            bool
}

// NewRecordRow builds the row of a log record. The target is correlated
// with table; a target that is absent or whose slot was reused leaves the
// name empty.
func NewRecordRow(key gostore.RowKey, r *Record, table *mft.Table, paths *mft.Reconstructor) *RecordRow {
	row := &RecordRow{
		RowKey:             key,
		Offset:             r.Offset,
		LSN:                r.LSN,
		PreviousLSN:        r.PreviousLSN,
		UndoNextLSN:        r.UndoNextLSN,
		RecordType:         recordType(r.RecordType),
		TransactionID:      r.TransactionID,
		Flags:              r.Flags,
		RedoOperation:      r.RedoOperation.String(),
		UndoOperation:      r.UndoOperation.String(),
		TargetAttribute:    r.TargetAttribute,
		TargetVCN:          r.TargetVCN,
		ClusterBlockOffset: r.ClusterBlockOffset,
		RecordOffset:       r.RecordOffset,
		AttributeOffset:    r.AttributeOffset,
		LCNs:               joinLCNs(r.LCNs),
		HasTarget:          r.HasTarget,
		RedoData:           r.Redo,
		UndoData:           r.Undo,
		Suspect:            r.Suspect,
	}
	if !r.HasTarget {
		return row
	}
	row.RecordNumber = r.Target.RecordNumber
	row.SequenceNumber = r.Target.SequenceNumber
	if table == nil {
		return row
	}
	rec, status := table.Lookup(r.Target)
	if rec == nil || status == ntfs.Stale {
		return row
	}
	row.FileName = rec.Name()
	if paths != nil {
		row.Path = paths.Resolve(rec.Reference).String()
	}
	return row
}

func recordType(t uint32) string {
	switch t {
	case ntfs.LogRecordClient:
		return "client"
	case ntfs.LogRecordRestart:
		return "restart"
	}
	return strconv.FormatUint(uint64(t), 10)
}

func joinLCNs(lcns []uint64) string {
	parts := make([]string, len(lcns))
	for i, lcn := range lcns {
		parts[i] = strconv.FormatUint(lcn, 10)
	}
	return strings.Join(parts, ",")
}
