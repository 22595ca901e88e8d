// Copyright (c) 2019 Siemens AG
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

// Package ntfsstore stores the NTFS metadata of forensic evidence in a
// sqlite case database.
//
// The case store format
//
// The case store implements the following conventions:
//     - The case store is a single sqlite file with application_id 0x6e746673 ("ntfs").
//     - Every extracted row carries partition_id, case_id and evidence_id as its first columns.
//     - The tables lv1_fs_ntfs_mft, lv1_fs_ntfs_logfile_restart_area, lv1_fs_ntfs_logfile_log_record and lv1_fs_ntfs_usnjrnl hold one row per file name, restart area, log record and journal record.
//     - Each processed partition has one row in _partitions with its state (complete or partial) and the errors of its stages.
//     - Timestamps are UTC strings with seven fractional digits (100ns resolution).
//     - Copies of the raw streams can be kept in the sqlar table, named <evidence>/<partition>/<stream>.
//
// Structure
//
// The tables of an example case store:
//     case.db
//     ├── _partitions
//     ├── lv1_fs_ntfs_mft
//     ├── lv1_fs_ntfs_logfile_restart_area
//     ├── lv1_fs_ntfs_logfile_log_record
//     ├── lv1_fs_ntfs_usnjrnl
//     └── sqlar
package ntfsstore
