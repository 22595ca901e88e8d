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

package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/forensicanalysis/ntfsstore/gostore"
)

// State is the progress of an extraction.
type State int

// States of an extraction in the order they are reached.
const (
	Idle State = iota
	MFTLoaded
	LogFileDone
	UsnDone
	Complete
)

var stateNames = []string{"idle", "mft_loaded", "logfile_done", "usn_done", "complete"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Stage names.
const (
	StageMFT     = "mft"
	StageLogFile = "logfile"
	StageUsnJrnl = "usnjrnl"
)

// StageReport summarizes one stage of an extraction.
type StageReport struct {
	Stage   string
	Skipped bool
	Reason  string

	Rows        int
	Inserted    int
	Corrupt     int
	Suspect     int
	Truncated   int
	Unsupported int
	Err         error
}

// Failed reports whether the stage ran and failed.
func (s *StageReport) Failed() bool {
	return s.Err != nil
}

// Report summarizes the extraction of one partition.
type Report struct {
	Partition Partition
	RunID     string
	State     State
	Stages    []*StageReport

	// MirrorMismatches lists the record numbers whose $MFTMirr copy differs
	// from $MFT.
	MirrorMismatches []uint64
	// Archived lists the names of the stream copies kept in the sink.
	Archived []string
}

// Stage returns the report of a stage or nil.
func (r *Report) Stage(name string) *StageReport {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s
		}
	}
	return nil
}

// Partial reports whether the partition was only partially processed.
func (r *Report) Partial() bool {
	if r.State != Complete {
		return true
	}
	for _, s := range r.Stages {
		if s.Failed() {
			return true
		}
	}
	return false
}

// Rows returns the number of rows written for the partition.
func (r *Report) Rows() int {
	rows := 0
	for _, s := range r.Stages {
		rows += s.Inserted
	}
	return rows
}

// Status returns the partition status row of the report.
func (r *Report) Status(key gostore.RowKey) gostore.PartitionStatus {
	state := gostore.StateComplete
	if r.Partial() {
		state = gostore.StatePartial
	}
	var errs []string
	for _, s := range r.Stages {
		if s.Err != nil {
			errs = append(errs, s.Stage+": "+s.Err.Error())
		} else if s.Skipped {
			errs = append(errs, s.Stage+": skipped: "+s.Reason)
		}
	}
	return gostore.PartitionStatus{
		RowKey:   key,
		RunID:    r.RunID,
		Key:      r.Partition.Key,
		State:    state,
		Rows:     r.Rows(),
		Errors:   strings.Join(errs, "; "),
		Finished: gostore.FormatTime(time.Now()),
	}
}
