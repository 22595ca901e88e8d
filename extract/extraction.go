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
	"bytes"
	"context"
	"io"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/logfile"
	"github.com/forensicanalysis/ntfsstore/mft"
	"github.com/forensicanalysis/ntfsstore/ntfs"
	"github.com/forensicanalysis/ntfsstore/spooled"
	"github.com/forensicanalysis/ntfsstore/usnjrnl"
)

// Extraction runs the stages of one partition: $MFT first, then $LogFile
// and $UsnJrnl, which both correlate their entries with the loaded MFT.
// An Extraction is not reusable.
type Extraction struct {
	partition Partition
	sink      gostore.Sink
	config    *Config
	log       logrus.FieldLogger
	key       gostore.RowKey
	report    *Report

	state    State
	table    *mft.Table
	paths    *mft.Reconstructor
	geometry logfile.Geometry
}

type stageFunc func(ctx context.Context, workspace string, report *StageReport) error

// NewExtraction prepares the extraction of partition p into sink. A nil
// config uses DefaultConfig.
func NewExtraction(p Partition, sink gostore.Sink, config *Config) *Extraction {
	if config == nil {
		config = DefaultConfig()
	}
	runID := uuid.New().String()
	return &Extraction{
		partition: p,
		sink:      sink,
		config:    config,
		log:       config.logger().WithFields(logrus.Fields{"partition": p.Key, "run": runID}),
		key:       gostore.RowKey{PartitionID: p.ID, CaseID: config.CaseID, EvidenceID: config.EvidenceID},
		report:    &Report{Partition: p, RunID: runID},
	}
}

// State returns the progress of the extraction.
func (e *Extraction) State() State {
	return e.state
}

// Run executes all stages and records the partition status in the sink.
// Stage failures are part of the report; the returned error is set if the
// run was canceled or the status could not be recorded.
func (e *Extraction) Run(ctx context.Context) (*Report, error) {
	if e.partition.Source == nil {
		return nil, errors.Errorf("partition %s has no source", e.partition.Key)
	}

	fs := e.config.fs()
	root := filepath.Join(e.config.TempDir, e.config.CaseID, e.config.EvidenceID, e.partition.Key, e.report.RunID)
	defer func() {
		if err := fs.RemoveAll(root); err != nil {
			e.log.WithError(err).Warn("could not remove workspace")
		}
	}()

	err := e.run(ctx, root)

	// the record index is only needed while the stages run
	e.table, e.paths = nil, nil
	e.report.State = e.state

	if serr := e.sink.RecordPartition(e.report.Status(e.key)); serr != nil && err == nil {
		err = errors.Wrap(serr, "could not record partition")
	}
	e.log.WithFields(logrus.Fields{"state": e.state, "rows": e.report.Rows()}).Info("partition finished")
	return e.report, err
}

func (e *Extraction) run(ctx context.Context, root string) error {
	stages := []struct {
		name string
		fn   stageFunc
		done State
	}{
		{StageMFT, e.loadMFT, MFTLoaded},
		{StageLogFile, e.parseLogFile, LogFileDone},
		{StageUsnJrnl, e.parseUsnJrnl, UsnDone},
	}

	var canceled error
	skip := ""
	for _, stage := range stages {
		report := &StageReport{Stage: stage.name}
		e.report.Stages = append(e.report.Stages, report)
		if skip != "" {
			report.Skipped = true
			report.Reason = skip
			continue
		}

		err := e.runStage(ctx, filepath.Join(root, stage.name), report, stage.fn)
		switch {
		case ctx.Err() != nil:
			canceled = ctx.Err()
			report.Err = canceled
			skip = "canceled"
		case errors.Is(err, ErrStreamUnavailable):
			report.Skipped = true
			report.Reason = err.Error()
		case err != nil:
			report.Err = err
		}

		if stage.name == StageMFT && e.table == nil && skip == "" {
			skip = "mft not loaded"
		}
		if skip == "" {
			e.state = stage.done
		}
	}
	if skip == "" {
		e.state = Complete
	}
	return canceled
}

// runStage runs fn inside a fresh workspace directory that is removed
// afterwards.
func (e *Extraction) runStage(ctx context.Context, workspace string, report *StageReport, fn stageFunc) error {
	log := e.log.WithField("stage", report.Stage)
	log.Info("stage started")

	fs := e.config.fs()
	if err := fs.MkdirAll(workspace, 0700); err != nil {
		return errors.Wrap(err, "could not create workspace")
	}
	defer func() {
		if err := fs.RemoveAll(workspace); err != nil {
			log.WithError(err).Warn("could not remove workspace")
		}
	}()

	err := fn(ctx, workspace, report)

	fields := logrus.Fields{
		"rows":      report.Rows,
		"corrupt":   report.Corrupt,
		"truncated": report.Truncated,
	}
	switch {
	case errors.Is(err, ErrStreamUnavailable):
		log.WithFields(fields).Infof("stage skipped: %s", err)
	case err != nil:
		log.WithFields(fields).WithError(err).Error("stage failed")
	default:
		log.WithFields(fields).Info("stage finished")
	}
	return err
}

// fetch copies a stream of the partition into a temporary file in
// workspace.
func (e *Extraction) fetch(ctx context.Context, workspace, streamPath string) (*spooled.TemporaryFile, error) {
	stream, err := e.partition.Source.OpenStream(ctx, streamPath)
	if err != nil {
		return nil, err
	}
	defer stream.Close() // nolint:errcheck

	spool, _ := spooled.New(e.config.fs(), workspace, e.config.SpoolSize)
	err = recovered(func() error {
		_, err := io.Copy(spool, &contextReader{ctx: ctx, r: stream})
		return err
	})
	if err != nil {
		spool.Close() // nolint:errcheck
		return nil, errors.Wrapf(err, "could not copy %s", streamPath)
	}
	if e.config.ArchiveStreams {
		e.archive(streamPath, spool)
	}
	return spool, nil
}

// archive keeps a copy of the stream in sinks that support it. Failures are
// only logged.
func (e *Extraction) archive(streamPath string, spool *spooled.TemporaryFile) {
	archiver, ok := e.sink.(gostore.Archiver)
	if !ok {
		return
	}
	name := path.Join(e.config.EvidenceID, e.partition.Key, FileName(streamPath))
	if err := archiver.ArchiveStream(name, spool.Reader(), spool.Size()); err != nil {
		e.log.WithError(err).Warnf("could not archive %s", streamPath)
		return
	}
	e.report.Archived = append(e.report.Archived, name)
}

// flush hands all rows of a stage to the sink.
func (e *Extraction) flush(report *StageReport, table string, rows []interface{}) error {
	report.Rows += len(rows)
	if len(rows) == 0 {
		return nil
	}
	err := e.sink.BulkInsert(table, rows)
	var bulkErr *gostore.BulkInsertError
	if errors.As(err, &bulkErr) {
		report.Inserted += bulkErr.Inserted
		return err
	}
	if err != nil {
		return err
	}
	report.Inserted += len(rows)
	return nil
}

type clusterSizer interface {
	ClusterSize() (int, error)
}

func (e *Extraction) loadMFT(ctx context.Context, workspace string, report *StageReport) error {
	spool, err := e.fetch(ctx, workspace, StreamMFT)
	if err != nil {
		return err
	}
	defer spool.Close() // nolint:errcheck

	opts := []mft.Option{mft.WithKeepSuspect(e.config.KeepSuspect), mft.WithLogger(e.log)}
	if e.config.RecordSize != 0 {
		opts = append(opts, mft.WithRecordSize(e.config.RecordSize))
	}
	parser := mft.NewParser(&contextReader{ctx: ctx, r: spool.Reader()}, opts...)
	table, err := mft.Load(parser)
	stats := parser.Stats()
	report.Corrupt = stats.Corrupt
	report.Suspect = stats.Suspect
	report.Truncated = stats.Truncated
	if err != nil {
		return errors.Wrap(err, "could not parse $MFT")
	}

	e.table = table
	e.paths = mft.NewReconstructor(table, e.config.MaxPathDepth)
	e.geometry = logfile.Geometry{ClusterSize: e.config.ClusterSize, RecordSize: parser.RecordSize()}
	if sizer, ok := e.partition.Source.(clusterSizer); ok {
		if size, err := sizer.ClusterSize(); err == nil && size > 0 {
			e.geometry.ClusterSize = size
		}
	}

	e.compareMirror(ctx, workspace, spool, parser.RecordSize())

	var rows []interface{}
	err = mft.Rows(table, e.paths, e.key, e.config.NamePolicy, func(row *mft.Row) error {
		rows = append(rows, row)
		return ctx.Err()
	})
	if err != nil {
		return err
	}
	return e.flush(report, mft.TableName, rows)
}

// compareMirror records the leading records whose $MFTMirr copy differs
// from $MFT.
func (e *Extraction) compareMirror(ctx context.Context, workspace string, records io.ReaderAt, recordSize int) {
	mirror, err := e.fetch(ctx, workspace, StreamMFTMirr)
	if err != nil {
		e.log.WithError(err).Debug("$MFTMirr not compared")
		return
	}
	defer mirror.Close() // nolint:errcheck

	count := int(mirror.Size()) / recordSize
	if count > e.config.MirrorRecords {
		count = e.config.MirrorRecords
	}
	mirrored := make([]byte, recordSize)
	original := make([]byte, recordSize)
	for i := 0; i < count; i++ {
		offset := int64(i * recordSize)
		if _, err := mirror.ReadAt(mirrored, offset); err != nil && err != io.EOF {
			e.log.WithError(err).Warn("could not read $MFTMirr")
			return
		}
		n, _ := records.ReadAt(original, offset)
		if n < recordSize || !bytes.Equal(mirrored, original) {
			e.report.MirrorMismatches = append(e.report.MirrorMismatches, uint64(i))
		}
	}
	if len(e.report.MirrorMismatches) > 0 {
		e.log.WithField("records", e.report.MirrorMismatches).Warn("$MFTMirr differs from $MFT")
	}
}

func (e *Extraction) parseLogFile(ctx context.Context, workspace string, report *StageReport) error {
	spool, err := e.fetch(ctx, workspace, StreamLogFile)
	if err != nil {
		return err
	}
	defer spool.Close() // nolint:errcheck

	parser := logfile.NewParser(&contextReader{ctx: ctx, r: spool.Reader()},
		logfile.WithGeometry(e.geometry), logfile.WithLogger(e.log))
	var restarts, records []interface{}
	for parser.Next() {
		switch entry := parser.Entry().(type) {
		case *logfile.RestartArea:
			restarts = append(restarts, logfile.NewRestartRow(e.key, entry))
		case *logfile.Record:
			records = append(records, logfile.NewRecordRow(e.key, entry, e.table, e.paths))
		}
	}
	stats := parser.Stats()
	report.Corrupt = stats.Corrupt + stats.UnknownPages
	report.Suspect = stats.Suspect
	report.Truncated = stats.Truncated

	return e.finish(ctx, report, parser.Err(), "$LogFile", func() error {
		if err := e.flush(report, logfile.RestartTableName, restarts); err != nil {
			return err
		}
		return e.flush(report, logfile.RecordTableName, records)
	})
}

func (e *Extraction) parseUsnJrnl(ctx context.Context, workspace string, report *StageReport) error {
	spool, err := e.fetch(ctx, workspace, StreamUsnJrnl)
	if err != nil {
		return err
	}
	defer spool.Close() // nolint:errcheck

	parser := usnjrnl.NewParser(&contextReader{ctx: ctx, r: spool.Reader()}, usnjrnl.WithLogger(e.log))
	var rows []interface{}
	for parser.Next() {
		rows = append(rows, usnjrnl.NewRow(e.key, parser.Record(), e.table, e.paths))
	}
	stats := parser.Stats()
	report.Corrupt = stats.Corrupt
	report.Unsupported = stats.Unsupported
	report.Truncated = stats.Truncated

	return e.finish(ctx, report, parser.Err(), "$UsnJrnl", func() error {
		return e.flush(report, usnjrnl.TableName, rows)
	})
}

// finish flushes the rows parsed before a stream ended. Truncated streams
// are reported in the counters, other parse errors fail the stage.
func (e *Extraction) finish(ctx context.Context, report *StageReport, parseErr error, stream string, flush func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	if parseErr != nil && !ntfs.IsTruncated(parseErr) {
		return errors.Wrapf(parseErr, "could not parse %s", stream)
	}
	if parseErr != nil {
		e.log.WithField("stage", report.Stage).Debug(parseErr)
	}
	return nil
}
