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
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// DefaultPageSize is used if the first restart page does not declare a
// usable log page size.
const DefaultPageSize = 4096

// Stats counts the pages and records of a parsed $LogFile.
type Stats struct {
	Pages        int
	RestartPages int
	RecordPages  int
	EmptyPages   int
	UnknownPages int
	Records      int
	Corrupt      int
	Suspect      int
	Truncated    int
}

// Parser reads a $LogFile page by page. Pages with a mismatching update
// sequence are decoded and their entries marked Suspect.
type Parser struct {
	r        *bufio.Reader
	pageSize int
	geometry Geometry
	log      logrus.FieldLogger

	page   []byte
	offset int64
	queue  []Entry
	entry  Entry
	err    error
	done   bool
	stats  Stats

	// record continued on the following page
	carry        []byte
	carryNeed    int
	carryOffset  int64
	carrySuspect bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithPageSize fixes the log page size.
func WithPageSize(size int) Option {
	return func(p *Parser) {
		p.pageSize = size
	}
}

// WithGeometry sets the volume geometry used to compute record targets.
func WithGeometry(geo Geometry) Option {
	return func(p *Parser) {
		p.geometry = geo
	}
}

// WithLogger sets the logger for skipped pages.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader, opts ...Option) *Parser {
	p := &Parser{
		r:        bufio.NewReaderSize(r, 1<<16),
		geometry: DefaultGeometry,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PageSize returns the page size in use. It is 0 until the first call to
// Next.
func (p *Parser) PageSize() int {
	return p.pageSize
}

func (p *Parser) detectPageSize() {
	if p.pageSize > 0 {
		return
	}
	p.pageSize = DefaultPageSize
	head, _ := p.r.Peek(0x18)
	if ntfs.ClassifyPage(head) != ntfs.PageRestart || len(head) < 0x18 {
		return
	}
	size := int(binary.LittleEndian.Uint32(head[0x14:]))
	if size >= ntfs.SectorSize && size <= 1<<16 && size&(size-1) == 0 {
		p.pageSize = size
	}
}

// Next advances to the next restart area or log record.
func (p *Parser) Next() bool {
	for len(p.queue) == 0 {
		if p.done {
			p.entry = nil
			return false
		}
		p.readPage()
	}
	p.entry = p.queue[0]
	p.queue = p.queue[1:]
	return true
}

// Entry returns the entry read by the last call to Next.
func (p *Parser) Entry() Entry {
	return p.entry
}

// Err returns the read error that ended the scan, if any.
func (p *Parser) Err() error {
	return p.err
}

// Stats returns the counters of the scan so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

func (p *Parser) readPage() {
	if p.page == nil {
		p.detectPageSize()
		p.page = make([]byte, p.pageSize)
	}

	offset := p.offset
	_, err := io.ReadFull(p.r, p.page)
	switch {
	case err == io.EOF:
		p.done = true
		p.dropCarry()
		return
	case err == io.ErrUnexpectedEOF:
		p.stats.Truncated++
		p.done = true
		p.dropCarry()
		return
	case err != nil:
		p.err = errors.Wrapf(err, "read log page at %d", offset)
		p.done = true
		return
	}
	p.offset += int64(p.pageSize)
	p.stats.Pages++

	switch ntfs.ClassifyPage(p.page) {
	case ntfs.PageRestart:
		p.dropCarry()
		p.restartPage(offset)
	case ntfs.PageRecord:
		p.recordPage(offset)
	case ntfs.PageEmpty:
		p.stats.EmptyPages++
		p.dropCarry()
	default:
		p.stats.UnknownPages++
		p.dropCarry()
		p.log.WithField("offset", offset).Debug("unknown log page signature")
	}
}

func (p *Parser) dropCarry() {
	if p.carry != nil {
		p.stats.Truncated++
		p.log.WithField("offset", p.carryOffset).Debug("log record continuation missing")
	}
	p.carry = nil
}

func (p *Parser) restartPage(offset int64) {
	p.stats.RestartPages++
	rp, err := ntfs.DecodeRestartPage(p.page)
	if rp == nil {
		p.stats.Corrupt++
		p.log.WithField("offset", offset).Debug(err)
		return
	}
	if rp.Suspect {
		p.stats.Suspect++
	}
	p.queue = append(p.queue, newRestartArea(rp, offset))
}

func (p *Parser) recordPage(offset int64) {
	p.stats.RecordPages++
	rp, err := ntfs.DecodeRecordPage(p.page)
	if rp == nil {
		p.stats.Corrupt++
		p.dropCarry()
		p.log.WithField("offset", offset).Debug(err)
		return
	}
	if rp.Suspect {
		p.stats.Suspect++
	}

	pos := rp.DataOffset
	if p.carry != nil {
		n := p.pageSize - pos
		if n > p.carryNeed {
			n = p.carryNeed
		}
		p.carry = append(p.carry, p.page[pos:pos+n]...)
		p.carryNeed -= n
		p.carrySuspect = p.carrySuspect || rp.Suspect
		if p.carryNeed > 0 {
			return
		}
		p.emit(p.carry, p.carryOffset, p.carrySuspect)
		p.carry = nil
		pos = align8(pos + n)
	}

	for pos+ntfs.LogRecordHeaderSize <= p.pageSize {
		h, err := ntfs.DecodeLogRecordHeader(p.page[pos:])
		if err != nil || !h.Plausible() {
			return
		}
		end := pos + h.Length()
		if end > p.pageSize {
			p.carry = append([]byte(nil), p.page[pos:]...)
			p.carryNeed = end - p.pageSize
			p.carryOffset = offset + int64(pos)
			p.carrySuspect = rp.Suspect
			return
		}
		p.emit(p.page[pos:end], offset+int64(pos), rp.Suspect)
		pos = align8(end)
	}
}

func (p *Parser) emit(b []byte, offset int64, suspect bool) {
	lr, err := ntfs.DecodeLogRecord(b)
	if err != nil {
		p.stats.Corrupt++
		p.log.WithField("offset", offset).Debug(err)
		return
	}
	p.stats.Records++
	p.queue = append(p.queue, newRecord(lr, offset, suspect, p.geometry))
}

func align8(n int) int {
	return (n + 7) &^ 7
}
