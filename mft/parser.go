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

package mft

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// DefaultRecordSize is used if the record size cannot be detected.
const DefaultRecordSize = 1024

// Stats counts the slots of a parsed MFT.
type Stats struct {
	Slots      int
	Records    int
	Empty      int
	Corrupt    int
	Suspect    int
	Truncated  int
	Extensions int
}

// Parser reads file records from an MFT stream in slot order.
type Parser struct {
	r           *bufio.Reader
	recordSize  int
	keepSuspect bool
	log         logrus.FieldLogger

	buf   []byte
	slot  uint64
	rec   *FileRecord
	err   error
	done  bool
	stats Stats
}

// Option configures a Parser.
type Option func(*Parser)

// WithRecordSize fixes the record size instead of detecting it from the
// first record.
func WithRecordSize(size int) Option {
	return func(p *Parser) {
		p.recordSize = size
	}
}

// WithKeepSuspect keeps records whose update sequence did not match.
func WithKeepSuspect(keep bool) Option {
	return func(p *Parser) {
		p.keepSuspect = keep
	}
}

// WithLogger sets the logger for skipped records.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader, opts ...Option) *Parser {
	p := &Parser{
		r:   bufio.NewReaderSize(r, 1<<16),
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RecordSize returns the record size in use. It is 0 until the first call
// to Next.
func (p *Parser) RecordSize() int {
	return p.recordSize
}

func (p *Parser) detectRecordSize() {
	if p.recordSize > 0 {
		return
	}
	p.recordSize = DefaultRecordSize
	head, _ := p.r.Peek(0x20)
	switch size := ntfs.PeekRecordSize(head); size {
	case 1024, 2048, 4096:
		p.recordSize = size
	}
}

// Next advances to the next decodable record. Empty, corrupt and, unless
// kept, suspect slots are skipped and counted. It returns false at the end
// of the stream or on a read error.
func (p *Parser) Next() bool {
	if p.done {
		return false
	}
	if p.buf == nil {
		p.detectRecordSize()
		p.buf = make([]byte, p.recordSize)
	}

	for {
		_, err := io.ReadFull(p.r, p.buf)
		switch {
		case err == io.EOF:
			return p.finish(nil)
		case err == io.ErrUnexpectedEOF:
			p.stats.Truncated++
			p.log.WithField("slot", p.slot).Debug("mft ends within record")
			return p.finish(nil)
		case err != nil:
			return p.finish(errors.Wrapf(err, "read mft slot %d", p.slot))
		}
		slot := p.slot
		p.slot++
		p.stats.Slots++

		seg, err := ntfs.DecodeFileRecord(p.buf, slot)
		if err != nil {
			switch {
			case errors.Is(err, ntfs.ErrEmpty):
				p.stats.Empty++
				continue
			case errors.Is(err, ntfs.ErrFixupMismatch):
				p.stats.Suspect++
				if !p.keepSuspect {
					p.log.WithField("slot", slot).Debug(err)
					continue
				}
			case ntfs.IsTruncated(err):
				p.stats.Truncated++
				continue
			default:
				p.stats.Corrupt++
				p.log.WithField("slot", slot).Debug(err)
				continue
			}
		}

		p.rec = newFileRecord(seg)
		p.stats.Records++
		if p.rec.IsExtension() {
			p.stats.Extensions++
		}
		return true
	}
}

func (p *Parser) finish(err error) bool {
	p.done = true
	p.rec = nil
	p.err = err
	return false
}

// Record returns the record read by the last call to Next.
func (p *Parser) Record() *FileRecord {
	return p.rec
}

// Err returns the read error that ended the scan, if any.
func (p *Parser) Err() error {
	return p.err
}

// Stats returns the counters of the scan so far.
func (p *Parser) Stats() Stats {
	return p.stats
}
