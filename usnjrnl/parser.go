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

// Package usnjrnl parses the NTFS change journal stream ($UsnJrnl:$J).
package usnjrnl

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// MaxRecordLength bounds the declared length of a plausible record.
const MaxRecordLength = 0x10000

const (
	minRecordLength = ntfs.UsnRecordV2Size
	zeroChunk       = 4096
)

// Stats counts the records of a parsed journal.
type Stats struct {
	Records     int
	Unsupported int
	Corrupt     int
	SparseBytes int64
	Truncated   int
}

// Parser reads change journal records in stream order. Runs of zero bytes
// are skipped as sparse padding. A record whose declared length is not
// plausible ends the scan with ErrTruncated.
type Parser struct {
	r      *bufio.Reader
	log    logrus.FieldLogger
	offset int64
	rec    *ntfs.UsnRecord
	err    error
	done   bool
	stats  Stats
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger for skipped records.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader, opts ...Option) *Parser {
	p := &Parser{
		r:   bufio.NewReaderSize(r, 2*MaxRecordLength),
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next advances to the next version 2 or 3 record.
func (p *Parser) Next() bool {
	if p.done {
		return false
	}
	for {
		head, err := p.r.Peek(8)
		if len(head) < 8 {
			return p.finishShort(head, err)
		}
		length, _ := ntfs.PeekUsnRecordLength(head)
		if length == 0 {
			if isZero(head) {
				if err := p.skipZeros(); err != nil {
					return p.finish(err)
				}
				continue
			}
			return p.finish(errors.Wrapf(ntfs.ErrTruncated, "record at %d has zero length", p.offset))
		}
		if length < minRecordLength || length > MaxRecordLength || length%8 != 0 {
			return p.finish(errors.Wrapf(ntfs.ErrTruncated, "record at %d has implausible length %d", p.offset, length))
		}

		buf, err := p.r.Peek(int(length))
		if len(buf) < int(length) {
			if err == nil || err == io.EOF {
				err = errors.Wrapf(ntfs.ErrTruncated, "record at %d ends after %d of %d bytes", p.offset, len(buf), length)
			}
			return p.finish(err)
		}

		rec, derr := ntfs.DecodeUsnRecord(buf)
		offset := p.offset
		if _, err := p.r.Discard(int(length)); err != nil {
			return p.finish(err)
		}
		p.offset += int64(length)

		switch {
		case derr == nil:
			p.rec = rec
			p.stats.Records++
			return true
		case errors.Is(derr, ntfs.ErrUnsupported):
			p.stats.Unsupported++
		default:
			p.stats.Corrupt++
			p.log.WithField("offset", offset).Debug(derr)
		}
	}
}

func (p *Parser) finishShort(head []byte, err error) bool {
	if err != nil && err != io.EOF {
		return p.finish(errors.Wrapf(err, "read journal at %d", p.offset))
	}
	if len(head) == 0 || isZero(head) {
		return p.finish(nil)
	}
	return p.finish(errors.Wrapf(ntfs.ErrTruncated, "%d trailing bytes at %d", len(head), p.offset))
}

// skipZeros discards zero bytes in steps of eight.
func (p *Parser) skipZeros() error {
	for {
		chunk, err := p.r.Peek(zeroChunk)
		n := 0
		for n+8 <= len(chunk) && isZero(chunk[n:n+8]) {
			n += 8
		}
		if _, derr := p.r.Discard(n); derr != nil {
			return derr
		}
		p.offset += int64(n)
		p.stats.SparseBytes += int64(n)
		if n < len(chunk) || err != nil {
			if err == io.EOF || err == bufio.ErrBufferFull {
				return nil
			}
			return err
		}
	}
}

func (p *Parser) finish(err error) bool {
	p.done = true
	p.rec = nil
	if err != nil && ntfs.IsTruncated(err) {
		p.stats.Truncated++
	}
	p.err = err
	return false
}

// Record returns the record read by the last call to Next.
func (p *Parser) Record() *ntfs.UsnRecord {
	return p.rec
}

// Err returns the error that ended the scan. Errors satisfying
// ntfs.IsTruncated leave all previously returned records valid.
func (p *Parser) Err() error {
	return p.err
}

// Stats returns the counters of the scan so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Offset returns the stream position after the last record.
func (p *Parser) Offset() int64 {
	return p.offset
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
