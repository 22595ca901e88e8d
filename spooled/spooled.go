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

// Package spooled provides a temporary file that is kept in memory until
// it grows beyond a limit and is then moved to a file system.
package spooled

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

type TemporaryFile struct {
	fs         afero.Fs
	dir        string
	size       int64
	maxSize    int64
	offset     int64
	buffer     *bytes.Buffer
	tempFile   afero.File
	rolledOver bool
}

// New creates a TemporaryFile that rolls over into dir on fs after maxSize
// bytes. The returned function closes and removes the file.
func New(fs afero.Fs, dir string, maxSize int64) (*TemporaryFile, func() error) {
	t := &TemporaryFile{fs: fs, dir: dir, buffer: &bytes.Buffer{}, maxSize: maxSize}
	return t, t.Close
}

// Read reads sequentially from the start of the written data.
func (t *TemporaryFile) Read(p []byte) (n int, err error) {
	n, err = t.ReadAt(p, t.offset)
	t.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt implements io.ReaderAt over the written data.
func (t *TemporaryFile) ReadAt(p []byte, off int64) (n int, err error) {
	if off >= t.size {
		return 0, io.EOF
	}
	if t.rolledOver {
		return t.tempFile.ReadAt(p, off)
	}
	n = copy(p, t.buffer.Bytes()[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}

// Reader returns an independent reader over all written data.
func (t *TemporaryFile) Reader() *io.SectionReader {
	return io.NewSectionReader(t, 0, t.size)
}

func (t *TemporaryFile) Write(p []byte) (n int, err error) {
	if !t.rolledOver && t.size+int64(len(p)) > t.maxSize {
		if err := t.Rollover(); err != nil {
			return 0, err
		}
	}

	if t.rolledOver {
		n, err = t.tempFile.WriteAt(p, t.size)
	} else {
		n, err = t.buffer.Write(p)
	}
	t.size += int64(n)
	return n, err
}

func (t *TemporaryFile) Rollover() (err error) {
	if t.rolledOver {
		return nil
	}
	if err := t.fs.MkdirAll(t.dir, 0700); err != nil {
		return fmt.Errorf("could not create tmp dir: %w", err)
	}
	t.tempFile, err = afero.TempFile(t.fs, t.dir, "spool")
	if err != nil {
		return fmt.Errorf("could not create tmp file: %w", err)
	}
	t.rolledOver = true
	_, err = io.Copy(t.tempFile, t.buffer)
	if err != nil {
		return fmt.Errorf("could not fill tmp file: %w", err)
	}
	t.buffer.Reset()
	return nil
}

// RolledOver reports whether the data was moved to the file system.
func (t *TemporaryFile) RolledOver() bool {
	return t.rolledOver
}

func (t *TemporaryFile) Close() error {
	if t.rolledOver {
		t.rolledOver = false
		t.size = 0
		err := t.tempFile.Close()
		if err != nil {
			return err
		}
		return t.fs.Remove(t.tempFile.Name())
	}
	t.size = 0
	t.buffer.Reset()
	return nil
}

func (t *TemporaryFile) Size() int64 {
	return t.size
}
