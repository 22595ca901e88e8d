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
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/forensicanalysis/fsdoublestar"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"www.velocidex.com/golang/go-ntfs/parser"
)

// Paths of the NTFS metadata streams.
const (
	StreamMFT     = "$MFT"
	StreamMFTMirr = "$MFTMirr"
	StreamLogFile = "$LogFile"
	StreamUsnJrnl = "$Extend/$UsnJrnl:$J"
)

// ErrStreamUnavailable is returned for streams that are missing or cannot
// be read from the volume.
var ErrStreamUnavailable = errors.New("stream unavailable")

// Source gives sequential access to the metadata streams of one volume.
// Alternate data streams are addressed as "path:stream".
type Source interface {
	OpenStream(ctx context.Context, path string) (io.ReadCloser, error)
}

// DirSource reads streams that were already extracted into a directory.
// The files are named after the last path element, with the alternate
// stream separator replaced by "_" ($UsnJrnl_$J). A file missing from Dir
// itself is searched in its subdirectories, e.g. an earlier export laid out
// as <case>/<evidence>/<partition>, and must be found exactly once.
type DirSource struct {
	Fs  afero.Fs
	Dir string
}

// FileName returns the name of the file holding the stream.
func FileName(streamPath string) string {
	return strings.ReplaceAll(path.Base(streamPath), ":", "_")
}

func (s *DirSource) OpenStream(ctx context.Context, streamPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := s.locate(FileName(streamPath))
	if err != nil {
		return nil, errors.Wrap(err, streamPath)
	}
	return s.Fs.Open(name)
}

func (s *DirSource) locate(fileName string) (string, error) {
	direct := path.Join(s.Dir, fileName)
	if ok, err := s.isFile(direct); err != nil || ok {
		return direct, err
	}

	matches, err := fsdoublestar.Glob(afero.NewIOFS(s.Fs), path.Join(s.Dir, "**", fileName))
	if err != nil {
		return "", err
	}
	var files []string
	for _, match := range matches {
		if ok, err := s.isFile(match); err != nil {
			return "", err
		} else if ok {
			files = append(files, match)
		}
	}
	sort.Strings(files)

	switch len(files) {
	case 0:
		return "", errors.Wrapf(ErrStreamUnavailable, "no file %s below %s", fileName, s.Dir)
	case 1:
		return files[0], nil
	}
	return "", fmt.Errorf("%s is ambiguous: %s", fileName, strings.Join(files, ", "))
}

func (s *DirSource) isFile(name string) (bool, error) {
	info, err := s.Fs.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// ImageSource reads streams from a raw NTFS volume. The file system is
// opened on first use.
type ImageSource struct {
	volume io.ReaderAt

	once sync.Once
	ntfs *parser.NTFSContext
	err  error
}

// NewImageSource creates a source for the NTFS volume of size bytes that
// starts at offset in image.
func NewImageSource(image io.ReaderAt, offset, size int64) *ImageSource {
	return &ImageSource{volume: io.NewSectionReader(image, offset, size)}
}

func (s *ImageSource) open() error {
	s.once.Do(func() {
		s.err = recovered(func() error {
			reader, err := parser.NewPagedReader(s.volume, 0x1000, 0x10000)
			if err != nil {
				return err
			}
			s.ntfs, err = parser.GetNTFSContext(reader, 0)
			return err
		})
	})
	return s.err
}

func (s *ImageSource) OpenStream(ctx context.Context, streamPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.open(); err != nil {
		return nil, errors.Wrapf(ErrStreamUnavailable, "%s: no ntfs file system: %s", streamPath, err)
	}
	var stream io.Reader
	err := recovered(func() error {
		data, err := parser.GetDataForPath(s.ntfs, streamPath)
		if err != nil {
			return err
		}
		stream = io.NewSectionReader(data, 0, parser.RangeSize(data))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(ErrStreamUnavailable, "%s: %s", streamPath, err)
	}
	return io.NopCloser(stream), nil
}

// recovered turns a panic of the ntfs parser on malformed volumes into an
// error.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn()
}

// ClusterSize returns the cluster size of the volume.
func (s *ImageSource) ClusterSize() (int, error) {
	if err := s.open(); err != nil {
		return 0, err
	}
	return int(s.ntfs.ClusterSize), nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
