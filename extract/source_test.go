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
	"errors"
	"io/ioutil"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		stream string
		want   string
	}{
		{StreamMFT, "$MFT"},
		{StreamLogFile, "$LogFile"},
		{StreamUsnJrnl, "$UsnJrnl_$J"},
	}
	for _, tt := range tests {
		t.Run(tt.stream, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.stream))
		})
	}
}

func TestDirSource_OpenStream(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dir/$UsnJrnl_$J", []byte("journal"), 0644))
	require.NoError(t, fs.MkdirAll("/dir/$LogFile", 0755))
	source := &DirSource{Fs: fs, Dir: "/dir"}

	stream, err := source.OpenStream(context.Background(), StreamUsnJrnl)
	require.NoError(t, err)
	b, err := ioutil.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "journal", string(b))
	assert.NoError(t, stream.Close())

	_, err = source.OpenStream(context.Background(), StreamMFT)
	assert.True(t, errors.Is(err, ErrStreamUnavailable), err)

	_, err = source.OpenStream(context.Background(), StreamLogFile)
	assert.True(t, errors.Is(err, ErrStreamUnavailable), err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.OpenStream(ctx, StreamUsnJrnl)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDirSource_Nested(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/export/case/ev/p1/$MFT", []byte("mft"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/export/case/ev/p1/$LogFile", []byte("log"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/export/case/ev/p2/$LogFile", []byte("log"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/export/$UsnJrnl_$J", []byte("top"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/export/case/ev/p1/$UsnJrnl_$J", []byte("nested"), 0644))

	tests := []struct {
		name        string
		dir         string
		stream      string
		want        string
		unavailable bool
		wantErr     bool
	}{
		{"nested", "/export", StreamMFT, "mft", false, false},
		{"direct wins", "/export", StreamUsnJrnl, "top", false, false},
		{"partition dir", "/export/case/ev/p2", StreamLogFile, "log", false, false},
		{"ambiguous", "/export", StreamLogFile, "", false, true},
		{"missing", "/export/case/ev/p2", StreamMFT, "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &DirSource{Fs: fs, Dir: tt.dir}
			stream, err := source.OpenStream(context.Background(), tt.stream)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.unavailable, errors.Is(err, ErrStreamUnavailable), err)
				return
			}
			require.NoError(t, err)
			defer stream.Close()
			b, err := ioutil.ReadAll(stream)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestImageSource_NoFileSystem(t *testing.T) {
	image := bytes.NewReader(make([]byte, 64*1024))
	source := NewImageSource(image, 0, image.Size())

	_, err := source.OpenStream(context.Background(), StreamMFT)
	assert.True(t, errors.Is(err, ErrStreamUnavailable), err)

	_, err = source.ClusterSize()
	assert.Error(t, err)
}

func TestRecovered(t *testing.T) {
	err := recovered(func() error {
		panic("index out of range")
	})
	assert.EqualError(t, err, "index out of range")
	assert.NoError(t, recovered(func() error { return nil }))
}
