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

package cmd

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_unpackCommand(t *testing.T) {
	dir, storePath := setup(t, "--archive")
	out := filepath.Join(dir, "unpacked")

	tests := []struct {
		name  string
		args  []string
		files []string
	}{
		{"all", []string{storePath, filepath.Join(out, "all")}, []string{"$LogFile", "$MFT", "$UsnJrnl_$J"}},
		{"filter", []string{"--filter", "disk01/p1/$M*", storePath, filepath.Join(out, "filter")}, []string{"$MFT"}},
		{"no match", []string{"--filter", "disk02/**", storePath, filepath.Join(out, "none")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Unpack()
			require.NoError(t, cmd.Flags().Parse(tt.args))
			args := cmd.Flags().Args()
			stdout(func() {
				require.NoError(t, cmd.RunE(cmd, args))
			})

			infos, err := ioutil.ReadDir(filepath.Join(args[1], "disk01", "p1"))
			if tt.files == nil {
				assert.True(t, os.IsNotExist(err), err)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, info := range infos {
				names = append(names, info.Name())
			}
			assert.Equal(t, tt.files, names)
		})
	}

	original, err := ioutil.ReadFile(filepath.Join(dir, "export", "$MFT"))
	require.NoError(t, err)
	unpacked, err := ioutil.ReadFile(filepath.Join(out, "all", "disk01", "p1", "$MFT"))
	require.NoError(t, err)
	assert.Equal(t, original, unpacked)
}
