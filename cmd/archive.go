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
	"fmt"
	"path"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/ntfsstore"
)

// Unpack is the ntfsstore unpack commandline subcommand
func Unpack() *cobra.Command {
	var filter string
	unpackCmd := &cobra.Command{
		Use:   "unpack <store> <dir>",
		Short: "Write the archived raw streams into a directory",
		Long: `Write the raw streams archived by "extract --archive" into dir. The
files are laid out as <evidence>/<partition>/<stream> and each partition
folder can be extracted again with "extract --dir".`,
		Args: cobra.ExactArgs(2), //nolint:gomnd
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := glob.Compile(filter, '/')
			if err != nil {
				return err
			}

			store, err := ntfsstore.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.Streams()
			if err != nil {
				return err
			}

			destFS := afero.NewOsFs()
			for _, name := range names {
				if !match.Match(name) {
					continue
				}
				dest := filepath.Join(args[1], filepath.FromSlash(path.Clean("/" + name)))
				fmt.Printf("unpack '%s' to '%s'\n", name, dest)
				if err := unpackStream(store, destFS, name, dest); err != nil {
					return err
				}
			}
			return nil
		},
	}
	unpackCmd.Flags().StringVar(&filter, "filter", "**", "glob over the stream names, e.g. 'disk01/p2/*'")
	return unpackCmd
}

func unpackStream(store *ntfsstore.CaseStore, fs afero.Fs, name, dest string) error {
	if err := fs.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}
	f, err := fs.Create(dest)
	if err != nil {
		return err
	}
	if err := store.ReadStream(name, f); err != nil {
		f.Close() // nolint:errcheck
		return err
	}
	return f.Close()
}
