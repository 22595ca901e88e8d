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

// Package main implements the ntfsstore command line tool. It extracts the
// NTFS metadata streams of evidence images into a sqlite case store.
//     create    Create an empty case store
//     extract   Extract $MFT, $LogFile and $UsnJrnl into a case store
//     query     Run a sql query
//     select    Retrieve the rows of a table
//     unpack    Write archived raw streams into a directory
//     validate  Validate a case store
//
// Usage
//
// Extract a disk image
//     ntfsstore extract --image disk.dd --case 2020-042 --evidence disk01 case.db
// Extract previously exported streams
//     ntfsstore extract --dir export/ --config ntfsstore.yml case.db
// Inspect the results
//     ntfsstore select lv1_fs_ntfs_mft --where path=/Windows/% case.db
//     ntfsstore query --field path "SELECT path FROM lv1_fs_ntfs_usnjrnl" case.db
//
// Re-extract archived streams
//     ntfsstore extract --archive --image disk.dd --case 2020-042 --evidence disk01 case.db
//     ntfsstore unpack case.db export/
//     ntfsstore extract --dir export/disk01/p1 --case 2020-042 --evidence disk01 rerun.db
//
// Validate case store
//     ntfsstore validate case.db
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/ntfsstore/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ntfsstore",
		Short: "Extract NTFS metadata into case stores",
	}
	rootCmd.AddCommand(cmd.Create(), cmd.Extract(), cmd.Query(), cmd.Select(), cmd.Unpack(), cmd.Validate())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
