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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/ntfsstore/extract"
	"github.com/forensicanalysis/ntfsstore/mft"
)

// Extract is the ntfsstore extract commandline subcommand
func Extract() *cobra.Command {
	var configPath, image, dir string
	var policy string
	flags := extract.Config{}

	extractCommand := &cobra.Command{
		Use:   "extract <store>",
		Short: "Extract $MFT, $LogFile and $UsnJrnl of an evidence into a case store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (image == "") == (dir == "") {
				return errors.New("requires either --image or --dir")
			}

			fs := afero.NewOsFs()
			config, err := extract.LoadConfig(fs, configPath)
			if err != nil {
				return err
			}
			flags.NamePolicy = mft.NamePolicy(policy)
			if err := mergo.Merge(config, flags, mergo.WithOverride); err != nil {
				return err
			}
			config.Fs = fs
			if err := config.Validate(); err != nil {
				return err
			}

			store, err := openOrCreate(args[0])
			if err != nil {
				return err
			}
			defer store.Close()
			store.BatchSize = config.BatchSize

			var partitions []extract.Partition
			if image != "" {
				img, err := extract.OpenImage(image, config.EvidenceID)
				if err != nil {
					return err
				}
				defer img.Close()
				partitions = img.Partitions
			} else {
				source := &extract.DirSource{Fs: fs, Dir: dir}
				partitions = []extract.Partition{extract.SinglePartition(config.EvidenceID, 0, source)}
			}

			registry, err := extract.NewRegistry(&extract.NTFSConnector{Sink: store})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			reports, err := registry.Run(ctx, partitions, config)
			for _, report := range reports {
				printReport(report)
			}
			return err
		},
	}

	extractCommand.Flags().StringVar(&configPath, "config", "", "yaml configuration file")
	extractCommand.Flags().StringVar(&image, "image", "", "raw disk or volume image")
	extractCommand.Flags().StringVar(&dir, "dir", "", "directory holding exported $MFT, $LogFile and $UsnJrnl_$J, searched recursively")
	extractCommand.Flags().StringVar(&flags.CaseID, "case", "", "case id")
	extractCommand.Flags().StringVar(&flags.EvidenceID, "evidence", "", "evidence id")
	extractCommand.Flags().StringVar(&flags.TempDir, "temp-dir", "", "workspace root (default <tmp>/ntfsstore)")
	extractCommand.Flags().IntVar(&flags.BatchSize, "batch-size", 0, "rows per transaction (default 1000)")
	extractCommand.Flags().IntVar(&flags.MaxPathDepth, "max-depth", 0, "maximum path depth (default 64)")
	extractCommand.Flags().IntVar(&flags.RecordSize, "record-size", 0, "MFT record size, detected if unset")
	extractCommand.Flags().StringVar(&policy, "name-policy", "", "links or primary (default links)")
	extractCommand.Flags().BoolVar(&flags.KeepSuspect, "keep-suspect", false, "keep records with failed fixups")
	extractCommand.Flags().BoolVar(&flags.ArchiveStreams, "archive", false, "keep a copy of the raw streams in the store")
	extractCommand.Flags().IntVar(&flags.Parallel, "parallel", 0, "partitions processed at once (default 1)")
	extractCommand.Flags().StringSliceVar(&flags.Connectors, "connectors", nil, "connector name filters (default *)")
	return extractCommand
}

func printReport(report *extract.Report) {
	stages := map[string]interface{}{}
	for _, stage := range report.Stages {
		s := map[string]interface{}{"rows": stage.Inserted}
		switch {
		case stage.Err != nil:
			s["error"] = stage.Err.Error()
		case stage.Skipped:
			s["skipped"] = stage.Reason
		}
		if stage.Corrupt > 0 {
			s["corrupt"] = stage.Corrupt
		}
		if stage.Truncated > 0 {
			s["truncated"] = stage.Truncated
		}
		stages[stage.Stage] = s
	}
	b, _ := json.Marshal(map[string]interface{}{
		"partition": report.Partition.Key,
		"state":     report.State.String(),
		"partial":   report.Partial(),
		"rows":      report.Rows(),
		"stages":    stages,
	})
	fmt.Printf("%s\n", b)
}
