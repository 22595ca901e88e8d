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
	"fmt"
	"os"
	"path/filepath"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/forensicanalysis/ntfsstore/mft"
)

// Config holds the settings of an extraction run.
type Config struct {
	CaseID     string `yaml:"case_id"`
	EvidenceID string `yaml:"evidence_id"`

	// TempDir is the root of the per-stage workspaces.
	TempDir      string         `yaml:"temp_dir"`
	BatchSize    int            `yaml:"batch_size"`
	MaxPathDepth int            `yaml:"max_path_depth"`
	RecordSize   int            `yaml:"record_size"`
	ClusterSize  int            `yaml:"cluster_size"`
	NamePolicy   mft.NamePolicy `yaml:"name_policy"`
	KeepSuspect  bool           `yaml:"keep_suspect"`

	// SpoolSize is the number of bytes of a stream kept in memory before
	// it is moved into the workspace.
	SpoolSize int64 `yaml:"spool_size"`
	// MirrorRecords is the number of leading records compared against
	// $MFTMirr.
	MirrorRecords int `yaml:"mirror_records"`
	// ArchiveStreams keeps a copy of every fetched stream in sinks that
	// implement gostore.Archiver.
	ArchiveStreams bool     `yaml:"archive_streams"`
	Parallel       int      `yaml:"parallel"`
	Connectors     []string `yaml:"connectors"`

	Fs     afero.Fs           `yaml:"-"`
	Logger logrus.FieldLogger `yaml:"-"`
}

// DefaultConfig returns the settings used for every value not configured.
func DefaultConfig() *Config {
	return &Config{
		TempDir:       filepath.Join(os.TempDir(), "ntfsstore"),
		BatchSize:     1000,
		MaxPathDepth:  mft.DefaultMaxDepth,
		ClusterSize:   4096,
		NamePolicy:    mft.NamePolicyLinks,
		SpoolSize:     64 << 20,
		MirrorRecords: 4,
		Parallel:      1,
		Connectors:    []string{"*"},
	}
}

// LoadConfig reads a yaml configuration from fs and fills all unset values
// from DefaultConfig. An empty path returns the defaults.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	config := &Config{}
	if path != "" {
		b, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read config %s", path)
		}
		if err := yaml.Unmarshal(b, config); err != nil {
			return nil, errors.Wrapf(err, "could not parse config %s", path)
		}
	}
	if err := config.Complete(); err != nil {
		return nil, err
	}
	return config, nil
}

// Complete fills unset values from DefaultConfig.
func (c *Config) Complete() error {
	return mergo.Merge(c, DefaultConfig())
}

// Validate checks the values that have no usable default.
func (c *Config) Validate() error {
	if c.CaseID == "" || c.EvidenceID == "" {
		return errors.New("case id and evidence id are required")
	}
	switch c.NamePolicy {
	case mft.NamePolicyLinks, mft.NamePolicyPrimary:
	default:
		return fmt.Errorf("unknown name policy %q", c.NamePolicy)
	}
	if c.RecordSize != 0 && c.RecordSize != 1024 && c.RecordSize != 2048 && c.RecordSize != 4096 {
		return fmt.Errorf("unsupported record size %d", c.RecordSize)
	}
	return nil
}

func (c *Config) fs() afero.Fs {
	if c.Fs == nil {
		return afero.NewOsFs()
	}
	return c.Fs
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
