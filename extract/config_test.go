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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/ntfsstore/mft"
)

func TestLoadConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ntfsstore.yml", []byte(`case_id: case
evidence_id: disk01
batch_size: 10
name_policy: primary
keep_suspect: true
connectors: [ntfs*]
`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/broken.yml", []byte("batch_size: [1"), 0644))

	config, err := LoadConfig(fs, "/ntfsstore.yml")
	require.NoError(t, err)
	assert.Equal(t, "case", config.CaseID)
	assert.Equal(t, "disk01", config.EvidenceID)
	assert.Equal(t, 10, config.BatchSize)
	assert.Equal(t, mft.NamePolicyPrimary, config.NamePolicy)
	assert.True(t, config.KeepSuspect)
	assert.Equal(t, []string{"ntfs*"}, config.Connectors)

	// defaults
	assert.Equal(t, mft.DefaultMaxDepth, config.MaxPathDepth)
	assert.Equal(t, 4096, config.ClusterSize)
	assert.Equal(t, 1, config.Parallel)
	assert.Equal(t, 4, config.MirrorRecords)
	assert.NoError(t, config.Validate())

	config, err = LoadConfig(fs, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BatchSize, config.BatchSize)

	_, err = LoadConfig(fs, "/missing.yml")
	assert.Error(t, err)
	_, err = LoadConfig(fs, "/broken.yml")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"record size", func(c *Config) { c.RecordSize = 2048 }, false},
		{"no case", func(c *Config) { c.CaseID = "" }, true},
		{"no evidence", func(c *Config) { c.EvidenceID = "" }, true},
		{"bad policy", func(c *Config) { c.NamePolicy = "all" }, true},
		{"bad record size", func(c *Config) { c.RecordSize = 1000 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.CaseID = "case"
			config.EvidenceID = "ev"
			tt.modify(config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
