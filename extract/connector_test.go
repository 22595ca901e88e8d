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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/ntfsstore/gostore"
	"github.com/forensicanalysis/ntfsstore/mft"
)

type fakeConnector struct {
	name string
	fail string

	mu      sync.Mutex
	seen    []string
	running int32
	peak    int32
}

func (c *fakeConnector) Name() string {
	return c.name
}

func (c *fakeConnector) Connect(ctx context.Context, p Partition, config *Config) (*Report, error) {
	running := atomic.AddInt32(&c.running, 1)
	defer atomic.AddInt32(&c.running, -1)
	c.mu.Lock()
	c.seen = append(c.seen, p.Key)
	if running > c.peak {
		c.peak = running
	}
	c.mu.Unlock()
	time.Sleep(10 * time.Millisecond)

	if p.Key == c.fail {
		return nil, errors.New("broken volume")
	}
	return &Report{Partition: p, State: Complete}, nil
}

func TestRegistry_Select(t *testing.T) {
	registry, err := NewRegistry(
		&fakeConnector{name: "ntfs_connector"},
		&fakeConnector{name: "ntfs_usn"},
		&fakeConnector{name: "ext4_connector"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"ext4_connector", "ntfs_connector", "ntfs_usn"}, registry.Names())

	tests := []struct {
		name     string
		patterns []string
		want     []string
		wantErr  bool
	}{
		{"all", []string{"*"}, []string{"ext4_connector", "ntfs_connector", "ntfs_usn"}, false},
		{"prefix", []string{"ntfs_*"}, []string{"ntfs_connector", "ntfs_usn"}, false},
		{"several", []string{"ext4_connector", "*_usn"}, []string{"ext4_connector", "ntfs_usn"}, false},
		{"none", []string{"fat*"}, nil, false},
		{"invalid", []string{"[ntfs"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connectors, err := registry.Select(tt.patterns)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, c := range connectors {
				names = append(names, c.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	_, err := NewRegistry(&fakeConnector{name: "a"}, &fakeConnector{name: "a"})
	assert.Error(t, err)
}

func TestRegistry_Run(t *testing.T) {
	connector := &fakeConnector{name: "fake", fail: "p2"}
	registry, err := NewRegistry(connector)
	require.NoError(t, err)

	var partitions []Partition
	for i := 1; i <= 4; i++ {
		partitions = append(partitions, NewPartition("ev", i, int64(i)<<20, 1<<20, &DirSource{}))
	}
	config := DefaultConfig()
	config.Parallel = 2

	reports, err := registry.Run(context.Background(), partitions, config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fake on p2: broken volume")

	require.Len(t, reports, 3)
	assert.Equal(t, "p1", reports[0].Partition.Key)
	assert.Equal(t, "p3", reports[1].Partition.Key)
	assert.Equal(t, "p4", reports[2].Partition.Key)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3", "p4"}, connector.seen)
	assert.LessOrEqual(t, connector.peak, int32(2))
}

func TestRegistry_RunNoMatch(t *testing.T) {
	registry, err := NewRegistry(&fakeConnector{name: "fake"})
	require.NoError(t, err)
	config := DefaultConfig()
	config.Connectors = []string{"other"}

	_, err = registry.Run(context.Background(), []Partition{{Key: "p1"}}, config)
	assert.Error(t, err)
}

func TestNTFSConnector(t *testing.T) {
	fs := evidence(t, allStreams())
	config, _ := testConfig(t, fs)
	sink := gostore.NewMemorySink()
	registry, err := NewRegistry(&NTFSConnector{Sink: sink})
	require.NoError(t, err)

	first := partition(fs)
	second := NewPartition("ev", 2, 0, 0, &DirSource{Fs: fs, Dir: evidenceDir})
	config.Parallel = 2

	reports, err := registry.Run(context.Background(), []Partition{first, second}, config)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, report := range reports {
		assert.Equal(t, Complete, report.State)
	}

	assert.Len(t, sink.Rows(mft.TableName), 6)
	assert.Len(t, sink.Partitions(), 2)
	assert.NotEqual(t, reports[0].Partition.ID, reports[1].Partition.ID)
}
