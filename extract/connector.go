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
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/forensicanalysis/ntfsstore/gostore"
)

// Connector extracts one kind of artifact from a partition.
type Connector interface {
	Name() string
	Connect(ctx context.Context, p Partition, config *Config) (*Report, error)
}

// NTFSConnector writes the NTFS metadata of a partition into Sink.
type NTFSConnector struct {
	Sink gostore.Sink
}

func (c *NTFSConnector) Name() string {
	return "ntfs_connector"
}

func (c *NTFSConnector) Connect(ctx context.Context, p Partition, config *Config) (*Report, error) {
	return NewExtraction(p, c.Sink, config).Run(ctx)
}

// Registry maps connector names to connectors.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry creates a registry holding connectors.
func NewRegistry(connectors ...Connector) (*Registry, error) {
	r := &Registry{connectors: map[string]Connector{}}
	for _, c := range connectors {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a connector. Names must be unique.
func (r *Registry) Register(c Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connectors[c.Name()]; ok {
		return fmt.Errorf("connector %s already registered", c.Name())
	}
	r.connectors[c.Name()] = c
	return nil
}

// Names returns the sorted names of all connectors.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the connectors whose name matches any of the glob
// patterns, sorted by name.
func (r *Registry) Select(patterns []string) ([]Connector, error) {
	var globs []glob.Glob
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid connector filter %q", pattern)
		}
		globs = append(globs, g)
	}

	var selected []Connector
	for _, name := range r.Names() {
		for _, g := range globs {
			if g.Match(name) {
				r.mu.RLock()
				selected = append(selected, r.connectors[name])
				r.mu.RUnlock()
				break
			}
		}
	}
	return selected, nil
}

// Run connects the selected connectors to every partition. At most
// config.Parallel connections run at the same time. A failing connection
// does not stop the others; all reports are returned in partition order.
func (r *Registry) Run(ctx context.Context, partitions []Partition, config *Config) ([]*Report, error) {
	connectors, err := r.Select(config.Connectors)
	if err != nil {
		return nil, err
	}
	if len(connectors) == 0 {
		return nil, fmt.Errorf("no connector matches %s", strings.Join(config.Connectors, ", "))
	}

	parallel := config.Parallel
	if parallel < 1 {
		parallel = 1
	}

	type job struct {
		index     int
		partition Partition
		connector Connector
	}
	var jobs []job
	for _, p := range partitions {
		for _, c := range connectors {
			jobs = append(jobs, job{index: len(jobs), partition: p, connector: c})
		}
	}

	reports := make([]*Report, len(jobs))
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[j.index], errs[j.index] = j.connector.Connect(ctx, j.partition, config)
		}(j)
	}
	wg.Wait()

	var failed []string
	var collected []*Report
	for i, j := range jobs {
		if reports[i] != nil {
			collected = append(collected, reports[i])
		}
		if errs[i] != nil {
			failed = append(failed, fmt.Sprintf("%s on %s: %s", j.connector.Name(), j.partition.Key, errs[i]))
		}
	}
	if len(failed) > 0 {
		return collected, errors.New(strings.Join(failed, "; "))
	}
	return collected, nil
}
