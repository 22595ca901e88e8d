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

package ntfsstore

import (
	"sort"
	"sync"

	"github.com/qri-io/jsonschema"
)

// table is a declared row table.
type table struct {
	name    string
	columns []column
	insert  string
	schema  *jsonschema.Schema
}

type tableMap struct {
	sync.RWMutex
	tables map[string]*table
}

func newTableMap() *tableMap {
	return &tableMap{
		tables: map[string]*table{},
	}
}

func (tm *tableMap) load(name string) (*table, bool) {
	tm.RLock()
	defer tm.RUnlock()
	t, ok := tm.tables[name]
	return t, ok
}

func (tm *tableMap) store(t *table) {
	tm.Lock()
	tm.tables[t.name] = t
	tm.Unlock()
}

func (tm *tableMap) names() []string {
	tm.RLock()
	defer tm.RUnlock()
	var names []string
	for name := range tm.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
