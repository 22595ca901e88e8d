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

package mft

import (
	"strings"

	"github.com/forensicanalysis/ntfsstore/ntfs"
)

// DefaultMaxDepth bounds the number of path components walked per lookup.
const DefaultMaxDepth = 64

// Reason tells why a path could not be reconstructed up to the root.
type Reason int

// Path reconstruction results.
const (
	Complete Reason = iota
	Unresolved
	Stale
	Cycle
	DepthExceeded
)

var reasonNames = map[Reason]string{
	Complete:      "complete",
	Unresolved:    "unresolved",
	Stale:         "stale",
	Cycle:         "cycle",
	DepthExceeded: "depth_exceeded",
}

var reasonMarkers = map[Reason]string{
	Unresolved:    "<Unresolved>",
	Stale:         "<Stale>",
	Cycle:         "<Cycle>",
	DepthExceeded: "<DepthExceeded>",
}

func (r Reason) String() string {
	return reasonNames[r]
}

// Marker is the placeholder that replaces the missing part of a degraded
// path.
func (r Reason) Marker() string {
	return reasonMarkers[r]
}

// Path is a reconstructed path. For degraded paths Names holds the
// components that could be resolved below the break.
type Path struct {
	Names  []string
	Reason Reason
}

// Degraded reports whether the path does not reach the root.
func (p Path) Degraded() bool {
	return p.Reason != Complete
}

func (p Path) String() string {
	joined := strings.Join(p.Names, "/")
	if !p.Degraded() {
		return "/" + joined
	}
	if joined == "" {
		return p.Reason.Marker()
	}
	return p.Reason.Marker() + "/" + joined
}

// Reconstructor builds full paths from the parent references of a Table.
// Complete paths are memoized. It is safe for concurrent use.
type Reconstructor struct {
	table    *Table
	maxDepth int
	cache    *pathMap
}

// NewReconstructor creates a reconstructor for table. A maxDepth below one
// selects DefaultMaxDepth.
func NewReconstructor(table *Table, maxDepth int) *Reconstructor {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Reconstructor{table: table, maxDepth: maxDepth, cache: newPathMap()}
}

// Resolve returns the path of the primary name of ref. The root directory
// resolves to "/".
func (r *Reconstructor) Resolve(ref ntfs.FileReference) Path {
	if ref.IsRoot() {
		return Path{}
	}
	rec, status := r.table.Lookup(ref)
	switch {
	case rec == nil || rec.PrimaryName() == nil:
		return Path{Reason: Unresolved}
	case status == ntfs.Stale:
		return Path{Reason: Stale}
	}
	if names, ok := r.cache.load(rec.Reference); ok {
		return Path{Names: names}
	}

	p := r.walk(rec.Reference.RecordNumber, true, rec.Name(), rec.Parent())
	if !p.Degraded() {
		r.cache.store(rec.Reference, p.Names)
	}
	return p
}

// ResolveLink returns the path of name within the directory parent. It is
// used for secondary hard links and for journal entries that carry their
// own name.
func (r *Reconstructor) ResolveLink(parent ntfs.FileReference, name string) Path {
	return r.walk(0, false, name, parent)
}

func (r *Reconstructor) walk(self uint64, hasSelf bool, name string, parent ntfs.FileReference) Path {
	reversed := []string{name}
	visited := map[uint64]bool{}
	if hasSelf {
		visited[self] = true
	}
	var chain []*FileRecord
	var prefix []string

	reason := Complete
	cur := parent
	for !cur.IsRoot() {
		if names, ok := r.cache.load(cur); ok {
			prefix = names
			break
		}
		if len(reversed) >= r.maxDepth {
			reason = DepthExceeded
			break
		}
		if visited[cur.RecordNumber] {
			reason = Cycle
			break
		}
		rec, status := r.table.Lookup(cur)
		if rec == nil || rec.PrimaryName() == nil {
			reason = Unresolved
			break
		}
		if status == ntfs.Stale {
			reason = Stale
			break
		}
		visited[cur.RecordNumber] = true
		chain = append(chain, rec)
		reversed = append(reversed, rec.Name())
		cur = rec.Parent()
	}

	names := make([]string, 0, len(prefix)+len(reversed))
	names = append(names, prefix...)
	for i := len(reversed) - 1; i >= 0; i-- {
		names = append(names, reversed[i])
	}

	if reason == Complete {
		for i, ancestor := range chain {
			n := len(prefix) + len(chain) - i
			r.cache.store(ancestor.Reference, names[:n:n])
		}
	}
	return Path{Names: names, Reason: reason}
}
