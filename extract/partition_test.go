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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtent struct {
	start, size int64
}

func (e fakeExtent) GetStart() int64 { return e.start }
func (e fakeExtent) GetSize() int64  { return e.size }

func TestLayout(t *testing.T) {
	extents := []extent{
		fakeExtent{start: 1 << 20, size: 100 << 20},
		fakeExtent{},
		fakeExtent{start: 101 << 20, size: 100 << 20},
		fakeExtent{start: 500 << 20, size: 1 << 20},
	}

	partitions := layout("disk01", extents, 150<<20)
	require.Len(t, partitions, 2)

	assert.Equal(t, "p1", partitions[0].Key)
	assert.Equal(t, int64(1<<20), partitions[0].Offset)
	assert.Equal(t, int64(100<<20), partitions[0].Size)

	// the second entry is empty, the fourth lies beyond the image
	assert.Equal(t, "p2", partitions[1].Key)
	assert.Equal(t, 2, partitions[1].Index)
	assert.Equal(t, int64(101<<20), partitions[1].Offset)
	assert.Equal(t, int64(49<<20), partitions[1].Size)
	assert.False(t, partitions[1].Single)
}

func TestNewPartition(t *testing.T) {
	a := NewPartition("disk01", 1, 0, 10, nil)
	b := NewPartition("disk01", 1, 512, 10, nil)
	c := NewPartition("disk02", 1, 0, 10, nil)
	d := NewPartition("disk01", 2, 0, 10, nil)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.NotEqual(t, a.ID, d.ID)
	assert.Len(t, a.ID, 36)

	single := SinglePartition("disk01", 10, nil)
	assert.True(t, single.Single)
	assert.Equal(t, a.ID, single.ID)
	assert.Equal(t, "p1", single.Key)
}
