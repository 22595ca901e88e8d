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

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// partitionNamespace derives partition ids from evidence id and key.
var partitionNamespace = uuid.MustParse("6e746673-0000-4000-8000-706172746964")

// Partition is one addressable volume of an evidence image. A volume
// without partition table is a single partition covering the whole image.
type Partition struct {
	Key    string
	ID     string
	Index  int
	Offset int64
	Size   int64
	Single bool
	Source Source
}

// NewPartition creates a partition with a deterministic id.
func NewPartition(evidenceID string, index int, offset, size int64, source Source) Partition {
	key := fmt.Sprintf("p%d", index)
	return Partition{
		Key:    key,
		ID:     uuid.NewSHA1(partitionNamespace, []byte(evidenceID+"/"+key)).String(),
		Index:  index,
		Offset: offset,
		Size:   size,
		Source: source,
	}
}

// SinglePartition is the partition of a volume without partition table.
func SinglePartition(evidenceID string, size int64, source Source) Partition {
	p := NewPartition(evidenceID, 1, 0, size, source)
	p.Single = true
	return p
}

type extent interface {
	GetStart() int64
	GetSize() int64
}

// layout numbers the used entries of a partition table from 1, skipping
// empty entries.
func layout(evidenceID string, extents []extent, diskSize int64) []Partition {
	var partitions []Partition
	for _, e := range extents {
		if e.GetSize() <= 0 || e.GetStart() < 0 || e.GetStart() >= diskSize {
			continue
		}
		size := e.GetSize()
		if e.GetStart()+size > diskSize {
			size = diskSize - e.GetStart()
		}
		partitions = append(partitions, NewPartition(evidenceID, len(partitions)+1, e.GetStart(), size, nil))
	}
	return partitions
}

// Image is an opened evidence image and its partitions.
type Image struct {
	file       *os.File
	Partitions []Partition
}

// OpenImage reads the partition table of a raw disk image. Images without
// a partition table are treated as a single NTFS volume.
func OpenImage(path, evidenceID string) (*Image, error) {
	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, errors.Wrapf(err, "could not open image %s", path)
	}
	size := d.Size

	var partitions []Partition
	table, err := d.GetPartitionTable()
	if err != nil {
		logrus.WithField("image", path).Debugf("no partition table: %s", err)
	} else {
		var extents []extent
		for _, p := range table.GetPartitions() {
			extents = append(extents, p)
		}
		partitions = layout(evidenceID, extents, size)
	}
	if err := d.Close(); err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec
	if err != nil {
		return nil, err
	}

	if len(partitions) == 0 {
		partitions = []Partition{SinglePartition(evidenceID, size, nil)}
	}
	for i := range partitions {
		partitions[i].Source = NewImageSource(f, partitions[i].Offset, partitions[i].Size)
	}
	return &Image{file: f, Partitions: partitions}, nil
}

// Close closes the image file.
func (i *Image) Close() error {
	return i.file.Close()
}
