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

package ntfs

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// SectorSize is the stride of the update sequence array.
const SectorSize = 512

// ApplyFixup restores the last two bytes of every sector of buf from the
// update sequence array located at usaOffset. usaCount includes the update
// sequence number itself.
//
// A sector whose trailer does not carry the update sequence number is left
// untouched and reported with ErrFixupMismatch after all other sectors have
// been restored.
func ApplyFixup(buf []byte, usaOffset, usaCount int) error {
	if usaCount == 0 {
		return nil
	}
	if usaOffset+2*usaCount > len(buf) {
		return corrupt("update sequence array at %d (%d entries) exceeds %d bytes", usaOffset, usaCount, len(buf))
	}
	if (usaCount-1)*SectorSize > len(buf) {
		return corrupt("update sequence array covers %d sectors, buffer holds %d bytes", usaCount-1, len(buf))
	}

	usn := buf[usaOffset : usaOffset+2]
	var mismatched []int
	for i := 1; i < usaCount; i++ {
		end := i*SectorSize - 2
		if buf[end] != usn[0] || buf[end+1] != usn[1] {
			mismatched = append(mismatched, i-1)
			continue
		}
		buf[end] = buf[usaOffset+2*i]
		buf[end+1] = buf[usaOffset+2*i+1]
	}

	if len(mismatched) > 0 {
		return errors.Wrapf(ErrFixupMismatch, "usn %#04x, sectors %v",
			binary.LittleEndian.Uint16(usn), mismatched)
	}
	return nil
}
