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
	"github.com/pkg/errors"
)

// Decoding failures are classified so callers can decide whether to skip a
// unit, count it or stop a scan.
var (
	// ErrTruncated is returned when the input ends before the declared size
	// of a structure.
	ErrTruncated = errors.New("truncated input")
	// ErrCorrupt is returned for structures with a valid size but a bad
	// signature or impossible internal offsets.
	ErrCorrupt = errors.New("corrupt record")
	// ErrFixupMismatch marks a structure whose update sequence array did not
	// match at least one sector. The structure is still decoded.
	ErrFixupMismatch = errors.New("update sequence mismatch")
	// ErrEmpty is returned for zero filled or never used slots.
	ErrEmpty = errors.New("empty record")
	// ErrUnsupported is returned for structure versions that are recognized
	// but not decoded.
	ErrUnsupported = errors.New("unsupported version")
)

// IsTruncated reports whether err was caused by truncated input.
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncated)
}

// IsCorrupt reports whether err was caused by a corrupt structure, including
// update sequence mismatches.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt) || errors.Is(err, ErrFixupMismatch)
}

func truncated(format string, args ...interface{}) error {
	return errors.Wrapf(ErrTruncated, format, args...)
}

func corrupt(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorrupt, format, args...)
}
