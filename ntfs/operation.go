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
	"fmt"
)

// LogOperation is a redo or undo operation code of an NTFS log record.
type LogOperation uint16

// Log operations.
const (
	OpNoop                              LogOperation = 0x00
	OpCompensationLogRecord             LogOperation = 0x01
	OpInitializeFileRecordSegment       LogOperation = 0x02
	OpDeallocateFileRecordSegment       LogOperation = 0x03
	OpWriteEndOfFileRecordSegment       LogOperation = 0x04
	OpCreateAttribute                   LogOperation = 0x05
	OpDeleteAttribute                   LogOperation = 0x06
	OpUpdateResidentValue               LogOperation = 0x07
	OpUpdateNonresidentValue            LogOperation = 0x08
	OpUpdateMappingPairs                LogOperation = 0x09
	OpDeleteDirtyClusters               LogOperation = 0x0A
	OpSetNewAttributeSizes              LogOperation = 0x0B
	OpAddIndexEntryRoot                 LogOperation = 0x0C
	OpDeleteIndexEntryRoot              LogOperation = 0x0D
	OpAddIndexEntryAllocation           LogOperation = 0x0E
	OpDeleteIndexEntryAllocation        LogOperation = 0x0F
	OpWriteEndOfIndexBuffer             LogOperation = 0x10
	OpSetIndexEntryVCNRoot              LogOperation = 0x11
	OpSetIndexEntryVCNAllocation        LogOperation = 0x12
	OpUpdateFileNameRoot                LogOperation = 0x13
	OpUpdateFileNameAllocation          LogOperation = 0x14
	OpSetBitsInNonresidentBitMap        LogOperation = 0x15
	OpClearBitsInNonresidentBitMap      LogOperation = 0x16
	OpHotFix                            LogOperation = 0x17
	OpEndTopLevelAction                 LogOperation = 0x18
	OpPrepareTransaction                LogOperation = 0x19
	OpCommitTransaction                 LogOperation = 0x1A
	OpForgetTransaction                 LogOperation = 0x1B
	OpOpenNonresidentAttribute          LogOperation = 0x1C
	OpOpenAttributeTableDump            LogOperation = 0x1D
	OpAttributeNamesDump                LogOperation = 0x1E
	OpDirtyPageTableDump                LogOperation = 0x1F
	OpTransactionTableDump              LogOperation = 0x20
	OpUpdateRecordDataRoot              LogOperation = 0x21
	OpUpdateRecordDataAllocation        LogOperation = 0x22
	OpUpdateRelativeDataInIndex         LogOperation = 0x23
	OpUpdateRelativeDataInIndex2        LogOperation = 0x24
	OpZeroEndOfFileRecord               LogOperation = 0x25
	OpCompensationLogRecordForUpdateSeq LogOperation = 0x26
)

var operationNames = [...]string{
	"Noop",
	"CompensationLogRecord",
	"InitializeFileRecordSegment",
	"DeallocateFileRecordSegment",
	"WriteEndOfFileRecordSegment",
	"CreateAttribute",
	"DeleteAttribute",
	"UpdateResidentValue",
	"UpdateNonresidentValue",
	"UpdateMappingPairs",
	"DeleteDirtyClusters",
	"SetNewAttributeSizes",
	"AddIndexEntryRoot",
	"DeleteIndexEntryRoot",
	"AddIndexEntryAllocation",
	"DeleteIndexEntryAllocation",
	"WriteEndOfIndexBuffer",
	"SetIndexEntryVcnRoot",
	"SetIndexEntryVcnAllocation",
	"UpdateFileNameRoot",
	"UpdateFileNameAllocation",
	"SetBitsInNonresidentBitMap",
	"ClearBitsInNonresidentBitMap",
	"HotFix",
	"EndTopLevelAction",
	"PrepareTransaction",
	"CommitTransaction",
	"ForgetTransaction",
	"OpenNonresidentAttribute",
	"OpenAttributeTableDump",
	"AttributeNamesDump",
	"DirtyPageTableDump",
	"TransactionTableDump",
	"UpdateRecordDataRoot",
	"UpdateRecordDataAllocation",
	"UpdateRelativeDataInIndex",
	"UpdateRelativeDataInIndex2",
	"ZeroEndOfFileRecord",
	"CompensationLogRecordForUpdateSeq",
}

func (op LogOperation) String() string {
	if int(op) < len(operationNames) {
		return operationNames[op]
	}
	return fmt.Sprintf("Unknown(0x%02X)", uint16(op))
}

// TargetsFileRecord reports whether the operation modifies a FILE record, so
// that the target VCN of the record addresses an MFT slot. Index operations on
// $INDEX_ROOT live inside the directory's FILE record, the *Allocation ones
// address $INDEX_ALLOCATION buffers instead.
func (op LogOperation) TargetsFileRecord() bool {
	switch op {
	case OpInitializeFileRecordSegment, OpDeallocateFileRecordSegment,
		OpWriteEndOfFileRecordSegment, OpCreateAttribute, OpDeleteAttribute,
		OpUpdateResidentValue, OpUpdateMappingPairs, OpSetNewAttributeSizes,
		OpZeroEndOfFileRecord:
		return true
	case OpAddIndexEntryRoot, OpDeleteIndexEntryRoot, OpSetIndexEntryVCNRoot,
		OpUpdateFileNameRoot, OpUpdateRecordDataRoot, OpUpdateRelativeDataInIndex:
		return true
	}
	return false
}
