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
	"encoding/hex"
	"encoding/json"

	"crawshaw.io/sqlite"
)

// JSONElement is a single selected row encoded as a JSON object.
type JSONElement []byte

// Element is a decoded JSONElement.
type Element map[string]interface{}

// Decode unmarshals the element.
func (e JSONElement) Decode() (Element, error) {
	element := Element{}
	return element, json.Unmarshal(e, &element)
}

// rowsToElements steps through stmt and finalizes it. Blobs are hex
// encoded.
func rowsToElements(stmt *sqlite.Stmt) (elements []JSONElement, err error) {
	elements = []JSONElement{}
	for {
		if hasRow, err := stmt.Step(); err != nil {
			_ = stmt.Finalize()
			return nil, err
		} else if !hasRow {
			break
		}

		element := Element{}
		for i := 0; i < stmt.ColumnCount(); i++ {
			element[stmt.ColumnName(i)] = columnValue(stmt, i)
		}
		b, err := json.Marshal(element)
		if err != nil {
			_ = stmt.Finalize()
			return nil, err
		}
		elements = append(elements, b)
	}
	return elements, stmt.Finalize()
}

func columnValue(stmt *sqlite.Stmt, col int) interface{} {
	switch stmt.ColumnType(col) {
	case sqlite.SQLITE_INTEGER:
		return stmt.ColumnInt64(col)
	case sqlite.SQLITE_FLOAT:
		return stmt.ColumnFloat(col)
	case sqlite.SQLITE_TEXT:
		return stmt.ColumnText(col)
	case sqlite.SQLITE_BLOB:
		buf := make([]byte, stmt.ColumnLen(col))
		stmt.ColumnBytes(col, buf)
		return hex.EncodeToString(buf)
	}
	return nil
}

// MarshalJSON embeds the element as is.
func (e JSONElement) MarshalJSON() ([]byte, error) {
	return json.RawMessage(e).MarshalJSON()
}
