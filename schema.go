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
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
	"github.com/qri-io/jsonschema"
)

var keyColumns = []string{"partition_id", "case_id", "evidence_id"}

// constraints narrows the generated schema of single columns.
var constraints = map[string]map[string]map[string]interface{}{
	PartitionTableName: {
		"state": {"type": "string", "enum": []string{"complete", "partial"}},
	},
}

// tableSchema builds the JSON schema a row of the table must satisfy when
// selected from the database.
func tableSchema(name string, cols []column) (*jsonschema.Schema, error) {
	properties := map[string]interface{}{}
	for _, col := range cols {
		properties[col.name] = columnSchema(col)
	}
	for _, key := range keyColumns {
		properties[key] = map[string]interface{}{"type": "string", "minLength": 1}
	}
	for col, constraint := range constraints[name] {
		properties[col] = constraint
	}

	b, err := json.Marshal(map[string]interface{}{
		"title":      name,
		"type":       "object",
		"properties": properties,
		"required":   keyColumns,
	})
	if err != nil {
		return nil, err
	}

	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(b, schema); err != nil {
		return nil, errors.Wrapf(err, "unmarshal error %s", name)
	}
	return schema, nil
}

func columnSchema(col column) map[string]interface{} {
	switch {
	case col.kind == reflect.Bool:
		return map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 1}
	case col.sqlType == "INTEGER":
		return map[string]interface{}{"type": "integer"}
	case col.sqlType == "REAL":
		return map[string]interface{}{"type": "number"}
	case col.sqlType == "BLOB":
		return map[string]interface{}{"type": []string{"string", "null"}}
	}
	return map[string]interface{}{"type": "string"}
}
