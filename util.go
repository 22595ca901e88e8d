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
	"fmt"
	"reflect"
	"strings"

	"crawshaw.io/sqlite"
	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"github.com/stoewer/go-strcase"
)

// column is a single table column derived from a row struct field.
type column struct {
	name    string
	sqlType string
	kind    reflect.Kind
}

// columns derives the ordered columns of a row struct. Nested structs are
// expanded in place, the same way structs.Values flattens them.
func columns(prototype interface{}) ([]column, error) {
	if !structs.IsStruct(prototype) {
		return nil, fmt.Errorf("prototype %T is not a struct", prototype)
	}
	return fieldColumns(structs.New(prototype).Fields())
}

func fieldColumns(fields []*structs.Field) ([]column, error) {
	var cols []column
	for _, field := range fields {
		if !field.IsExported() {
			continue
		}
		if field.Kind() == reflect.Struct {
			nested, err := fieldColumns(field.Fields())
			if err != nil {
				return nil, err
			}
			cols = append(cols, nested...)
			continue
		}

		sqlType, err := columnType(field)
		if err != nil {
			return nil, err
		}
		cols = append(cols, column{name: columnName(field), sqlType: sqlType, kind: field.Kind()})
	}
	return cols, nil
}

func columnName(field *structs.Field) string {
	name := strings.Split(field.Tag("structs"), ",")[0]
	if name != "" {
		return name
	}
	return strcase.SnakeCase(field.Name())
}

func columnType(field *structs.Field) (string, error) {
	switch field.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER", nil
	case reflect.Float32, reflect.Float64:
		return "REAL", nil
	case reflect.String:
		return "TEXT", nil
	case reflect.Slice:
		if reflect.TypeOf(field.Value()).Elem().Kind() == reflect.Uint8 {
			return "BLOB", nil
		}
	}
	return "", fmt.Errorf("field %s has unsupported type %s", field.Name(), field.Kind())
}

// bind sets the parameters of stmt to the field values of row.
func bind(stmt *sqlite.Stmt, cols []column, row interface{}) error {
	if !structs.IsStruct(row) {
		return fmt.Errorf("row %T is not a struct", row)
	}
	values := structs.Values(row)
	if len(values) != len(cols) {
		return fmt.Errorf("row %T has %d values, table has %d columns", row, len(values), len(cols))
	}
	for i, value := range values {
		if err := bindValue(stmt, i+1, value); err != nil {
			return errors.Wrapf(err, "column %s", cols[i].name)
		}
	}
	return nil
}

func bindValue(stmt *sqlite.Stmt, param int, value interface{}) error {
	switch v := value.(type) {
	case string:
		stmt.BindText(param, v)
	case bool:
		stmt.BindBool(param, v)
	case int:
		stmt.BindInt64(param, int64(v))
	case int8:
		stmt.BindInt64(param, int64(v))
	case int16:
		stmt.BindInt64(param, int64(v))
	case int32:
		stmt.BindInt64(param, int64(v))
	case int64:
		stmt.BindInt64(param, v)
	case uint8:
		stmt.BindInt64(param, int64(v))
	case uint16:
		stmt.BindInt64(param, int64(v))
	case uint32:
		stmt.BindInt64(param, int64(v))
	case uint64:
		// sqlite integers are signed, values above 2^63 wrap
		stmt.BindInt64(param, int64(v))
	case float32:
		stmt.BindFloat(param, float64(v))
	case float64:
		stmt.BindFloat(param, v)
	case []byte:
		if v == nil {
			stmt.BindNull(param)
		} else {
			stmt.BindBytes(param, v)
		}
	default:
		return fmt.Errorf("unsupported value %T", value)
	}
	return nil
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
