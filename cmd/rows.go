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

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/ntfsstore"
)

// Query is the ntfsstore query commandline subcommand
func Query() *cobra.Command {
	var field string
	queryCommand := &cobra.Command{
		Use:   "query <sql> <store>",
		Short: "Run a sql query",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ntfsstore.Open(args[1])
			if err != nil {
				return err
			}
			defer store.Close()
			elements, err := store.Query(args[0])
			if err != nil {
				return err
			}
			return printElements(elements, field)
		},
	}
	queryCommand.Flags().StringVar(&field, "field", "", "print only this field of each row")
	return queryCommand
}

// Select is the ntfsstore select commandline subcommand
func Select() *cobra.Command {
	var field string
	var where []string
	selectCommand := &cobra.Command{
		Use:   "select <table> <store>",
		Short: "Retrieve the rows of a table",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE: func(cmd *cobra.Command, args []string) error {
			condition := map[string]string{}
			for _, w := range where {
				parts := strings.SplitN(w, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("condition %q is not column=pattern", w)
				}
				condition[parts[0]] = parts[1]
			}
			var conditions []map[string]string
			if len(condition) > 0 {
				conditions = append(conditions, condition)
			}

			store, err := ntfsstore.Open(args[1])
			if err != nil {
				return err
			}
			defer store.Close()
			elements, err := store.Select(args[0], conditions)
			if err != nil {
				return err
			}
			return printElements(elements, field)
		},
	}
	selectCommand.Flags().StringVar(&field, "field", "", "print only this field of each row")
	selectCommand.Flags().StringArrayVar(&where, "where", nil, "column=pattern, matched with LIKE")
	return selectCommand
}

func printElements(elements []ntfsstore.JSONElement, field string) error {
	if field != "" {
		for _, element := range elements {
			fmt.Println(gjson.GetBytes(element, field).String())
		}
		return nil
	}
	b, err := json.Marshal(elements)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", b)
	return nil
}
