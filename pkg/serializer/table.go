// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serializer

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/NVIDIA/sysdiff/pkg/result"
)

// section is one block of aligned columns in table output.
type section struct {
	columns []string
	rows    [][]string
}

func (s section) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(s.columns, "\t"))
	for _, row := range s.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// encodeTable renders v for terminals. Capture results list their header,
// metrics and artifacts; other documents are flattened to FIELD/VALUE rows.
func encodeTable(v any) ([]byte, error) {
	var sections []section
	switch doc := v.(type) {
	case *result.Result:
		if doc != nil {
			sections = resultSections(doc)
		}
	case result.Result:
		sections = resultSections(&doc)
	default:
		if rows := flatten(v); len(rows) > 0 {
			sections = append(sections, section{columns: []string{"FIELD", "VALUE"}, rows: rows})
		}
	}
	if len(sections) == 0 {
		return []byte("<empty>\n"), nil
	}

	var buf bytes.Buffer
	for i, s := range sections {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := s.write(&buf); err != nil {
			return nil, fmt.Errorf("failed to render table: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func resultSections(res *result.Result) []section {
	summary := section{
		columns: []string{"FIELD", "VALUE"},
		rows: [][]string{
			{"kind", res.Kind.String()},
			{"apiVersion", res.APIVersion},
			{"runID", res.RunID},
		},
	}
	keys := make([]string, 0, len(res.Metadata))
	for k := range res.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		summary.rows = append(summary.rows, []string{"metadata." + k, res.Metadata[k]})
	}
	sections := []section{summary}

	if len(res.Metrics) > 0 {
		metrics := section{columns: []string{"METRIC", "VALUE", "UNIT"}}
		for _, m := range res.Metrics {
			metrics.rows = append(metrics.rows,
				[]string{m.Name, strconv.FormatFloat(m.Value, 'f', -1, 64), m.Unit})
		}
		sections = append(sections, metrics)
	}

	if len(res.Artifacts) > 0 {
		artifacts := section{columns: []string{"ARTIFACT", "KIND", "PATH"}}
		for _, a := range res.Artifacts {
			artifacts.rows = append(artifacts.rows, []string{a.Name, a.Kind, a.Path})
		}
		sections = append(sections, artifacts)
	}
	return sections
}

// flatten returns one FIELD/VALUE row per leaf of v, sorted by field.
// Nested fields are dot-joined and list elements are indexed as [i].
func flatten(v any) [][]string {
	var rows [][]string
	walk(reflect.ValueOf(v), "", func(field string, leaf any) {
		rows = append(rows, []string{field, fmt.Sprint(leaf)})
	})
	slices.SortFunc(rows, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	return rows
}

func walk(v reflect.Value, field string, emit func(string, any)) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			if field != "" {
				emit(field, nil)
			}
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}

	//nolint:exhaustive // scalars and everything else print as leaves
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range v.NumField() {
			if f := t.Field(i); f.IsExported() {
				walk(v.Field(i), child(field, f.Name), emit)
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			walk(iter.Value(), child(field, fmt.Sprint(iter.Key().Interface())), emit)
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			walk(v.Index(i), child(field, "["+strconv.Itoa(i)+"]"), emit)
		}
	default:
		if field == "" {
			field = "value"
		}
		emit(field, v.Interface())
	}
}

func child(parent, name string) string {
	switch {
	case parent == "":
		return name
	case name == "":
		return parent
	default:
		return parent + "." + name
	}
}
