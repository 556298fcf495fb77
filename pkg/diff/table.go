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

package diff

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

// InsertedMarker leads a row present only in the after table.
const InsertedMarker = ">"

// maxTableLine bounds a single table line.
const maxTableLine = 1 << 20

// Row is one rendered table row. For data rows the first field is the
// marker ("" or InsertedMarker) and the second is the row key.
type Row []string

// rowCursor walks the non-blank rows of a whitespace separated table.
type rowCursor struct {
	sc   *bufio.Scanner
	err  error
	done bool
}

func newRowCursor(r io.Reader) *rowCursor {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTableLine)
	return &rowCursor{sc: sc}
}

// next returns the fields of the next non-blank line, or false once the
// input is exhausted.
func (c *rowCursor) next() ([]string, bool) {
	for !c.done {
		if !c.sc.Scan() {
			c.done = true
			c.err = c.sc.Err()
			break
		}
		if fields := strings.Fields(c.sc.Text()); len(fields) > 0 {
			return fields, true
		}
	}
	return nil, false
}

// Table aligns the rows of after with the rows of before by their first
// field. Rows with a matching key are diffed column by column; rows that only
// exist in after are emitted verbatim behind InsertedMarker. When after runs
// out before every before row was matched the remaining before rows are
// dropped and logged.
//
// The first emitted row is treated as the header and gains a leading empty
// field. Fields of a data row beyond the header width are free text (e.g. the
// interrupt chip and name) and are joined into a single trailing field.
func Table(before, after io.Reader, opts ...Option) ([]Row, error) {
	o := newOptions(opts)
	bc := newRowCursor(before)
	ac := newRowCursor(after)

	var rows []Row
	var dropped []string

	for {
		b, ok := bc.next()
		if !ok {
			break
		}

		matched := false
		for !matched {
			a, ok := ac.next()
			if !ok {
				break
			}
			if a[0] == b[0] {
				rows = append(rows, diffRow(b, a, o.tokenDiff))
				matched = true
				continue
			}
			rows = append(rows, append(Row{InsertedMarker}, a...))
		}

		if !matched {
			dropped = append(dropped, b[0])
			for rest, ok := bc.next(); ok; rest, ok = bc.next() {
				dropped = append(dropped, rest[0])
			}
			break
		}
	}

	if bc.err != nil {
		return nil, fmt.Errorf("failed to read before table: %w", bc.err)
	}
	if ac.err != nil {
		return nil, fmt.Errorf("failed to read after table: %w", ac.err)
	}
	if len(dropped) > 0 {
		slog.Warn("before rows without a match in after table were dropped",
			"count", len(dropped), "keys", dropped)
	}

	return alignRows(rows), nil
}

// TableFiles runs Table over two files.
func TableFiles(beforePath, afterPath string, opts ...Option) ([]Row, error) {
	bf, err := os.Open(beforePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", beforePath, err)
	}
	defer bf.Close()

	af, err := os.Open(afterPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", afterPath, err)
	}
	defer af.Close()

	return Table(bf, af, opts...)
}

func diffRow(b, a []string, fn TokenDiffFunc) Row {
	n := min(len(b), len(a))
	row := make(Row, 0, n+1)
	row = append(row, "", a[0])
	for i := 1; i < n; i++ {
		row = append(row, fn(b[i], a[i]))
	}
	return row
}

func alignRows(rows []Row) []Row {
	if len(rows) == 0 {
		return rows
	}
	rows[0] = append(Row{""}, rows[0]...)
	width := len(rows[0])
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) > width+1 {
			joined := strings.Join(rows[i][width:], " ")
			rows[i] = append(rows[i][:width:width], joined)
		}
	}
	return rows
}

// RenderTable writes rows as right-aligned columns separated by a space.
func RenderTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, row := range rows {
		for _, field := range row {
			if _, err := fmt.Fprint(tw, field, "\t"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(tw); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteTableFile diffs two table files and renders the result into dest.
func WriteTableFile(beforePath, afterPath, dest string, opts ...Option) error {
	rows, err := TableFiles(beforePath, afterPath, opts...)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", dest, err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dest, err)
	}
	if err := RenderTable(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to render table into %q: %w", dest, err)
	}
	return f.Close()
}
