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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MismatchMarker prefixes a before line whose token count differs from the
// corresponding after line.
const MismatchMarker = "xxx "

// Tree writes a diff of every regular file under before against the file with
// the same relative path under after into diffDir. Files absent from after
// are skipped. Only host I/O failures are returned.
func Tree(before, after, diffDir string, opts ...Option) error {
	o := newOptions(opts)

	files, err := regularFiles(before)
	if err != nil {
		return err
	}

	for _, rel := range files {
		afile := filepath.Join(after, rel)
		if fi, err := os.Stat(afile); err != nil || !fi.Mode().IsRegular() {
			slog.Debug("file missing from after capture, skipping", "path", afile)
			continue
		}

		if err := diffFile(filepath.Join(before, rel), afile, filepath.Join(diffDir, rel), o); err != nil {
			return err
		}
	}

	slog.Debug("tree diff complete", "before", before, "after", after, "files", len(files))
	return nil
}

// regularFiles lists regular files under root as paths relative to root.
// Unreadable subdirectories are skipped.
func regularFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to walk %q: %w", root, err)
			}
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func diffFile(bfile, afile, dfile string, o *options) error {
	bf, err := os.Open(bfile)
	if err != nil {
		slog.Debug("cannot open before file, skipping", "path", bfile, "error", err)
		return nil
	}
	defer bf.Close()

	af, err := os.Open(afile)
	if err != nil {
		slog.Debug("cannot open after file, skipping", "path", afile, "error", err)
		return nil
	}
	defer af.Close()

	if err := os.MkdirAll(filepath.Dir(dfile), 0o755); err != nil {
		return fmt.Errorf("failed to create diff directory for %q: %w", dfile, err)
	}
	df, err := os.Create(dfile)
	if err != nil {
		return fmt.Errorf("failed to create diff file %q: %w", dfile, err)
	}

	w := bufio.NewWriter(df)
	if err := diffLines(bufio.NewReader(bf), bufio.NewReader(af), w, bfile, o); err != nil {
		df.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		df.Close()
		return fmt.Errorf("failed to write diff file %q: %w", dfile, err)
	}
	return df.Close()
}

func diffLines(br, ar *bufio.Reader, w io.Writer, name string, o *options) error {
	for n := 1; ; n++ {
		bline, berr := readLine(br)
		aline, aerr := readLine(ar)
		if berr != nil {
			return fmt.Errorf("failed to read %q: %w", name, berr)
		}
		if aerr != nil {
			return fmt.Errorf("failed to read after file for %q: %w", name, aerr)
		}

		if bline == "" {
			if aline != "" {
				slog.Debug("after file has extra lines", "path", name, "line", n)
			}
			return nil
		}
		if aline == "" {
			slog.Debug("lines missing from after file", "path", name, "line", n)
			return nil
		}

		out, ok := DiffLine(bline, aline, o.tokenDiff)
		if !ok {
			slog.Debug("token count mismatch", "path", name, "line", n)
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
}

// DiffLine renders one before/after line pair. Lines with different token
// counts come back as MismatchMarker followed by the before line. When both
// lines hold exactly two words and share the first one, that word is kept as
// a label and only the value is diffed. The boolean is false for a mismatch.
func DiffLine(bline, aline string, fn TokenDiffFunc) (string, bool) {
	if fn == nil {
		fn = DiffTokens
	}
	bt := Tokenize(bline)
	at := Tokenize(aline)

	if len(bt) != len(at) {
		return MismatchMarker + bline, false
	}

	var sb strings.Builder
	start := 0
	if wordCount(bt) == 2 && wordCount(at) == 2 && bt[0] == at[0] {
		sb.WriteString(bt[0])
		start = 1
	}
	for i := start; i < len(bt); i++ {
		sb.WriteString(fn(bt[i], at[i]))
	}
	return sb.String(), true
}

// readLine returns the next line including its terminator, or "" at EOF.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}
