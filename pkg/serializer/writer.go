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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// SupportedFormats lists the accepted format names.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTable)}
}

// IsUnknown reports whether f is not one of SupportedFormats.
func (f Format) IsUnknown() bool {
	return !slices.Contains(SupportedFormats(), string(f))
}

// extension is the file extension used for documents in format f.
func (f Format) extension() string {
	if f == FormatTable {
		return "txt"
	}
	return string(f)
}

// orJSON returns f, or JSON with a warning when f is unknown.
func orJSON(f Format) Format {
	if f.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", f)
		return FormatJSON
	}
	return f
}

// Writer serializes documents to an io.Writer. Writers returned by
// NewFileWriterOrStdout own a file and must be closed.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter returns a Writer for output, stdout when output is nil.
// Unknown formats fall back to JSON.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	return &Writer{format: orJSON(format), output: output}
}

// NewStdoutWriter returns a Writer for stdout.
func NewStdoutWriter(format Format) *Writer {
	return NewWriter(format, os.Stdout)
}

// NewFileWriterOrStdout picks the sink from dest: empty means stdout,
// cm://namespace/name a ConfigMap, anything else a file whose parent
// directories are created. Unusable destinations fall back to stdout.
func NewFileWriterOrStdout(format Format, dest string) Serializer {
	dest = strings.TrimSpace(dest)
	switch {
	case dest == "":
		return NewStdoutWriter(format)
	case strings.HasPrefix(dest, ConfigMapURIScheme):
		namespace, name, err := ParseConfigMapURI(dest)
		if err != nil {
			slog.Error("invalid ConfigMap URI, falling back to stdout", "error", err, "uri", dest)
			return NewStdoutWriter(format)
		}
		return NewConfigMapWriter(namespace, name, format)
	}

	f, err := createFile(dest)
	if err != nil {
		slog.Error("failed to open output file, falling back to stdout", "error", err, "path", dest)
		return NewStdoutWriter(format)
	}
	w := NewWriter(format, f)
	w.closer = f
	return w
}

func createFile(p string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %q: %w", p, err)
	}
	return os.Create(p)
}

// Close closes the file behind w, if any. Repeated calls are harmless for
// stdout writers.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Serialize writes v in the configured format.
func (w *Writer) Serialize(_ context.Context, v any) error {
	content, err := encode(w.format, v)
	if err != nil {
		return err
	}
	if _, err := w.output.Write(content); err != nil {
		return fmt.Errorf("failed to write %s document: %w", w.format, err)
	}
	return nil
}

// encode renders v in format.
func encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(v)
	case FormatYAML:
		return encodeYAML(v)
	case FormatTable:
		return encodeTable(v)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func encodeJSON(v any) ([]byte, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize to JSON: %w", err)
	}
	return append(content, '\n'), nil
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to serialize to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to serialize to YAML: %w", err)
	}
	return buf.Bytes(), nil
}
