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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/NVIDIA/sysdiff/pkg/k8s/client"
)

// FormatFromPath determines the serialization format from a file extension:
// .json, .yaml/.yml, .table/.txt. Unknown extensions default to JSON.
func FormatFromPath(filePath string) Format {
	lowerPath := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lowerPath, ".json"):
		return FormatJSON
	case strings.HasSuffix(lowerPath, ".yaml"), strings.HasSuffix(lowerPath, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lowerPath, ".table"), strings.HasSuffix(lowerPath, ".txt"):
		return FormatTable
	default:
		slog.Warn("unknown file extension, defaulting to JSON", "filePath", filePath)
		return FormatJSON
	}
}

// Reader deserializes JSON or YAML documents. Table format is write-only.
type Reader struct {
	format Format
	input  io.Reader
	closer io.Closer
}

// NewReader returns a Reader over input. When input implements io.Closer
// it is closed by Reader.Close.
func NewReader(format Format, input io.Reader) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	if format == FormatTable {
		return nil, fmt.Errorf("table format does not support deserialization")
	}

	r := &Reader{format: format, input: input}
	if closer, ok := input.(io.Closer); ok {
		r.closer = closer
	}
	return r, nil
}

// NewFileReader opens filePath for reading in format.
func NewFileReader(format Format, filePath string) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	if format == FormatTable {
		return nil, fmt.Errorf("table format does not support deserialization")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return &Reader{format: format, input: file, closer: file}, nil
}

// Deserialize decodes the input into v, which must be a pointer.
func (r *Reader) Deserialize(v any) error {
	if r == nil {
		return fmt.Errorf("reader is nil")
	}
	if r.input == nil {
		return fmt.Errorf("input source is nil")
	}

	switch r.format {
	case FormatJSON:
		if err := json.NewDecoder(r.input).Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		decoder := yaml.NewDecoder(r.input)
		decoder.KnownFields(true)
		if err := decoder.Decode(v); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format for deserialization: %s", r.format)
	}
}

// Close releases the underlying file. It is safe to call more than once.
func (r *Reader) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// FromFile reads a document of type T from a file path or a ConfigMap URI
// (cm://namespace/name). File formats come from the extension.
func FromFile[T any](ctx context.Context, source string) (*T, error) {
	if strings.HasPrefix(source, ConfigMapURIScheme) {
		namespace, name, err := ParseConfigMapURI(source)
		if err != nil {
			return nil, err
		}
		k8s, _, err := client.GetKubeClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get kubernetes client: %w", err)
		}
		return FromConfigMap[T](ctx, k8s, namespace, name)
	}

	format := FormatFromPath(source)
	r, err := NewFileReader(format, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", source, err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			slog.Warn("failed to close reader", "error", closeErr)
		}
	}()

	var v T
	if err := r.Deserialize(&v); err != nil {
		return nil, fmt.Errorf("failed to deserialize %q: %w", source, err)
	}
	slog.Debug("loaded document", "path", source, "format", format)
	return &v, nil
}

// FromConfigMap reads a document of type T from the first data key, in
// sorted order, with a JSON or YAML extension.
func FromConfigMap[T any](ctx context.Context, k8s client.Interface, namespace, name string) (*T, error) {
	cm, err := k8s.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get ConfigMap %s/%s: %w", namespace, name, err)
	}

	keys := make([]string, 0, len(cm.Data))
	for k := range cm.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch path.Ext(strings.ToLower(key)) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		format := FormatFromPath(key)

		r, err := NewReader(format, strings.NewReader(cm.Data[key]))
		if err != nil {
			return nil, err
		}
		var v T
		if err := r.Deserialize(&v); err != nil {
			return nil, fmt.Errorf("failed to deserialize ConfigMap %s/%s key %s: %w", namespace, name, key, err)
		}
		slog.Debug("loaded document from ConfigMap", "namespace", namespace, "name", name, "key", key)
		return &v, nil
	}
	return nil, fmt.Errorf("ConfigMap %s/%s has no JSON or YAML data", namespace, name)
}
