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

package snapshotter

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/sysdiff/pkg/device"
)

// fakeDevice records every interaction. Commands run as root are recorded
// with a "[root] " prefix.
type fakeDevice struct {
	rooted  bool
	workdir string
	busybox string

	calls    int
	commands []string
	pulls    [][2]string
	removed  []string
	exists   map[string]bool
	listing  map[string][]string

	execFn func(command string) (string, error)
	pullFn func(remote, local string) error
}

var _ device.Device = (*fakeDevice)(nil)

func newFakeDevice(rooted bool) *fakeDevice {
	return &fakeDevice{
		rooted:  rooted,
		workdir: "/data/wd",
		exists:  map[string]bool{},
		listing: map[string][]string{},
	}
}

func (f *fakeDevice) Execute(_ context.Context, command string, opts ...device.ExecOption) (string, error) {
	f.calls++
	s := device.NewExecSettings(opts...)
	rec := command
	if s.AsRoot {
		rec = "[root] " + command
	}
	f.commands = append(f.commands, rec)
	if f.execFn == nil {
		return "", nil
	}
	out, err := f.execFn(command)
	var exitErr *device.ExitError
	if err != nil && errors.As(err, &exitErr) && !s.CheckExitCode {
		return out, nil
	}
	return out, err
}

func (f *fakeDevice) Pull(_ context.Context, remote, local string) error {
	f.calls++
	f.pulls = append(f.pulls, [2]string{remote, local})
	if f.pullFn == nil {
		return nil
	}
	return f.pullFn(remote, local)
}

func (f *fakeDevice) Remove(_ context.Context, p string) error {
	f.calls++
	f.removed = append(f.removed, p)
	return nil
}

func (f *fakeDevice) FileExists(_ context.Context, p string) (bool, error) {
	f.calls++
	return f.exists[p], nil
}

func (f *fakeDevice) ListDir(_ context.Context, p string) ([]string, error) {
	f.calls++
	return f.listing[p], nil
}

func (f *fakeDevice) IsRooted() bool           { return f.rooted }
func (f *fakeDevice) WorkingDirectory() string { return f.workdir }
func (f *fakeDevice) Busybox() string          { return f.busybox }

type member struct {
	name string
	body string
}

// gzipTar builds a gzip-compressed tar holding members in order.
func gzipTar(t *testing.T, members ...member) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for _, m := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     m.name,
			Mode:     0o644,
			Size:     int64(len(m.body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}
