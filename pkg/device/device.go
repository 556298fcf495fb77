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

package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/sysdiff/pkg/archive"
	"github.com/NVIDIA/sysdiff/pkg/defaults"
	cerrors "github.com/NVIDIA/sysdiff/pkg/errors"
)

// Device is the remote system whose state is captured.
type Device interface {
	// Execute runs command in a POSIX shell and returns its stdout.
	Execute(ctx context.Context, command string, opts ...ExecOption) (string, error)
	// Pull copies remote to local. When local is an existing directory the
	// pulled entry is placed inside it; a remote ending in "/*" places the
	// directory contents there instead.
	Pull(ctx context.Context, remote, local string) error
	// Remove recursively deletes path.
	Remove(ctx context.Context, path string) error
	// FileExists reports whether path exists.
	FileExists(ctx context.Context, path string) (bool, error)
	// ListDir returns the entry names of directory path.
	ListDir(ctx context.Context, path string) ([]string, error)
	// IsRooted reports whether root commands are available.
	IsRooted() bool
	// WorkingDirectory is a device directory writable by the capture.
	WorkingDirectory() string
	// Busybox is the prefix for BusyBox-style utilities, empty for system tools.
	Busybox() string
}

// Transport runs a single shell command on the device. A command that ran
// but exited non-zero is reported as an *ExitError.
type Transport interface {
	Run(ctx context.Context, command string, stdout, stderr io.Writer) error
	Close() error
}

// ExitError reports a non-zero exit status of a device command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExecOption customizes a single Execute call.
type ExecOption func(*ExecSettings)

// ExecSettings is the resolved form of a set of ExecOptions.
type ExecSettings struct {
	AsRoot        bool
	CheckExitCode bool
	Timeout       time.Duration
}

// NewExecSettings applies opts over the defaults: exit codes checked and
// defaults.DeviceCommandTimeout. Device implementations other than
// ShellDevice use it to honor the options.
func NewExecSettings(opts ...ExecOption) ExecSettings {
	s := ExecSettings{CheckExitCode: true, Timeout: defaults.DeviceCommandTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// AsRoot runs the command with root privileges.
func AsRoot() ExecOption {
	return func(s *ExecSettings) { s.AsRoot = true }
}

// IgnoreExitCode returns the output of a command even when it exits non-zero.
func IgnoreExitCode() ExecOption {
	return func(s *ExecSettings) { s.CheckExitCode = false }
}

// WithTimeout overrides defaults.DeviceCommandTimeout for one command.
func WithTimeout(d time.Duration) ExecOption {
	return func(s *ExecSettings) { s.Timeout = d }
}

// Option configures a ShellDevice.
type Option func(*ShellDevice)

// WithWorkingDirectory sets the device working directory.
func WithWorkingDirectory(dir string) Option {
	return func(d *ShellDevice) { d.workdir = dir }
}

// WithBusybox sets the BusyBox command prefix, e.g. "/data/local/tmp/busybox".
func WithBusybox(prefix string) Option {
	return func(d *ShellDevice) { d.busybox = prefix }
}

// WithRooted skips the root probe and forces the device rootedness.
// A rooted device is assumed to already run commands as root.
func WithRooted(rooted bool) Option {
	return func(d *ShellDevice) {
		d.rooted = rooted
		d.probed = true
	}
}

// WithSudo sets the command used to elevate when the device user is not root.
func WithSudo(prefix string) Option {
	return func(d *ShellDevice) { d.sudo = prefix }
}

// ShellDevice implements Device over a Transport.
type ShellDevice struct {
	transport Transport
	workdir   string
	busybox   string
	sudo      string
	rooted    bool
	elevate   bool
	probed    bool
}

// New returns a ShellDevice over t and probes whether it is rooted.
func New(ctx context.Context, t Transport, opts ...Option) (*ShellDevice, error) {
	d := &ShellDevice{
		transport: t,
		workdir:   defaults.DeviceWorkingDirectory,
		busybox:   defaults.Busybox,
		sudo:      "sudo -n",
	}
	for _, opt := range opts {
		opt(d)
	}

	if !d.probed {
		d.probeRoot(ctx)
	}

	slog.Debug("device ready",
		"rooted", d.rooted,
		"elevate", d.elevate,
		"working_directory", d.workdir,
		"busybox", d.busybox)
	return d, nil
}

func (d *ShellDevice) probeRoot(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, defaults.RootProbeTimeout)
	defer cancel()

	out, err := d.Execute(ctx, "id -u")
	if err == nil && strings.TrimSpace(out) == "0" {
		d.rooted = true
		return
	}
	if _, err := d.Execute(ctx, d.sudo+" true"); err == nil {
		d.rooted = true
		d.elevate = true
		return
	}
	slog.Debug("device is not rooted")
}

// Close releases the transport.
func (d *ShellDevice) Close() error {
	return d.transport.Close()
}

// IsRooted implements Device.
func (d *ShellDevice) IsRooted() bool { return d.rooted }

// WorkingDirectory implements Device.
func (d *ShellDevice) WorkingDirectory() string { return d.workdir }

// Busybox implements Device.
func (d *ShellDevice) Busybox() string { return d.busybox }

// Execute implements Device.
func (d *ShellDevice) Execute(ctx context.Context, command string, opts ...ExecOption) (string, error) {
	o := NewExecSettings(opts...)

	line := command
	if o.AsRoot && d.elevate {
		line = d.sudo + " sh -c " + Quote(command)
	}

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := d.transport.Run(ctx, line, &stdout, &stderr)
	if err == nil {
		return stdout.String(), nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && !o.CheckExitCode {
		slog.Debug("ignoring device command exit code",
			"command", command, "exit_code", exitErr.Code)
		return stdout.String(), nil
	}
	return stdout.String(), commandError(command, err, stderr.String())
}

func commandError(command string, err error, stderr string) error {
	ctx := map[string]any{
		"command": command,
		"stderr":  strings.TrimSpace(stderr),
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		ctx["exit_code"] = exitErr.Code
	}
	code := cerrors.ErrCodeDevice
	if errors.Is(err, context.DeadlineExceeded) {
		code = cerrors.ErrCodeTimeout
	}
	return cerrors.WrapWithContext(code, "device command failed", err, ctx)
}

// rootOpts elevates housekeeping commands whenever the device allows it.
func (d *ShellDevice) rootOpts(opts ...ExecOption) []ExecOption {
	if d.rooted {
		opts = append(opts, AsRoot())
	}
	return opts
}

func (d *ShellDevice) tool(name string) string {
	if d.busybox == "" {
		return name
	}
	return d.busybox + " " + name
}

// Remove implements Device.
func (d *ShellDevice) Remove(ctx context.Context, p string) error {
	_, err := d.Execute(ctx, "rm -rf "+Quote(p), d.rootOpts()...)
	return err
}

// FileExists implements Device.
func (d *ShellDevice) FileExists(ctx context.Context, p string) (bool, error) {
	out, err := d.Execute(ctx, fmt.Sprintf("if [ -e %s ]; then echo 1; else echo 0; fi", Quote(p)), d.rootOpts()...)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "1", nil
}

// ListDir implements Device.
func (d *ShellDevice) ListDir(ctx context.Context, p string) ([]string, error) {
	out, err := d.Execute(ctx, d.tool("ls")+" -1 "+Quote(p), d.rootOpts()...)
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// Pull implements Device.
func (d *ShellDevice) Pull(ctx context.Context, remote, local string) error {
	fi, err := os.Stat(local)
	if err == nil && fi.IsDir() {
		return d.pullTree(ctx, remote, local)
	}
	return d.pullFile(ctx, remote, local)
}

func (d *ShellDevice) pullFile(ctx context.Context, remote, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", local, err)
	}
	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", local, err)
	}

	if err := d.stream(ctx, "cat "+Quote(remote), f); err != nil {
		f.Close()
		os.Remove(local)
		return err
	}
	return f.Close()
}

func (d *ShellDevice) pullTree(ctx context.Context, remote, local string) error {
	stage := path.Join(d.workdir, "pull-"+uuid.NewString())
	root := strings.TrimSuffix(remote, "/*")

	// A missing root fails the pull. Inside the tree cp may fail on
	// individual unreadable entries; the tar exit status decides.
	script := fmt.Sprintf("[ -e %[5]s ] || { echo %[6]s >&2; exit 2; }; "+
		"mkdir -p %[1]s && { %[2]s -RH %[3]s %[1]s/ 2>/dev/null; %[4]s -cf - -C %[1]s .; rc=$?; rm -rf %[1]s; exit $rc; }",
		Quote(stage), d.tool("cp"), QuotePath(remote), d.tool("tar"), Quote(root), Quote(root+": No such file or directory"))

	tmp, err := os.CreateTemp("", "sysdiff-pull-*.tar")
	if err != nil {
		return fmt.Errorf("failed to create spool file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := d.stream(ctx, script, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to spool %q: %w", remote, err)
	}

	if err := archive.ExtractFile(tmp.Name(), local); err != nil {
		return fmt.Errorf("failed to unpack %q: %w", remote, err)
	}
	return nil
}

// stream runs command and copies its stdout into w.
func (d *ShellDevice) stream(ctx context.Context, command string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, defaults.DevicePullTimeout)
	defer cancel()

	line := command
	if d.elevate {
		line = d.sudo + " sh -c " + Quote(command)
	}

	var stderr bytes.Buffer
	if err := d.transport.Run(ctx, line, w, &stderr); err != nil {
		return commandError(command, err, stderr.String())
	}
	return nil
}

// QuotePath quotes a device path for a POSIX shell, leaving a trailing "/*"
// wildcard unquoted so that the shell expands it.
func QuotePath(p string) string {
	if dir, ok := strings.CutSuffix(p, "/*"); ok {
		return Quote(dir) + "/*"
	}
	return Quote(p)
}

// Quote returns s quoted for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
