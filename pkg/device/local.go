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
	"context"
	"errors"
	"io"

	utilexec "k8s.io/utils/exec"
)

// LocalTransport runs commands on the host through "sh -c".
type LocalTransport struct {
	exec  utilexec.Interface
	shell string
}

// NewLocalTransport returns a transport for the host. A nil exec uses the
// operating system.
func NewLocalTransport(exec utilexec.Interface) *LocalTransport {
	if exec == nil {
		exec = utilexec.New()
	}
	return &LocalTransport{exec: exec, shell: "sh"}
}

// Run implements Transport.
func (t *LocalTransport) Run(ctx context.Context, command string, stdout, stderr io.Writer) error {
	cmd := t.exec.CommandContext(ctx, t.shell, "-c", command)
	cmd.SetStdout(stdout)
	cmd.SetStderr(stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitStatus()}
	}
	return err
}

// Close implements Transport.
func (t *LocalTransport) Close() error { return nil }
