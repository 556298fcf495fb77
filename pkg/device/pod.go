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
	"fmt"
	"io"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	clientexec "k8s.io/client-go/util/exec"
)

// PodTransport runs commands inside a pod container through the exec API.
type PodTransport struct {
	client    kubernetes.Interface
	config    *rest.Config
	namespace string
	pod       string
	container string

	// newExecutor is replaced in tests.
	newExecutor func(cfg *rest.Config, method string, req *rest.Request) (remotecommand.Executor, error)
}

// NewPodTransport returns a transport targeting one container of a pod.
// An empty container selects the pod's default container.
func NewPodTransport(client kubernetes.Interface, config *rest.Config, namespace, pod, container string) *PodTransport {
	return &PodTransport{
		client:    client,
		config:    config,
		namespace: namespace,
		pod:       pod,
		container: container,
		newExecutor: func(cfg *rest.Config, method string, req *rest.Request) (remotecommand.Executor, error) {
			return remotecommand.NewSPDYExecutor(cfg, method, req.URL())
		},
	}
}

// Run implements Transport.
func (t *PodTransport) Run(ctx context.Context, command string, stdout, stderr io.Writer) error {
	req := t.client.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(t.namespace).
		Name(t.pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: t.container,
			Command:   []string{"sh", "-c", command},
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	executor, err := t.newExecutor(t.config, "POST", req)
	if err != nil {
		return fmt.Errorf("failed to create executor for pod %s/%s: %w", t.namespace, t.pod, err)
	}

	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: stdout,
		Stderr: stderr,
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr clientexec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitStatus()}
	}
	return fmt.Errorf("exec in pod %s/%s failed: %w", t.namespace, t.pod, err)
}

// Close implements Transport.
func (t *PodTransport) Close() error { return nil }
