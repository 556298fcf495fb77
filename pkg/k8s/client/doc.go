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

// Package client builds Kubernetes clients for the pod device transport and
// the ConfigMap result sink.
//
// GetKubeClient caches one client per process, discovered from KUBECONFIG,
// ~/.kube/config or the in-cluster service account:
//
//	k8s, restConfig, err := client.GetKubeClient()
//	if err != nil {
//	    return fmt.Errorf("failed to get kubernetes client: %w", err)
//	}
//
// ForKubeconfig honours an explicit kubeconfig path and falls back to the
// cached client when the path is empty:
//
//	k8s, restConfig, err := client.ForKubeconfig(cmd.String("kubeconfig"))
//
// The returned rest.Config is needed by remotecommand executors, which open
// their own SPDY connections next to the typed clientset.
package client
