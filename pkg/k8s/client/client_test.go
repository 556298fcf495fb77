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

package client

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: lab
  cluster:
    server: https://127.0.0.1:6443
    insecure-skip-tls-verify: true
contexts:
- name: lab
  context:
    cluster: lab
    user: lab
current-context: lab
users:
- name: lab
  user:
    token: abc
`

func resetClient() {
	clientOnce = sync.Once{}
	cachedClient = nil
	cachedConfig = nil
	clientErr = nil
}

func writeKubeconfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "kubeconfig")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write kubeconfig: %v", err)
	}
	return p
}

func TestBuildKubeClient(t *testing.T) {
	tests := []struct {
		name          string
		kubeconfigArg string
		kubeconfigEnv string
		wantErr       bool
		errorContains string
	}{
		{
			name:          "explicit invalid path",
			kubeconfigArg: "/nonexistent/path/to/kubeconfig",
			wantErr:       true,
			errorContains: "failed to build kube config",
		},
		{
			name:          "env var with invalid path",
			kubeconfigEnv: "/nonexistent/env/kubeconfig",
			wantErr:       true,
			errorContains: "failed to build kube config",
		},
		{
			name:          "invalid content",
			kubeconfigArg: "invalid",
			wantErr:       true,
			errorContains: "failed to build kube config",
		},
		{
			name:          "valid file",
			kubeconfigArg: "valid",
		},
		{
			name:          "valid file from env",
			kubeconfigEnv: "valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arg, env := tt.kubeconfigArg, tt.kubeconfigEnv
			switch {
			case arg == "valid":
				arg = writeKubeconfig(t, testKubeconfig)
			case arg == "invalid":
				arg = writeKubeconfig(t, "invalid yaml content")
			case env == "valid":
				env = writeKubeconfig(t, testKubeconfig)
			}
			t.Setenv("KUBECONFIG", env)

			k8s, cfg, err := BuildKubeClient(arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildKubeClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("BuildKubeClient() error = %v, want error containing %q", err, tt.errorContains)
				}
				return
			}
			if k8s == nil || cfg == nil {
				t.Fatal("BuildKubeClient() returned nil client or config")
			}
			if cfg.Host != "https://127.0.0.1:6443" {
				t.Errorf("host = %q, want https://127.0.0.1:6443", cfg.Host)
			}
		})
	}
}

func TestResolveKubeconfig(t *testing.T) {
	t.Setenv("KUBECONFIG", "/from/env")
	if got := resolveKubeconfig("/explicit"); got != "/explicit" {
		t.Errorf("explicit path = %q", got)
	}
	if got := resolveKubeconfig(""); got != "/from/env" {
		t.Errorf("env path = %q", got)
	}

	t.Setenv("KUBECONFIG", "")
	t.Setenv("HOME", t.TempDir())
	if got := resolveKubeconfig(""); got != "" {
		t.Errorf("expected in-cluster fallback, got %q", got)
	}
}

func TestForKubeconfig_Explicit(t *testing.T) {
	resetClient()
	defer resetClient()

	p := writeKubeconfig(t, testKubeconfig)
	k8s, cfg, err := ForKubeconfig(p)
	if err != nil {
		t.Fatalf("ForKubeconfig() error = %v", err)
	}
	if k8s == nil || cfg == nil {
		t.Fatal("ForKubeconfig() returned nil client or config")
	}
	if cachedClient != nil {
		t.Error("explicit kubeconfig must not populate the shared client")
	}
}

func TestGetKubeClient_Singleton(t *testing.T) {
	resetClient()
	defer resetClient()

	t.Setenv("KUBECONFIG", writeKubeconfig(t, testKubeconfig))

	client1, config1, err1 := GetKubeClient()
	client2, config2, err2 := ForKubeconfig("")
	if err1 != nil || err2 != nil {
		t.Fatalf("GetKubeClient() errors = %v, %v", err1, err2)
	}
	if client1 != client2 {
		t.Error("GetKubeClient() should return the same client instance")
	}
	if config1 != config2 {
		t.Error("GetKubeClient() should return the same config instance")
	}
}

func TestGetKubeClient_CachesError(t *testing.T) {
	resetClient()
	defer resetClient()

	t.Setenv("KUBECONFIG", "/nonexistent/kubeconfig")

	_, _, err1 := GetKubeClient()
	if err1 == nil {
		t.Fatal("expected error for missing kubeconfig")
	}

	// a valid file later must not replace the cached failure
	t.Setenv("KUBECONFIG", writeKubeconfig(t, testKubeconfig))
	_, _, err2 := GetKubeClient()
	//nolint:errorlint // identity of the cached error
	if err1 != err2 {
		t.Errorf("GetKubeClient() should return the cached error: first=%v, second=%v", err1, err2)
	}
}

func TestGetKubeClient_Concurrent(t *testing.T) {
	resetClient()
	defer resetClient()

	t.Setenv("KUBECONFIG", writeKubeconfig(t, testKubeconfig))

	const workers = 10
	clients := make(chan Interface, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, _, _ := GetKubeClient()
			clients <- c
		}()
	}
	wg.Wait()
	close(clients)

	first := <-clients
	for c := range clients {
		if c != first {
			t.Error("concurrent GetKubeClient() calls returned different clients")
		}
	}
}
