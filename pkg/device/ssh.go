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
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/NVIDIA/sysdiff/pkg/defaults"
)

// SSHConfig describes how to reach a device over SSH.
type SSHConfig struct {
	Address        string // host:port, port 22 when omitted
	User           string
	Password       string
	KeyFile        string
	KnownHostsFile string // defaults to ~/.ssh/known_hosts
	// Insecure accepts any host key. Intended for lab devices only.
	Insecure bool
}

// SSHTransport runs each command in its own session on a shared connection.
type SSHTransport struct {
	client *ssh.Client
}

// DialSSH connects to the device described by cfg.
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSHTransport, error) {
	clientCfg, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := cfg.Address
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	dialer := net.Dialer{Timeout: defaults.SSHDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	return &SSHTransport{client: ssh.NewClient(c, chans, reqs)}, nil
}

func (cfg SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		keyData, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ssh key %s: %w", cfg.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("ssh requires a key file or a password")
	}

	hostKey := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via Insecure
	if !cfg.Insecure {
		file := cfg.KnownHostsFile
		if file == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to locate known_hosts: %w", err)
			}
			file = filepath.Join(home, ".ssh", "known_hosts")
		}
		cb, err := knownhosts.New(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", file, err)
		}
		hostKey = cb
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         defaults.SSHDialTimeout,
	}, nil
}

// Run implements Transport.
func (t *SSHTransport) Run(ctx context.Context, command string, stdout, stderr io.Writer) error {
	session, err := t.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitStatus()}
		}
		return err
	}
}

// Close implements Transport.
func (t *SSHTransport) Close() error {
	return t.client.Close()
}
