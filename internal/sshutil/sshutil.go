package sshutil

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

const defaultDialTimeout = 10 * time.Second

// Runner executes commands on a remote host. It exists so the verifier can be
// tested without a live VM.
type Runner interface {
	Run(ctx context.Context, cmd string) (stdout, stderr string, err error)
}

// Client runs commands over SSH using public-key auth.
type Client struct {
	Host string
	User string
	Port string

	signer ssh.Signer
}

// NewClient reads the private key at keyPath and prepares a client for
// user@host. Port defaults to 22.
func NewClient(host, user, keyPath, port string) (*Client, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("error reading ssh private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("error parsing ssh private key: %w", err)
	}

	if port == "" {
		port = "22"
	}

	return &Client{
		Host:   host,
		User:   user,
		Port:   port,
		signer: signer,
	}, nil
}

func (c *Client) config() *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User: c.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(c.signer),
		},
		// The probe VM is disposable and its host key is never pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         defaultDialTimeout,
	}
}

// Run executes cmd on the remote host and returns captured stdout/stderr.
func (c *Client) Run(ctx context.Context, cmd string) (stdout, stderr string, err error) {
	addr := net.JoinHostPort(c.Host, c.Port)

	conn, err := ssh.Dial("tcp", addr, c.config())
	if err != nil {
		return "", "", fmt.Errorf("error connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("error creating ssh session: %w", err)
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)

	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		conn.Close()

		return stdoutBuf.String(), stderrBuf.String(), ctx.Err()
	case err = <-done:
	}

	if err != nil {
		return stdoutBuf.String(), stderrBuf.String(), fmt.Errorf("remote command failed: %w", err)
	}

	return stdoutBuf.String(), stderrBuf.String(), nil
}

// AwaitServer polls until the SSH port accepts an authenticated connection or
// the timeout elapses. Fresh VMs take a while to start sshd.
func (c *Client) AwaitServer(ctx context.Context, timeout time.Duration) error {
	addr := net.JoinHostPort(c.Host, c.Port)
	deadline := time.After(timeout)

	t := time.NewTicker(5 * time.Second)
	defer t.Stop()

	for {
		conn, err := ssh.Dial("tcp", addr, c.config())
		if err == nil {
			_ = conn.Close()

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("timed out waiting for ssh server at %s: %w", addr, err)
		case <-t.C:
		}
	}
}
