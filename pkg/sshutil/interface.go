package sshutil

import "io"

// SSHClient defines the interface for remote shell execution and file
// transfer. Both the real Client and mock implementations satisfy this
// interface, which lets the runner be tested without real SSH connections.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecStream runs a command and streams output to the provided writers.
	// Returns the exit code and any error.
	ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error)

	// Upload copies a local file to remotePath, preserving its permission
	// bits. remotePath may be absolute, home-relative, or a "~/" path; a
	// tilde prefix is resolved against the remote home.
	Upload(localPath, remotePath string) error

	// UploadDir recursively copies a local directory under remotePath,
	// preserving permission bits on regular files.
	UploadDir(localDir, remotePath string) error

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

// Dialer establishes a connection to a host as a given user. The runner
// takes a Dialer so tests can inject mock clients.
type Dialer func(host, user string) (SSHClient, error)
