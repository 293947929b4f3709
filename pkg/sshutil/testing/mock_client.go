// Package testing provides a mock SSH client for exercising the runner
// without real connections.
package testing

import (
	"errors"
	"io"
	"regexp"
	"sync"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// Uploaded records a single transfer request made against the mock.
type Uploaded struct {
	Local  string
	Remote string
	Dir    bool
}

// MockClient simulates an SSH connection for testing. It records every
// command and upload, and answers commands from canned responses (exact
// match first, then regex patterns, then success with empty output).
type MockClient struct {
	mu        sync.Mutex
	host      string
	address   string
	closed    bool
	commands  map[string]CommandResponse
	Commands  []string   // every command passed to Exec/ExecStream, in order
	Uploads   []Uploaded // every upload request, in order
	UploadErr error      // when set, Upload and UploadDir fail with this error
}

// NewMockClient creates a mock client for the given host.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		address:  host + ":22",
		commands: make(map[string]CommandResponse),
	}
}

// SetCommandResponse registers a canned response for a command.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[pattern] = resp
}

// Exec records the command and returns the configured response.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}

	m.Commands = append(m.Commands, cmd)

	if resp, ok := m.commands[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}
	for pattern, resp := range m.commands {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
		}
	}
	return nil, nil, 0, nil
}

// ExecStream records the command and writes the configured response to the
// provided writers.
func (m *MockClient) ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error) {
	out, errOut, code, execErr := m.Exec(cmd)
	if execErr != nil {
		return -1, execErr
	}
	if stdout != nil && len(out) > 0 {
		stdout.Write(out)
	}
	if stderr != nil && len(errOut) > 0 {
		stderr.Write(errOut)
	}
	return code, nil
}

// Upload records the transfer request.
func (m *MockClient) Upload(localPath, remotePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.Uploads = append(m.Uploads, Uploaded{Local: localPath, Remote: remotePath})
	return nil
}

// UploadDir records the recursive transfer request.
func (m *MockClient) UploadDir(localDir, remotePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.Uploads = append(m.Uploads, Uploaded{Local: localDir, Remote: remotePath, Dir: true})
	return nil
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}
