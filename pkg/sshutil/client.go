package sshutil

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"qube/internal/errors"
)

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// Dial establishes an SSH connection to the specified host as the given
// user. The host can be:
//   - An SSH config alias (e.g., "myserver")
//   - A hostname (e.g., "192.168.1.100")
//   - A hostname:port (e.g., "192.168.1.100:2222")
//
// Connection settings are resolved from ~/.ssh/config when available. An
// empty user falls back to the SSH config User, then the local username.
func Dial(host, user string, timeout time.Duration) (*Client, error) {
	settings := resolveSettings(host, user)

	config, err := buildClientConfig(settings, timeout)
	if err != nil {
		return nil, err
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			"Check the hostname is correct and the host is online.")
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			"Check your keys are loaded: ssh-add -l")
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// settings holds resolved SSH connection parameters.
type settings struct {
	hostname     string
	port         string
	user         string
	identityFile string
}

// address returns the host:port string for dialing.
func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings parses the host string and fills gaps from ~/.ssh/config.
func resolveSettings(host, user string) *settings {
	s := &settings{port: "22", user: user}

	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		potentialPort := host[colonIdx+1:]
		if len(potentialPort) > 0 && strings.Trim(potentialPort, "0123456789") == "" {
			s.port = potentialPort
			host = host[:colonIdx]
		}
	}
	s.hostname = host

	// SSH config can remap the hostname and supply user/port/identity.
	if resolved := ssh_config.Get(host, "HostName"); resolved != "" {
		s.hostname = resolved
	}
	if s.user == "" {
		s.user = ssh_config.Get(host, "User")
	}
	if s.user == "" {
		s.user = os.Getenv("USER")
	}
	if s.port == "22" {
		if port := ssh_config.Get(host, "Port"); port != "" {
			s.port = port
		}
	}
	if identity := ssh_config.Get(host, "IdentityFile"); identity != "" {
		s.identityFile = expandHome(identity)
	}

	return s
}

// buildClientConfig assembles auth methods and host key verification.
func buildClientConfig(s *settings, timeout time.Duration) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	// SSH agent first: covers encrypted keys without prompting.
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	// Then unencrypted identity files on disk.
	for _, keyPath := range candidateKeys(s.identityFile) {
		keyBytes, err := os.ReadFile(keyPath)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			// Encrypted or malformed key; the agent may still hold it.
			continue
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(methods) == 0 {
		return nil, errors.New(errors.ErrRemote,
			"No usable SSH credentials found",
			"Load a key into your agent (ssh-add) or create ~/.ssh/id_ed25519.")
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback(),
		Timeout:         timeout,
	}, nil
}

// candidateKeys returns identity file paths to try, configured file first.
func candidateKeys(configured string) []string {
	var keys []string
	if configured != "" {
		keys = append(keys, configured)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return keys
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keys = append(keys, filepath.Join(home, ".ssh", name))
	}
	return keys
}

// hostKeyCallback verifies against ~/.ssh/known_hosts when present and
// falls back to accepting unknown hosts otherwise, matching the behavior
// of ssh with StrictHostKeyChecking=accept-new for first contact.
func hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		knownHostsPath := filepath.Join(home, ".ssh", "known_hosts")
		if _, statErr := os.Stat(knownHostsPath); statErr == nil {
			if callback, khErr := knownhosts.New(knownHostsPath); khErr == nil {
				return callback
			}
		}
	}
	return ssh.InsecureIgnoreHostKey()
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
