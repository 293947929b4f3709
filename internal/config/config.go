// Package config builds the immutable run configuration for a qube
// invocation. All repeatable flags are accumulated by the CLI layer into a
// single RunConfig value that is passed explicitly into the resolver,
// planner, assembler, and runner. Nothing in the pipeline reads ambient
// global state.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultBaseDir is the remote working directory under the connecting
	// user's home where all uploads land.
	DefaultBaseDir = "~/.qube"

	// DefaultConnectTimeout bounds the SSH dial for each host.
	DefaultConnectTimeout = 5 * time.Second

	// EncryptedSuffix marks an environment script as encrypted.
	EncryptedSuffix = ".enc"

	// DecryptedSuffix marks the transient plaintext sibling produced by
	// decryption. Files with this suffix are owned by the run and removed
	// when it ends.
	DecryptedSuffix = ".dec"

	// LibraryName is the filename of the embedded shell function library
	// uploaded during bootstrap and sourced by every composite script.
	LibraryName = "qube.sh"

	// ScriptName is the filename of the generated composite script.
	ScriptName = "qube-run.sh"
)

// RunConfig holds everything a single invocation needs. Built once by the
// CLI layer and read-only thereafter.
type RunConfig struct {
	HostSpecs  []string // literal hostnames or wildcard patterns, in flag order
	Cubes      []string // cube tokens (script paths or directories), in flag order
	EnvScripts []string // environment script paths, in flag order
	Commands   []string // trailing inline commands, verbatim

	User       string // remote user; defaults to the invoking user
	Passphrase string // optional passphrase for encrypted env scripts

	SkipBootstrap bool // assume the remote base directory exists
	KeepScript    bool // keep the generated composite script locally
	Debug         bool // report every host, not just failures
	Quiet         bool // suppress non-error output

	BaseDir        string        // remote base directory (tilde path)
	ConnectTimeout time.Duration // SSH dial timeout per host

	// Host harvest sources for wildcard expansion, in scan order.
	SSHConfigs     []string
	KnownHostsList []string
	HostsFile      string
}

// Load assembles defaults from the environment and the optional global
// config file (~/.config/qube/config.yaml). Flag values are applied on top
// by the CLI layer.
func Load() *RunConfig {
	v := viper.New()
	v.SetEnvPrefix("QUBE")
	v.AutomaticEnv()

	v.SetDefault("base_dir", DefaultBaseDir)
	v.SetDefault("connect_timeout", DefaultConnectTimeout)

	home, _ := os.UserHomeDir()
	if home != "" {
		v.AddConfigPath(filepath.Join(home, ".config", "qube"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// A missing global config is fine; only explicit settings override.
		_ = v.ReadInConfig()
	}

	cfg := &RunConfig{
		User:           currentUser(),
		BaseDir:        v.GetString("base_dir"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
		HostsFile:      "/etc/hosts",
	}

	if u := v.GetString("user"); u != "" {
		cfg.User = u
	}

	if home != "" {
		cfg.SSHConfigs = []string{
			filepath.Join(home, ".ssh", "config"),
			"/etc/ssh/ssh_config",
		}
		cfg.KnownHostsList = []string{
			filepath.Join(home, ".ssh", "known_hosts"),
			"/etc/ssh/ssh_known_hosts",
		}
	} else {
		cfg.SSHConfigs = []string{"/etc/ssh/ssh_config"}
		cfg.KnownHostsList = []string{"/etc/ssh/ssh_known_hosts"}
	}

	return cfg
}

// currentUser returns the invoking user's login name, falling back to the
// USER environment variable.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
