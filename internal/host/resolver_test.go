package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qube/internal/config"
	"qube/internal/errors"
	"qube/internal/logger"
)

// fixtureConfig builds a RunConfig whose only harvest source is an SSH
// config file declaring the given hosts.
func fixtureConfig(t *testing.T, hosts string) *config.RunConfig {
	t.Helper()
	dir := t.TempDir()
	sshConfig := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(sshConfig, []byte(hosts), 0o644))
	return &config.RunConfig{
		SSHConfigs: []string{sshConfig},
	}
}

func TestResolveLiteralSpec(t *testing.T) {
	// Literal specs never touch the harvest sources.
	r := NewResolver(&config.RunConfig{}, logger.Noop())

	hosts, err := r.Resolve("web1")
	require.NoError(t, err)
	assert.Equal(t, []string{"web1"}, hosts)
}

func TestResolveWildcard(t *testing.T) {
	cfg := fixtureConfig(t, "Host web1\nHost web2\nHost db1\n")
	r := NewResolver(cfg, logger.Noop())

	hosts, err := r.Resolve("web*")
	require.NoError(t, err)
	assert.Equal(t, []string{"web1", "web2"}, hosts, "db1 must be excluded, harvest order kept")
}

func TestResolveWildcardFullMatchOnly(t *testing.T) {
	cfg := fixtureConfig(t, "Host web1\nHost myweb1\nHost web1-staging\n")
	r := NewResolver(cfg, logger.Noop())

	hosts, err := r.Resolve("web*")
	require.NoError(t, err)
	// "myweb1" contains web but doesn't start with it: no substring matching.
	assert.Equal(t, []string{"web1", "web1-staging"}, hosts)
}

func TestResolveWildcardNoMatches(t *testing.T) {
	cfg := fixtureConfig(t, "Host db1\n")
	r := NewResolver(cfg, logger.Noop())

	_, err := r.Resolve("web*")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrResolve))
	assert.Contains(t, err.Error(), "web*")
}

func TestResolveWildcardMetaCharsQuoted(t *testing.T) {
	cfg := fixtureConfig(t, "Host web.prod\nHost webxprod\n")
	r := NewResolver(cfg, logger.Noop())

	hosts, err := r.Resolve("web.*")
	require.NoError(t, err)
	// The dot is literal; only web.prod matches web.* as a glob.
	assert.Equal(t, []string{"web.prod"}, hosts)
}

func TestResolveAllConcatenatesInSpecOrder(t *testing.T) {
	cfg := fixtureConfig(t, "Host web1\nHost web2\n")
	r := NewResolver(cfg, logger.Noop())

	hosts, err := r.ResolveAll([]string{"db9", "web*", "db9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"db9", "web1", "web2", "db9"}, hosts,
		"duplicates are allowed and spec order is preserved")
}

func TestResolveAllAbortsOnFirstFailure(t *testing.T) {
	cfg := fixtureConfig(t, "Host db1\n")
	r := NewResolver(cfg, logger.Noop())

	_, err := r.ResolveAll([]string{"db1", "web*"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrResolve))
}

func TestResolveResultsSubsetOfHarvest(t *testing.T) {
	cfg := fixtureConfig(t, "Host web1\nHost web2\nHost db1\n")
	r := NewResolver(cfg, logger.Noop())

	candidates := r.harvest()

	hosts, err := r.Resolve("*")
	require.NoError(t, err)
	assert.Subset(t, candidates, hosts)
}

func TestHarvestAcrossSourceKinds(t *testing.T) {
	dir := t.TempDir()
	sshConfig := filepath.Join(dir, "config")
	knownHosts := filepath.Join(dir, "known_hosts")
	hostsFile := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(sshConfig, []byte("Host web1\n"), 0o644))
	require.NoError(t, os.WriteFile(knownHosts, []byte("web2 ssh-ed25519 AAAA\n"), 0o644))
	require.NoError(t, os.WriteFile(hostsFile, []byte("10.0.0.3 web3\n"), 0o644))

	cfg := &config.RunConfig{
		SSHConfigs:     []string{sshConfig},
		KnownHostsList: []string{knownHosts},
		HostsFile:      hostsFile,
	}
	r := NewResolver(cfg, logger.Noop())

	hosts, err := r.Resolve("web*")
	require.NoError(t, err)
	// Source order is fixed: SSH configs, then known_hosts, then hosts file.
	assert.Equal(t, []string{"web1", "web2", "web3"}, hosts)
}

func TestHarvestToleratesMissingSources(t *testing.T) {
	cfg := &config.RunConfig{
		SSHConfigs:     []string{"/nonexistent/config"},
		KnownHostsList: []string{"/nonexistent/known_hosts"},
		HostsFile:      "/nonexistent/hosts",
	}
	r := NewResolver(cfg, logger.Noop())

	_, err := r.Resolve("web*")
	require.Error(t, err, "empty harvest means zero matches")
	assert.True(t, errors.IsCode(err, errors.ErrResolve))
}
