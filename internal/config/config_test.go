package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, DefaultBaseDir, cfg.BaseDir)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.NotEmpty(t, cfg.User, "defaults to the invoking user")
	assert.Equal(t, "/etc/hosts", cfg.HostsFile)
	require.NotEmpty(t, cfg.SSHConfigs)
	require.NotEmpty(t, cfg.KnownHostsList)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUBE_BASE_DIR", "~/custom")
	t.Setenv("QUBE_USER", "deploy")

	cfg := Load()

	assert.Equal(t, "~/custom", cfg.BaseDir)
	assert.Equal(t, "deploy", cfg.User)
}
