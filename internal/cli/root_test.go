package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qube/internal/config"
	"qube/internal/errors"
	"qube/internal/logger"
	"qube/internal/secret"
)

func TestDispatchNoHostsNoArgs(t *testing.T) {
	err := dispatch(&config.RunConfig{}, nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUsage))
	assert.Contains(t, err.Error(), "Nothing to do")
}

func TestDispatchUnknownBareArgIsUsageError(t *testing.T) {
	// Only 'show' and 'edit' are sub-operations; anything else without
	// hosts has no meaning.
	err := dispatch(&config.RunConfig{}, []string{"uptime"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUsage))
}

func TestDispatchSubOperationWithExtraArgs(t *testing.T) {
	err := dispatch(&config.RunConfig{EnvScripts: []string{"a.enc"}},
		[]string{"show", "extra"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUsage))
}

func TestDispatchHostsWithNothingToRun(t *testing.T) {
	err := dispatch(&config.RunConfig{HostSpecs: []string{"web1"}}, nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUsage))
	assert.Contains(t, err.Error(), "Nothing to run")
}

func TestSecretOperationRequiresExactlyOneEnv(t *testing.T) {
	cases := []struct {
		name string
		envs []string
	}{
		{"none", nil},
		{"two", []string{"a.env.enc", "b.env.enc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := secretOperation(&config.RunConfig{EnvScripts: tc.envs}, "show")

			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrUsage))
			assert.Contains(t, err.Error(), "exactly one -e")
		})
	}
}

func TestSecretOperationShow(t *testing.T) {
	dir := t.TempDir()
	plainPath := filepath.Join(dir, "prod.env")
	encPath := filepath.Join(dir, "prod.env.enc")
	require.NoError(t, os.WriteFile(plainPath, []byte("A=1\n"), 0o600))
	require.NoError(t, secret.NewManager("pass", logger.Noop()).Encrypt(plainPath, encPath))

	cfg := &config.RunConfig{EnvScripts: []string{encPath}, Passphrase: "pass"}
	require.NoError(t, secretOperation(cfg, "show"))

	// Show must not leave its transient plaintext behind.
	_, statErr := os.Stat(secret.PlaintextPath(encPath))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildConfigLayersFlagsOverDefaults(t *testing.T) {
	restore := func() {
		hostFlags, cubeFlags, envFlags = nil, nil, nil
		userFlag, passphraseFlag = "", ""
		skipBootstrap, keepScript, debugFlag, quietFlag = false, false, false, false
		connectTimeout = 0
	}
	restore()
	t.Cleanup(restore)

	hostFlags = []string{"web*", "db1"}
	cubeFlags = []string{"deploy"}
	userFlag = "deploy"
	quietFlag = true
	connectTimeout = 10 * time.Second

	cfg := buildConfig(nil)

	assert.Equal(t, []string{"web*", "db1"}, cfg.HostSpecs)
	assert.Equal(t, []string{"deploy"}, cfg.Cubes)
	assert.Equal(t, "deploy", cfg.User)
	assert.True(t, cfg.Quiet)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, config.DefaultBaseDir, cfg.BaseDir)
}

func TestBuildConfigDefaultTimeoutKept(t *testing.T) {
	connectTimeout = 0
	cfg := buildConfig(nil)
	assert.Equal(t, config.DefaultConnectTimeout, cfg.ConnectTimeout)
}
