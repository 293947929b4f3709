package cube

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qube/internal/errors"
)

func TestBuildPlanValidatesEnvScripts(t *testing.T) {
	_, err := BuildPlan(nil, []string{"/nonexistent/prod.env"}, ".enc")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrArtifact))
	assert.Contains(t, err.Error(), "prod.env")
}

func TestBuildPlanMarksEncryptedScripts(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "dev.env")
	encrypted := filepath.Join(dir, "prod.env.enc")
	require.NoError(t, os.WriteFile(plain, []byte("A=1\n"), 0o644))
	require.NoError(t, os.WriteFile(encrypted, []byte("ciphertext"), 0o600))

	plan, err := BuildPlan(nil, []string{plain, encrypted}, ".enc")
	require.NoError(t, err)
	require.Len(t, plan.EnvScripts, 2)
	assert.False(t, plan.EnvScripts[0].Encrypted)
	assert.True(t, plan.EnvScripts[1].Encrypted)
	assert.Equal(t, "dev.env", plan.EnvScripts[0].RemoteName())
	assert.Equal(t, "prod.env.enc", plan.EnvScripts[1].RemoteName())
}

func TestBuildPlanAbortsOnMissingCube(t *testing.T) {
	// A missing cube must fail before anything else happens, even when the
	// env scripts are fine.
	dir := t.TempDir()
	env := filepath.Join(dir, "dev.env")
	require.NoError(t, os.WriteFile(env, []byte("A=1\n"), 0o644))

	_, err := BuildPlan([]string{filepath.Join(dir, "ghost")}, []string{env}, ".enc")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrArtifact))
}

func TestBuildPlanPreservesInputOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.sh", "a.sh"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644))
	}

	plan, err := BuildPlan(
		[]string{filepath.Join(dir, "b.sh"), filepath.Join(dir, "a.sh")},
		nil, ".enc")
	require.NoError(t, err)
	require.Len(t, plan.Cubes, 2)
	assert.Equal(t, "b", plan.Cubes[0].Name)
	assert.Equal(t, "a", plan.Cubes[1].Name)
}
