package cube

import (
	"fmt"
	"path/filepath"

	"qube/internal/errors"
)

// EnvScript is a validated environment-variable script. LocalPath always
// points at the plaintext that will be uploaded and sourced; for encrypted
// inputs the secret manager rewrites it after decryption.
type EnvScript struct {
	LocalPath string
	Encrypted bool // original carried the encrypted suffix; remote copy is
	// removed by the composite script right after sourcing
}

// RemoteName returns the filename the script is uploaded as, relative to
// the remote base directory.
func (e EnvScript) RemoteName() string {
	return filepath.Base(e.LocalPath)
}

// Plan is the validated artifact set for a run: everything that must be
// transferred and the records the assembler consumes. Built once before any
// host is contacted.
type Plan struct {
	Cubes      []Cube
	EnvScripts []EnvScript
}

// BuildPlan classifies every cube token and validates every environment
// script path. Any missing artifact aborts the run before any transfer.
func BuildPlan(cubeTokens, envPaths []string, encryptedSuffix string) (*Plan, error) {
	plan := &Plan{}

	for _, token := range cubeTokens {
		c, err := Classify(token)
		if err != nil {
			return nil, err
		}
		if err := c.MarkScriptsExecutable(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrArtifact,
				fmt.Sprintf("Couldn't mark scripts in cube '%s' executable", c.Name),
				"Check you own the cube files.")
		}
		plan.Cubes = append(plan.Cubes, c)
	}

	for _, path := range envPaths {
		if !isReadableFile(path) {
			return nil, errors.New(errors.ErrArtifact,
				fmt.Sprintf("Environment script '%s' not found", path),
				"Check the path passed to -e.")
		}
		plan.EnvScripts = append(plan.EnvScripts, EnvScript{
			LocalPath: path,
			Encrypted: hasSuffix(path, encryptedSuffix),
		})
	}

	return plan, nil
}

func hasSuffix(path, suffix string) bool {
	return suffix != "" && len(path) > len(suffix) && path[len(path)-len(suffix):] == suffix
}
