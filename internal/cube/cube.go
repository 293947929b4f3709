// Package cube classifies and validates the artifacts a run uploads:
// cubes (reusable script packages) and environment scripts.
package cube

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qube/internal/errors"
)

// Kind is the closed set of cube shapes. Classification happens once, by
// filesystem probing in precedence order; consumers never re-probe.
type Kind int

const (
	// DirectoryCube is a directory containing <dirname>.sh as its entry script.
	DirectoryCube Kind = iota
	// FileCube is a single script file named directly by its token.
	FileCube
	// ImplicitFileCube is a single script file found by appending .sh to the token.
	ImplicitFileCube
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case DirectoryCube:
		return "directory"
	case FileCube:
		return "file"
	case ImplicitFileCube:
		return "implicit"
	default:
		return "unknown"
	}
}

// Cube is a validated unit of remote script logic. Identity is the basename
// without extension.
type Cube struct {
	Name      string // identity, e.g. "deploy"
	LocalPath string // the upload unit: the directory or the script file
	Kind      Kind
}

// RemoteScript returns the path of the cube's entry script relative to the
// remote base directory.
func (c Cube) RemoteScript() string {
	switch c.Kind {
	case DirectoryCube:
		return c.Name + "/" + c.Name + ".sh"
	default:
		return filepath.Base(c.LocalPath)
	}
}

// RemoteDir returns the cube's working directory relative to the remote
// base directory: the cube subdirectory for directory cubes, "" otherwise.
func (c Cube) RemoteDir() string {
	if c.Kind == DirectoryCube {
		return c.Name
	}
	return ""
}

// Classify probes the filesystem to determine a cube token's shape, in
// precedence order: directory cube, file cube, implicit .sh cube. Any token
// matching none of the three fails with an ARTIFACT error before any
// network action.
func Classify(token string) (Cube, error) {
	if info, err := os.Stat(token); err == nil && info.IsDir() {
		name := filepath.Base(filepath.Clean(token))
		entry := filepath.Join(token, name+".sh")
		if !isReadableFile(entry) {
			return Cube{}, errors.New(errors.ErrArtifact,
				fmt.Sprintf("Cube directory '%s' has no '%s.sh' inside", token, name),
				fmt.Sprintf("A directory cube needs its entry script at %s.", entry))
		}
		return Cube{Name: name, LocalPath: token, Kind: DirectoryCube}, nil
	}

	if isReadableFile(token) {
		return Cube{Name: baseName(token), LocalPath: token, Kind: FileCube}, nil
	}

	if implicit := token + ".sh"; isReadableFile(implicit) {
		return Cube{Name: baseName(implicit), LocalPath: implicit, Kind: ImplicitFileCube}, nil
	}

	return Cube{}, errors.New(errors.ErrArtifact,
		fmt.Sprintf("Cube '%s' not found", token),
		"Pass a script file, a directory with a matching <name>.sh, or a name with the .sh left off.")
}

// MarkScriptsExecutable sets the executable bits on the cube's entry script
// (and on every *.sh member for directory cubes) so permissions survive the
// permission-preserving transfer.
func (c Cube) MarkScriptsExecutable() error {
	if c.Kind != DirectoryCube {
		return addExecBits(c.LocalPath)
	}
	return filepath.Walk(c.LocalPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && strings.HasSuffix(path, ".sh") {
			return addExecBits(path)
		}
		return nil
	})
}

// addExecBits mirrors chmod +x: execute is granted wherever read is.
func addExecBits(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode()
	exec := (mode.Perm() & 0o444) >> 2
	return os.Chmod(path, mode|exec)
}

// baseName strips the directory and extension from a path.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isReadableFile reports whether path is a regular file the current user
// can open.
func isReadableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
