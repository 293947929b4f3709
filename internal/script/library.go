package script

import (
	_ "embed"
	"os"
	"path/filepath"

	"qube/internal/config"
)

// library is the qube shell function library shipped inside the binary.
// It is written next to the composite script and uploaded during bootstrap
// so the remote install never depends on anything but the binary itself.
//
//go:embed assets/qube.sh
var library []byte

// Library returns the embedded shell function library.
func Library() []byte {
	return library
}

// WriteLibrary writes the function library into dir with the canonical name
// and executable permissions, returning the written path.
func WriteLibrary(dir string) (string, error) {
	path := filepath.Join(dir, config.LibraryName)
	if err := os.WriteFile(path, library, 0o755); err != nil {
		return "", err
	}
	return path, nil
}
