package sshutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	scp "github.com/bramvdbogaerde/go-scp"

	"qube/internal/errors"
	"qube/internal/util"
)

// homeRelative rewrites a "~/..." destination into a path relative to the
// remote home directory. The scp protocol quotes its destination, so the
// remote shell never expands a tilde; since SSH sessions start in the
// remote home, a home-relative path lands in the same place the tilde
// would have.
func homeRelative(remotePath string) string {
	if remotePath == "~" {
		return "."
	}
	return strings.TrimPrefix(remotePath, "~/")
}

// Upload copies a local file to remotePath, preserving its permission bits.
// The parent directory must already exist on the remote side.
func (c *Client) Upload(localPath, remotePath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrArtifact,
			fmt.Sprintf("Can't read '%s' for upload", localPath),
			"Check the file exists and is readable.")
	}
	return c.uploadFile(localPath, homeRelative(remotePath), info.Mode())
}

// UploadDir recursively copies a local directory under remotePath,
// preserving permission bits on regular files. Remote directories are
// created with mkdir -p before their contents are copied.
func (c *Client) UploadDir(localDir, remotePath string) error {
	base := homeRelative(remotePath)
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		dest := base
		if rel != "." {
			dest = base + "/" + filepath.ToSlash(rel)
		}

		if info.IsDir() {
			return c.mkdirAll(dest)
		}
		if !info.Mode().IsRegular() {
			// Symlinks and specials are skipped; cubes are plain script trees.
			return nil
		}
		return c.uploadFile(path, dest, info.Mode())
	})
}

// uploadFile streams a single file over SCP. A fresh SCP session is needed
// per file since each transfer consumes one SSH session.
func (c *Client) uploadFile(localPath, remotePath string, mode os.FileMode) error {
	scpClient, err := scp.NewClientBySSH(c.Client)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Couldn't open an SCP session to '%s'", c.Host),
			"Connection may have been closed. Try reconnecting.")
	}
	defer scpClient.Close()

	file, err := os.Open(localPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrArtifact,
			fmt.Sprintf("Can't read '%s' for upload", localPath),
			"Check the file exists and is readable.")
	}
	defer file.Close()

	permission := fmt.Sprintf("%04o", mode.Perm())
	if err := scpClient.CopyFromFile(context.Background(), *file, remotePath, permission); err != nil {
		return errors.WrapWithCode(err, errors.ErrRemote,
			fmt.Sprintf("Transfer of '%s' to %s failed", localPath, c.Host),
			"Check remote disk space and directory permissions.")
	}
	return nil
}

// mkdirAll creates a remote directory tree, idempotently.
func (c *Client) mkdirAll(remotePath string) error {
	cmd := "mkdir -p " + util.ShellQuote(homeRelative(remotePath))
	_, stderr, exitCode, err := c.Exec(cmd)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return errors.New(errors.ErrRemote,
			fmt.Sprintf("Couldn't create remote directory '%s' on %s", remotePath, c.Host),
			string(stderr))
	}
	return nil
}
