package secret

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"

	"qube/internal/cube"
	"qube/internal/errors"
)

// Show decrypts an encrypted environment script, prints the plaintext to
// stdout, and removes the transient plaintext file. No hosts are involved.
func (m *Manager) Show(path string) error {
	plainPath, err := m.Decrypt(path)
	if err != nil {
		return err
	}
	defer os.Remove(plainPath)

	contents, err := os.ReadFile(plainPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Can't read decrypted '%s'", plainPath), "")
	}
	os.Stdout.Write(contents)
	return nil
}

// Edit decrypts an encrypted environment script, opens the plaintext in the
// user's editor (blocking), re-encrypts the possibly modified plaintext back
// to the original path, and removes the plaintext copy. If the editor can't
// be started or exits nonzero, the original ciphertext is left untouched;
// a nonzero editor exit becomes the process exit status.
func (m *Manager) Edit(path string) error {
	plainPath, err := m.Decrypt(path)
	if err != nil {
		return err
	}
	defer os.Remove(plainPath)

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	cmd := exec.Command(editor, plainPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr,
				"qube: editor '%s' exited with status %d; '%s' was not re-encrypted\n",
				editor, exitErr.ExitCode(), path)
			return errors.NewExitError(exitErr.ExitCode())
		}
		return errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Couldn't start editor '%s'", editor),
			"Set $EDITOR to your preferred editor.")
	}

	return m.Encrypt(plainPath, path)
}

// PrepareRun decrypts every encrypted environment script in the plan,
// rewriting each entry's LocalPath to the transient plaintext so the
// plaintext (never the ciphertext) is what gets uploaded and sourced.
// The returned cleanup removes every transient, best-effort, and must run
// at the end of the run whether it succeeded or not.
func (m *Manager) PrepareRun(plan *cube.Plan) (cleanup func(), err error) {
	var transients []string
	cleanup = func() {
		for _, path := range transients {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				m.log.Warn("couldn't remove transient %s: %v", path, rmErr)
			}
		}
	}

	for i := range plan.EnvScripts {
		if !plan.EnvScripts[i].Encrypted {
			continue
		}
		plainPath, decErr := m.Decrypt(plan.EnvScripts[i].LocalPath)
		if decErr != nil {
			cleanup()
			return func() {}, decErr
		}
		transients = append(transients, plainPath)
		plan.EnvScripts[i].LocalPath = plainPath
	}

	return cleanup, nil
}
